package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/pkg/httpclient"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewCatalog_DemoWhenNoURL(t *testing.T) {
	cfg := &config.Config{}

	c := newCatalog(cfg, discardLogger())
	_, ok := c.(*catalog.MemoryCatalog)
	require.True(t, ok)

	p, err := c.Product(context.Background(), "sku1")
	require.NoError(t, err)
	assert.Equal(t, int64(9999), p.Price)
}

func TestNewCatalog_RemoteThroughBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products/sku7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"sku7","title":"Desk Lamp","price":3900}}`))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		CatalogURL:     srv.URL,
		CatalogHTTP:    httpclient.DefaultConfig(),
		CBFailureRatio: 0.5,
		CBMinRequests:  5,
	}

	c := newCatalog(cfg, discardLogger())
	_, ok := c.(*catalog.HTTPCatalog)
	require.True(t, ok)

	p, err := c.Product(context.Background(), "sku7")
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", p.Title)
	assert.Equal(t, int64(3900), p.Price)
}
