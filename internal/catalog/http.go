package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
)

type productResponse struct {
	Data *domain.Product `json:"data"`
}

// HTTPCatalog reads products from the catalog service at
// GET {baseURL}/api/v1/products/{id}.
type HTTPCatalog struct {
	client  httpclient.Doer
	baseURL string
	logger  *slog.Logger
}

// NewHTTPCatalog creates a catalog client. client is usually a
// *httpclient.CircuitBreakerClient.
func NewHTTPCatalog(client httpclient.Doer, baseURL string, logger *slog.Logger) *HTTPCatalog {
	return &HTTPCatalog{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (c *HTTPCatalog) Product(ctx context.Context, id string) (domain.Product, error) {
	endpoint := c.baseURL + "/api/v1/products/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return domain.Product{}, fmt.Errorf("create product request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return domain.Product{}, fmt.Errorf("call catalog: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Product{}, httpclient.ParseResponseError(resp, "catalog")
	}
	defer resp.Body.Close()

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Product{}, fmt.Errorf("decode product %s: %w", id, err)
	}
	if body.Data == nil || body.Data.ID == "" {
		return domain.Product{}, fmt.Errorf("catalog returned an empty product for %s", id)
	}

	c.logger.DebugContext(ctx, "product resolved",
		slog.String("product_id", body.Data.ID),
		slog.Int64("price", body.Data.Price),
	)
	return *body.Data, nil
}
