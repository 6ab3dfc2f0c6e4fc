package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.085")))
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 168*time.Hour, cfg.CartTTL())
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Empty(t, cfg.CatalogURL)
	assert.Equal(t, 5*time.Second, cfg.CatalogHTTP.Timeout)
	assert.Equal(t, 2, cfg.CatalogHTTP.MaxRetries)
	assert.Equal(t, 20.0, cfg.RateLimit.RPS)
	assert.Equal(t, 40, cfg.RateLimit.Burst)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STOREFRONT_HTTP_PORT", "9000")
	t.Setenv("TAX_RATE", "0.2")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CATALOG_SERVICE_URL", "http://catalog:8001")
	t.Setenv("CATALOG_HTTP_MAX_RETRIES", "0")
	t.Setenv("CB_MIN_REQUESTS", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "0.2", cfg.TaxRate.String())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "http://catalog:8001", cfg.CatalogURL)
	assert.Equal(t, 0, cfg.CatalogHTTP.MaxRetries)
	assert.Equal(t, uint32(10), cfg.CircuitBreaker().MinRequests)
	assert.Equal(t, "catalog", cfg.CircuitBreaker().Name)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"port out of range", "STOREFRONT_HTTP_PORT", "70000"},
		{"tax rate of one", "TAX_RATE", "1"},
		{"negative tax rate", "TAX_RATE", "-0.01"},
		{"malformed tax rate", "TAX_RATE", "eight percent"},
		{"bad currency", "CURRENCY", "DOLLARS"},
		{"zero ttl", "CART_TTL_HOURS", "0"},
		{"failure ratio", "CB_FAILURE_RATIO", "0"},
		{"sample rate", "OTEL_SAMPLE_RATE", "2"},
		{"negative rps", "RATE_LIMIT_RPS", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConfig_Postgres(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "p@ss word")
	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "storefront_db", pg.DBName)
	assert.Contains(t, pg.DSN(), "p%40ss%20word")
	assert.Equal(t, "localhost:6379", cfg.Redis().Addr())
}

func TestConfig_Tracing(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	cfg, err := Load()
	require.NoError(t, err)

	tc := cfg.Tracing("storefront")
	assert.True(t, tc.Enabled)
	assert.Equal(t, "storefront", tc.ServiceName)
	assert.Equal(t, "development", tc.Environment)
}
