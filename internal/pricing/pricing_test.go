package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
)

var defaultRate = decimal.RequireFromString("0.085")

func sampleItems() []domain.LineItem {
	return []domain.LineItem{
		{ProductID: "a", UnitPrice: 1050, Quantity: 3},
		{ProductID: "b", UnitPrice: 2500, Quantity: 2},
	}
}

// --- Subtotal ---

func TestSubtotal(t *testing.T) {
	assert.Equal(t, int64(8150), Subtotal(sampleItems()))
}

func TestSubtotal_Empty(t *testing.T) {
	assert.Equal(t, int64(0), Subtotal(nil))
	assert.Equal(t, int64(0), Subtotal([]domain.LineItem{}))
}

// --- Tax / Total ---

func TestTax_IsUnrounded(t *testing.T) {
	tax := Tax(8150, defaultRate)
	assert.True(t, tax.Equal(decimal.RequireFromString("692.75")), "got %s", tax)
}

func TestTotal_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(8843), Total(8150, decimal.RequireFromString("692.75")))
	assert.Equal(t, int64(101), Total(100, decimal.RequireFromString("0.5")))
	assert.Equal(t, int64(100), Total(100, decimal.RequireFromString("0.4999")))
}

func TestTotal_ZeroTax(t *testing.T) {
	assert.Equal(t, int64(8150), Total(8150, decimal.Zero))
}

// --- Engine ---

func TestNewEngine_RateBounds(t *testing.T) {
	_, err := NewEngine(decimal.Zero)
	require.NoError(t, err)

	_, err = NewEngine(decimal.RequireFromString("-0.01"))
	assert.Error(t, err)

	_, err = NewEngine(decimal.NewFromInt(1))
	assert.Error(t, err)
}

func TestQuote_Determinism(t *testing.T) {
	engine, err := NewEngine(defaultRate)
	require.NoError(t, err)

	q := engine.Quote(sampleItems())

	assert.Equal(t, int64(8150), q.Subtotal)
	assert.Equal(t, "81.50", FormatCents(q.Subtotal))
	assert.True(t, q.ExactTax.Div(decimal.NewFromInt(100)).Equal(decimal.RequireFromString("6.9275")))
	assert.Equal(t, int64(693), q.Tax)
	assert.Equal(t, int64(8843), q.Total)
	assert.Equal(t, "88.43", FormatCents(q.Total))
	assert.True(t, q.Rate.Equal(defaultRate))

	assert.Equal(t, q, engine.Quote(sampleItems()))
}

func TestQuote_TaxAndSubtotalAddUpToTotal(t *testing.T) {
	engine, err := NewEngine(defaultRate)
	require.NoError(t, err)

	for _, subtotal := range []int64{1, 99, 14997, 8150, 123457} {
		q := engine.Quote([]domain.LineItem{{ProductID: "x", UnitPrice: subtotal, Quantity: 1}})
		assert.Equal(t, q.Subtotal+q.Tax, q.Total, "subtotal %d", subtotal)
	}
}

func TestQuote_Empty(t *testing.T) {
	engine, err := NewEngine(defaultRate)
	require.NoError(t, err)

	q := engine.Quote(nil)

	assert.Zero(t, q.Subtotal)
	assert.Zero(t, q.Tax)
	assert.Zero(t, q.Total)
}

// --- FormatCents ---

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{8843, "88.43"},
		{16272, "162.72"},
		{100000, "1000.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCents(tt.cents))
	}
}
