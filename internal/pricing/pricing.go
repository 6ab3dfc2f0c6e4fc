// Package pricing computes cart totals. Amounts are integer cents; tax is
// carried as an exact decimal until the final half-up rounding to cents.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
)

// Quote is the priced view of a set of line items.
type Quote struct {
	Subtotal int64           `json:"subtotal"`
	Tax      int64           `json:"tax"`
	ExactTax decimal.Decimal `json:"exact_tax"`
	Total    int64           `json:"total"`
	Rate     decimal.Decimal `json:"tax_rate"`
}

// Subtotal returns the sum of unit price times quantity over items.
func Subtotal(items []domain.LineItem) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotal()
	}
	return subtotal
}

// Tax returns subtotal times rate in cents, unrounded.
func Tax(subtotal int64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(subtotal).Mul(rate)
}

// Total returns subtotal plus tax rounded half-up to whole cents.
func Total(subtotal int64, tax decimal.Decimal) int64 {
	return roundCents(decimal.NewFromInt(subtotal).Add(tax))
}

// Engine prices line items at a fixed tax rate.
type Engine struct {
	Rate decimal.Decimal
}

// NewEngine creates an engine for the given tax rate, which must be in [0, 1).
func NewEngine(rate decimal.Decimal) (*Engine, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("tax rate must be in [0, 1), got %s", rate.String())
	}
	return &Engine{Rate: rate}, nil
}

// Quote prices items.
func (e *Engine) Quote(items []domain.LineItem) Quote {
	subtotal := Subtotal(items)
	exact := Tax(subtotal, e.Rate)
	return Quote{
		Subtotal: subtotal,
		Tax:      roundCents(exact),
		ExactTax: exact,
		Total:    Total(subtotal, exact),
		Rate:     e.Rate,
	}
}

// FormatCents renders an amount of cents as a decimal string, e.g. 8843 -> "88.43".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// roundCents rounds half away from zero. Amounts here are never negative, so
// this is half-up.
func roundCents(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
