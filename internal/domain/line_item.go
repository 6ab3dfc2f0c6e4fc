package domain

import (
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Product is the catalog view of a purchasable item. Prices are in cents.
type Product struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price int64  `json:"price"`
}

// LineItem is one product entry in a cart or an order.
type LineItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// LineTotal returns unit price times quantity, in cents.
func (i LineItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Validate checks the line item invariants: a product id, a positive
// quantity and a non-negative unit price.
func (i LineItem) Validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return apperrors.Validation("product id is required")
	}
	if i.Quantity < 1 {
		return apperrors.Validationf("quantity for product %s must be at least 1", i.ProductID)
	}
	if i.UnitPrice < 0 {
		return apperrors.Validationf("unit price for product %s must not be negative", i.ProductID)
	}
	return nil
}

// CloneItems returns an independent copy of items. A nil input yields an
// empty, non-nil slice so JSON views render "[]".
func CloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
