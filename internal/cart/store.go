// Package cart holds the live, in-memory cart of a single session.
package cart

import (
	"strings"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Cart upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single line item.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct products in a cart.
	MaxItemsPerCart = 50
)

// Store is an ordered collection of line items, unique by product id.
// A Store is owned by one session; the mutex only serializes requests that
// race on the same session.
type Store struct {
	mu    sync.Mutex
	items []domain.LineItem
}

// New returns an empty store.
func New() *Store {
	return &Store{items: []domain.LineItem{}}
}

// Restore builds a store from a previously taken snapshot. Every item is
// checked against the line item invariants and duplicate product ids are
// rejected.
func Restore(items []domain.LineItem) (*Store, error) {
	if len(items) > MaxItemsPerCart {
		return nil, apperrors.Validationf("cart must not contain more than %d items", MaxItemsPerCart)
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if item.Quantity > MaxQuantityPerItem {
			return nil, apperrors.Validationf("quantity must not exceed %d", MaxQuantityPerItem)
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, apperrors.Validationf("duplicate product %s in snapshot", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}

	return &Store{items: domain.CloneItems(items)}, nil
}

// AddItem adds quantity units of product. An existing entry is merged by
// incrementing its quantity, and its title and price are refreshed from the
// product. On error the cart is left unchanged.
func (s *Store) AddItem(product domain.Product, quantity int) error {
	if strings.TrimSpace(product.ID) == "" {
		return apperrors.Validation("product id is required")
	}
	if quantity <= 0 {
		return apperrors.Validation("quantity must be greater than 0")
	}
	if product.Price < 0 {
		return apperrors.Validation("price must not be negative")
	}
	if quantity > MaxQuantityPerItem {
		return apperrors.Validationf("quantity must not exceed %d", MaxQuantityPerItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(product.ID); i >= 0 {
		newQty := s.items[i].Quantity + quantity
		if newQty > MaxQuantityPerItem {
			return apperrors.Validationf("combined quantity must not exceed %d", MaxQuantityPerItem)
		}
		s.items[i].Quantity = newQty
		s.items[i].Title = product.Title
		s.items[i].UnitPrice = product.Price
		return nil
	}

	if len(s.items) >= MaxItemsPerCart {
		return apperrors.Validationf("cart must not contain more than %d items", MaxItemsPerCart)
	}
	s.items = append(s.items, domain.LineItem{
		ProductID: product.ID,
		Title:     product.Title,
		UnitPrice: product.Price,
		Quantity:  quantity,
	})
	return nil
}

// RemoveItem removes the entry for productID. Removing an absent product is a
// no-op and reports false.
func (s *Store) RemoveItem(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(productID)
}

// SetQuantity overwrites the quantity of an existing entry. A quantity of
// zero or less removes the entry. Setting the quantity of an absent product
// is a no-op and reports false.
func (s *Store) SetQuantity(productID string, quantity int) (bool, error) {
	if quantity > MaxQuantityPerItem {
		return false, apperrors.Validationf("quantity must not exceed %d", MaxQuantityPerItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(productID), nil
	}

	i := s.indexOf(productID)
	if i < 0 {
		return false, nil
	}
	s.items[i].Quantity = quantity
	return true, nil
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []domain.LineItem{}
}

// Snapshot returns a copy of the current items in insertion order. The
// result is never nil and never aliases the live cart.
func (s *Store) Snapshot() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.items)
}

// Find returns the entry for productID, if any.
func (s *Store) Find(productID string) (domain.LineItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(productID); i >= 0 {
		return s.items[i], true
	}
	return domain.LineItem{}, false
}

// Len returns the number of distinct products in the cart.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// ItemCount returns the total number of units in the cart.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, item := range s.items {
		n += item.Quantity
	}
	return n
}

func (s *Store) indexOf(productID string) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(productID string) bool {
	i := s.indexOf(productID)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}
