package catalog

import (
	"context"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// MemoryCatalog serves a fixed product list. It backs local development
// when no catalog service is configured.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewMemoryCatalog creates a catalog holding products.
func NewMemoryCatalog(products ...domain.Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

// DemoProducts is the seed list used by the in-memory catalog.
func DemoProducts() []domain.Product {
	return []domain.Product{
		{ID: "sku1", Title: "Wireless Headphones", Price: 9999},
		{ID: "sku2", Title: "USB-C Cable", Price: 2499},
		{ID: "sku3", Title: "Laptop Stand", Price: 4550},
		{ID: "sku4", Title: "Mechanical Keyboard", Price: 12900},
	}
}

// Put adds or replaces a product.
func (c *MemoryCatalog) Put(p domain.Product) {
	c.mu.Lock()
	c.products[p.ID] = p
	c.mu.Unlock()
}

func (c *MemoryCatalog) Product(_ context.Context, id string) (domain.Product, error) {
	c.mu.RLock()
	p, ok := c.products[id]
	c.mu.RUnlock()
	if !ok {
		return domain.Product{}, apperrors.NotFound("product", id)
	}
	return p, nil
}
