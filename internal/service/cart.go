// Package service wires the cart, pricing and order core to storage, the
// catalog and the event bus.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/pricing"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// AddItemInput holds the parameters for adding a product to the cart.
type AddItemInput struct {
	ProductID string `json:"product_id" validate:"notblank,max=128"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=100"`
}

// CartView is a cart snapshot priced at the configured tax rate.
type CartView struct {
	UserID    string            `json:"user_id"`
	Items     []domain.LineItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Subtotal  int64             `json:"subtotal"`
	Tax       int64             `json:"tax"`
	Total     int64             `json:"total"`
	TaxRate   decimal.Decimal   `json:"tax_rate"`
	Currency  string            `json:"currency"`
}

// CartService implements the business logic for cart operations.
type CartService struct {
	sessions *Sessions
	catalog  catalog.Catalog
	engine   *pricing.Engine
	producer *event.Producer
	logger   *slog.Logger
	currency string
}

// NewCartService creates a new cart service.
func NewCartService(sessions *Sessions, products catalog.Catalog, engine *pricing.Engine, producer *event.Producer, logger *slog.Logger, currency string) *CartService {
	return &CartService{
		sessions: sessions,
		catalog:  products,
		engine:   engine,
		producer: producer,
		logger:   logger,
		currency: strings.ToUpper(currency),
	}
}

func (s *CartService) view(userID string, items []domain.LineItem) *CartView {
	q := s.engine.Quote(items)
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return &CartView{
		UserID:    userID,
		Items:     items,
		ItemCount: count,
		Subtotal:  q.Subtotal,
		Tax:       q.Tax,
		Total:     q.Total,
		TaxRate:   q.Rate,
		Currency:  s.currency,
	}
}

// GetCart returns the user's cart. A user without a cart gets an empty one.
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("user id is required")
	}
	items, err := s.sessions.View(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return s.view(userID, items), nil
}

// AddItem resolves the product in the catalog and adds quantity units of it,
// merging with an existing line for the same product.
func (s *CartService) AddItem(ctx context.Context, userID string, input AddItemInput) (*CartView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("user id is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.Validation("quantity must be greater than 0")
	}

	product, err := s.catalog.Product(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("resolve product %s: %w", input.ProductID, err)
	}

	items, err := s.sessions.Update(ctx, userID, func(c *cart.Store) error {
		return c.AddItem(product, input.Quantity)
	})
	if err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("product_id", product.ID),
		slog.Int("quantity", input.Quantity),
	)
	return s.view(userID, items), nil
}

// RemoveItem removes a product from the cart. Removing an absent product is
// a no-op.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*CartView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("user id is required")
	}

	var removed bool
	items, err := s.sessions.Update(ctx, userID, func(c *cart.Store) error {
		removed = c.RemoveItem(productID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remove item: %w", err)
	}

	if removed {
		s.logger.InfoContext(ctx, "item removed from cart",
			slog.String("user_id", userID),
			slog.String("product_id", productID),
		)
	}
	return s.view(userID, items), nil
}

// SetQuantity overwrites the quantity of a line; zero or less removes it.
// Setting the quantity of a product that is not in the cart is a no-op.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID string, quantity int) (*CartView, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("user id is required")
	}

	items, err := s.sessions.Update(ctx, userID, func(c *cart.Store) error {
		_, err := c.SetQuantity(productID, quantity)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set quantity: %w", err)
	}
	return s.view(userID, items), nil
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.Unauthorized("user id is required")
	}

	if _, err := s.sessions.Update(ctx, userID, func(c *cart.Store) error {
		c.Clear()
		return nil
	}); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, userID, event.CartClearedByUser, ""); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared", slog.String("user_id", userID))
	return nil
}
