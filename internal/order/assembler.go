// Package order turns a cart snapshot into an order record.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/pricing"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const defaultCurrency = "USD"

// Assembler builds order records. It performs no I/O; persisting the result
// is up to the caller.
type Assembler struct {
	engine   *pricing.Engine
	now      func() time.Time
	newID    func() (string, error)
	currency string
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithIDGenerator overrides order id generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(a *Assembler) { a.newID = gen }
}

// WithCurrency sets the ISO currency code stamped on orders.
func WithCurrency(code string) Option {
	return func(a *Assembler) { a.currency = strings.ToUpper(code) }
}

// NewAssembler creates an assembler that prices orders with engine.
func NewAssembler(engine *pricing.Engine, opts ...Option) *Assembler {
	a := &Assembler{
		engine:   engine,
		now:      time.Now,
		newID:    newOrderID,
		currency: defaultCurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateOrder validates the input and returns a pending order whose amounts
// are computed from items. The returned record shares no memory with items.
func (a *Assembler) CreateOrder(userID string, items []domain.LineItem, shippingAddress string) (*domain.OrderRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.Validation("user id is required")
	}
	if len(items) == 0 {
		return nil, apperrors.Validation("order must contain at least one item")
	}
	address := strings.TrimSpace(shippingAddress)
	if address == "" {
		return nil, apperrors.Validation("shipping address is required")
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, apperrors.Validationf("duplicate product %s in order", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}

	id, err := a.newID()
	if err != nil {
		return nil, fmt.Errorf("generate order id: %w", err)
	}

	snapshot := domain.CloneItems(items)
	quote := a.engine.Quote(snapshot)
	now := a.now().UTC()

	return &domain.OrderRecord{
		ID:              id,
		UserID:          userID,
		Items:           snapshot,
		Subtotal:        quote.Subtotal,
		Tax:             quote.Tax,
		Total:           quote.Total,
		TaxRate:         quote.Rate,
		Currency:        a.currency,
		Status:          domain.OrderStatusPending,
		ShippingAddress: address,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// newOrderID returns a UUIDv7: a millisecond timestamp prefix followed by
// random bits, so ids sort by creation time.
func newOrderID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
