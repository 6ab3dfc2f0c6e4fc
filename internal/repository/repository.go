// Package repository declares the storage interfaces the services depend on.
package repository

import (
	"context"
	"errors"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts an order and its items atomically.
	Create(ctx context.Context, order *domain.OrderRecord) error

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id string) (*domain.OrderRecord, error)

	// ListByUser returns one page of a user's orders, newest first, and the
	// total number of orders the user has.
	ListByUser(ctx context.Context, userID string, page pagination.Params) ([]domain.OrderRecord, int, error)

	// UpdateStatus moves an order from one status to another. It fails with
	// a conflict if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
}

// ErrCorruptSnapshot marks a stored cart snapshot that cannot be decoded.
// Retrying will not help; the snapshot should be discarded.
var ErrCorruptSnapshot = errors.New("corrupt cart snapshot")

// CartSessionRepository stores cart snapshots between requests.
type CartSessionRepository interface {
	// Get returns the saved snapshot, or a not-found error if there is none.
	// An undecodable snapshot yields an error wrapping ErrCorruptSnapshot.
	Get(ctx context.Context, userID string) ([]domain.LineItem, error)

	// Save overwrites the snapshot and refreshes its expiry.
	Save(ctx context.Context, userID string, items []domain.LineItem) error

	// Delete removes the snapshot. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, userID string) error
}
