package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// OrderService implements order history and the status state machine.
type OrderService struct {
	repo     repository.OrderRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(repo repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *OrderService {
	return &OrderService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// GetOrder returns one of the user's orders. Orders owned by someone else
// are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, id string) (*domain.OrderRecord, error) {
	if !isOrderID(id) {
		return nil, apperrors.NotFound("order", id)
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o.UserID != userID {
		return nil, apperrors.NotFound("order", id)
	}
	return o, nil
}

// ListOrders returns a page of the user's order history, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string, page pagination.Params) (pagination.Result[domain.OrderRecord], error) {
	page = pagination.New(page.Page, page.PerPage)
	orders, total, err := s.repo.ListByUser(ctx, userID, page)
	if err != nil {
		return pagination.Result[domain.OrderRecord]{}, fmt.Errorf("list orders: %w", err)
	}
	return pagination.NewResult(orders, total, page), nil
}

// UpdateStatus moves an order to status if the state machine allows it.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.OrderRecord, error) {
	if !domain.IsValidStatus(string(status)) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order status: %q", status))
	}

	if !isOrderID(id) {
		return nil, apperrors.NotFound("order", id)
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o.Status == status {
		return o, nil
	}
	if !o.CanTransitionTo(status) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot transition order from %s to %s", o.Status, status))
	}

	old := o.Status
	if err := s.repo.UpdateStatus(ctx, id, old, status); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Conflict(fmt.Sprintf("order %s was modified concurrently", id))
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	orderStatusTransitions.WithLabelValues(string(status)).Inc()

	if err := s.producer.PublishOrderStatusChanged(ctx, o, old); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("old_status", string(old)),
		slog.String("new_status", string(status)),
	)
	return o, nil
}

// isOrderID reports whether id can name a stored order. Order ids are UUIDs.
func isOrderID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
