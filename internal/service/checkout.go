package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/order"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CheckoutInput holds the parameters for placing an order from the cart.
type CheckoutInput struct {
	ShippingAddress string `json:"shipping_address" validate:"notblank,max=512"`
}

// CheckoutService turns a user's cart into a persisted order.
type CheckoutService struct {
	sessions  *Sessions
	assembler *order.Assembler
	repo      repository.OrderRepository
	producer  *event.Producer
	logger    *slog.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(sessions *Sessions, assembler *order.Assembler, repo repository.OrderRepository, producer *event.Producer, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		sessions:  sessions,
		assembler: assembler,
		repo:      repo,
		producer:  producer,
		logger:    logger,
	}
}

// Checkout assembles an order from the cart, stores it and empties the cart.
// If the order cannot be stored the error is returned and the cart is kept.
// Event publishing happens after the order is committed and its failures are
// only logged.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, input CheckoutInput) (*domain.OrderRecord, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("user id is required")
	}

	var placed *domain.OrderRecord
	err := s.sessions.Drain(ctx, userID, func(items []domain.LineItem) error {
		o, err := s.assembler.CreateOrder(userID, items, input.ShippingAddress)
		if err != nil {
			return err
		}
		if err := s.repo.Create(ctx, o); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}
		placed = o
		return nil
	})
	if err != nil {
		if apperrors.IsValidation(err) {
			checkoutsTotal.WithLabelValues(checkoutRejected).Inc()
		} else {
			checkoutsTotal.WithLabelValues(checkoutFailed).Inc()
			s.logger.ErrorContext(ctx, "checkout failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("checkout: %w", err)
	}

	checkoutsTotal.WithLabelValues(checkoutSucceeded).Inc()
	orderTotalCents.Observe(float64(placed.Total))

	if err := s.producer.PublishOrderCreated(ctx, placed); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", placed.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.producer.PublishCartCleared(ctx, userID, event.CartClearedByCheckout, placed.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("order_id", placed.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", placed.ID),
		slog.String("user_id", userID),
		slog.Int("item_count", placed.ItemCount()),
		slog.Int64("total", placed.Total),
	)
	return placed, nil
}
