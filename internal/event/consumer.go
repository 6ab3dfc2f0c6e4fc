package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// OrderStatusUpdater is the service call the fulfillment consumer drives.
type OrderStatusUpdater interface {
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.OrderRecord, error)
}

// FulfillmentStatusData is the payload of a fulfillment.status_changed event.
type FulfillmentStatusData struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Consumer processes incoming fulfillment events.
type Consumer struct {
	orders OrderStatusUpdater
	logger *slog.Logger
}

// NewConsumer creates a new fulfillment event consumer.
func NewConsumer(orders OrderStatusUpdater, logger *slog.Logger) *Consumer {
	return &Consumer{orders: orders, logger: logger}
}

// HandleFulfillmentStatusChanged applies a fulfillment status update to the
// order. Updates that can never succeed (malformed or unknown order, unknown status,
// rejected transition) are logged and acknowledged so they are not retried.
func (c *Consumer) HandleFulfillmentStatusChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data FulfillmentStatusData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal fulfillment.status_changed data: %w", err)
	}

	log := c.logger.With(
		slog.String("event_id", event.EventID),
		slog.String("order_id", data.OrderID),
		slog.String("status", data.Status),
	)

	if _, err := uuid.Parse(data.OrderID); err != nil || !domain.IsValidStatus(data.Status) {
		log.WarnContext(ctx, "ignoring malformed fulfillment update")
		return nil
	}

	order, err := c.orders.UpdateStatus(ctx, data.OrderID, domain.OrderStatus(data.Status))
	switch {
	case err == nil:
		log.InfoContext(ctx, "order status updated from fulfillment", slog.String("new_status", string(order.Status)))
		return nil
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrConflict):
		log.WarnContext(ctx, "fulfillment update rejected", slog.String("error", err.Error()))
		return nil
	default:
		return fmt.Errorf("update order %s to %s: %w", data.OrderID, data.Status, err)
	}
}
