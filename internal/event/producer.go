// Package event publishes storefront domain events and consumes fulfillment
// updates.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/pricing"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics produced and consumed by the storefront.
var (
	TopicOrderCreated             = pkgkafka.Topic("order", "created")
	TopicOrderStatusChanged       = pkgkafka.Topic("order", "status_changed")
	TopicCartCleared              = pkgkafka.Topic("cart", "cleared")
	TopicFulfillmentStatusChanged = pkgkafka.Topic("fulfillment", "status_changed")
)

// Aggregate types.
const (
	AggregateTypeOrder = "order"
	AggregateTypeCart  = "cart"
)

// SourceStorefront identifies events originating here.
const SourceStorefront = "storefront"

// Reasons a cart was cleared.
const (
	CartClearedByUser     = "user"
	CartClearedByCheckout = "checkout"
)

// Publisher writes an event to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Status          string            `json:"status"`
	Items           []domain.LineItem `json:"items"`
	Subtotal        int64             `json:"subtotal"`
	Tax             int64             `json:"tax"`
	Total           int64             `json:"total"`
	TotalDisplay    string            `json:"total_display"`
	TaxRate         string            `json:"tax_rate"`
	Currency        string            `json:"currency"`
	ShippingAddress string            `json:"shipping_address"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	UserID  string `json:"user_id"`
	Reason  string `json:"reason"`
	OrderID string `json:"order_id,omitempty"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishOrderCreated publishes the full order snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.OrderRecord) error {
	data := OrderCreatedData{
		ID:              order.ID,
		UserID:          order.UserID,
		Status:          string(order.Status),
		Items:           domain.CloneItems(order.Items),
		Subtotal:        order.Subtotal,
		Tax:             order.Tax,
		Total:           order.Total,
		TotalDisplay:    pricing.FormatCents(order.Total),
		TaxRate:         order.TaxRate.String(),
		Currency:        order.Currency,
		ShippingAddress: order.ShippingAddress,
	}
	return p.publish(ctx, TopicOrderCreated, order.ID, AggregateTypeOrder, data)
}

// PublishOrderStatusChanged announces a status transition.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *domain.OrderRecord, old domain.OrderStatus) error {
	data := OrderStatusChangedData{
		OrderID:   order.ID,
		UserID:    order.UserID,
		OldStatus: string(old),
		NewStatus: string(order.Status),
	}
	return p.publish(ctx, TopicOrderStatusChanged, order.ID, AggregateTypeOrder, data)
}

// PublishCartCleared announces that a user's cart was emptied. orderID is
// set when checkout cleared it.
func (p *Producer) PublishCartCleared(ctx context.Context, userID, reason, orderID string) error {
	data := CartClearedData{UserID: userID, Reason: reason, OrderID: orderID}
	return p.publish(ctx, TopicCartCleared, userID, AggregateTypeCart, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
		slog.String("event_id", event.EventID),
	)
	return nil
}
