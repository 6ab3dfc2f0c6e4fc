package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, event: e})
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleOrder() *domain.OrderRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.OrderRecord{
		ID:              "o-1",
		UserID:          "user-1",
		Items:           []domain.LineItem{{ProductID: "sku1", Title: "Headphones", UnitPrice: 9999, Quantity: 1}},
		Subtotal:        9999,
		Tax:             850,
		Total:           10849,
		TaxRate:         decimal.RequireFromString("0.085"),
		Currency:        "USD",
		Status:          domain.OrderStatusPending,
		ShippingAddress: "1 Main St",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "storefront.order.created", TopicOrderCreated)
	assert.Equal(t, "storefront.cart.cleared", TopicCartCleared)
	assert.Equal(t, "storefront.fulfillment.status_changed", TopicFulfillmentStatusChanged)
}

func TestProducer_PublishOrderCreated(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub, discard())
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	require.NoError(t, p.PublishOrderCreated(ctx, sampleOrder()))

	require.Len(t, pub.sent, 1)
	got := pub.sent[0]
	assert.Equal(t, TopicOrderCreated, got.topic)
	assert.Equal(t, "o-1", got.event.AggregateID)
	assert.Equal(t, AggregateTypeOrder, got.event.AggregateType)
	assert.Equal(t, SourceStorefront, got.event.Source)
	assert.Equal(t, "corr-1", got.event.CorrelationID)

	var data OrderCreatedData
	require.NoError(t, got.event.UnmarshalData(&data))
	assert.Equal(t, int64(10849), data.Total)
	assert.Equal(t, "108.49", data.TotalDisplay)
	assert.Equal(t, "0.085", data.TaxRate)
	assert.Equal(t, "pending", data.Status)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "sku1", data.Items[0].ProductID)
}

func TestProducer_PublishOrderStatusChanged(t *testing.T) {
	pub := &fakePublisher{}
	o := sampleOrder()
	o.Status = domain.OrderStatusShipped

	require.NoError(t, NewProducer(pub, discard()).PublishOrderStatusChanged(context.Background(), o, domain.OrderStatusConfirmed))

	var data OrderStatusChangedData
	require.NoError(t, pub.sent[0].event.UnmarshalData(&data))
	assert.Equal(t, OrderStatusChangedData{OrderID: "o-1", UserID: "user-1", OldStatus: "confirmed", NewStatus: "shipped"}, data)
	assert.Empty(t, pub.sent[0].event.CorrelationID)
}

func TestProducer_PublishCartCleared(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, NewProducer(pub, discard()).PublishCartCleared(context.Background(), "user-1", CartClearedByCheckout, "o-1"))

	got := pub.sent[0]
	assert.Equal(t, TopicCartCleared, got.topic)
	assert.Equal(t, "user-1", got.event.AggregateID)

	var data CartClearedData
	require.NoError(t, got.event.UnmarshalData(&data))
	assert.Equal(t, "checkout", data.Reason)
	assert.Equal(t, "o-1", data.OrderID)
}

func TestProducer_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	err := NewProducer(pub, discard()).PublishCartCleared(context.Background(), "user-1", CartClearedByUser, "")
	assert.ErrorContains(t, err, "publish storefront.cart.cleared event")
	assert.ErrorContains(t, err, "broker down")
}
