package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

const fulfilledOrderID = "0195a1b2-3c4d-7e5f-8a9b-0c1d2e3f4a5b"

type mockUpdater struct {
	mock.Mock
}

func (m *mockUpdater) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.OrderRecord, error) {
	args := m.Called(ctx, orderID, status)
	if o := args.Get(0); o != nil {
		return o.(*domain.OrderRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func fulfillmentEvent(t *testing.T, data any) *pkgkafka.Event {
	t.Helper()
	ev, err := pkgkafka.NewEvent(TopicFulfillmentStatusChanged, fulfilledOrderID, AggregateTypeOrder, "fulfillment", data)
	require.NoError(t, err)
	return ev
}

func TestConsumer_AppliesStatus(t *testing.T) {
	updater := new(mockUpdater)
	o := sampleOrder()
	o.Status = domain.OrderStatusShipped
	updater.On("UpdateStatus", mock.Anything, fulfilledOrderID, domain.OrderStatusShipped).Return(o, nil)

	c := NewConsumer(updater, discard())
	err := c.HandleFulfillmentStatusChanged(context.Background(),
		fulfillmentEvent(t, FulfillmentStatusData{OrderID: fulfilledOrderID, Status: "shipped"}))

	require.NoError(t, err)
	updater.AssertExpectations(t)
}

func TestConsumer_PermanentFailuresAreAcknowledged(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unknown order", apperrors.NotFound("order", fulfilledOrderID)},
		{"rejected transition", apperrors.Conflict("cannot move delivered order")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updater := new(mockUpdater)
			updater.On("UpdateStatus", mock.Anything, fulfilledOrderID, domain.OrderStatusDelivered).Return(nil, tt.err)

			err := NewConsumer(updater, discard()).HandleFulfillmentStatusChanged(context.Background(),
				fulfillmentEvent(t, FulfillmentStatusData{OrderID: fulfilledOrderID, Status: "delivered"}))
			assert.NoError(t, err)
		})
	}
}

func TestConsumer_TransientFailureIsReturned(t *testing.T) {
	updater := new(mockUpdater)
	updater.On("UpdateStatus", mock.Anything, fulfilledOrderID, domain.OrderStatusConfirmed).Return(nil, errors.New("db down"))

	err := NewConsumer(updater, discard()).HandleFulfillmentStatusChanged(context.Background(),
		fulfillmentEvent(t, FulfillmentStatusData{OrderID: fulfilledOrderID, Status: "confirmed"}))
	assert.ErrorContains(t, err, "db down")
}

func TestConsumer_MalformedPayloads(t *testing.T) {
	updater := new(mockUpdater)
	c := NewConsumer(updater, discard())
	ctx := context.Background()

	assert.NoError(t, c.HandleFulfillmentStatusChanged(ctx, fulfillmentEvent(t, FulfillmentStatusData{Status: "shipped"})))
	assert.NoError(t, c.HandleFulfillmentStatusChanged(ctx, fulfillmentEvent(t, FulfillmentStatusData{OrderID: fulfilledOrderID, Status: "lost"})))
	assert.NoError(t, c.HandleFulfillmentStatusChanged(ctx, fulfillmentEvent(t, FulfillmentStatusData{OrderID: "o-1", Status: "shipped"})))

	bad := &pkgkafka.Event{EventType: TopicFulfillmentStatusChanged, Data: []byte(`"oops"`)}
	assert.Error(t, c.HandleFulfillmentStatusChanged(ctx, bad))

	updater.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}
