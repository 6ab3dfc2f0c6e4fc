package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func fillCart(t *testing.T, env *testEnv, userID string) {
	t.Helper()
	ctx := context.Background()
	_, err := env.carts.AddItem(ctx, userID, AddItemInput{ProductID: "sku1", Quantity: 1})
	require.NoError(t, err)
	_, err = env.carts.AddItem(ctx, userID, AddItemInput{ProductID: "sku2", Quantity: 2})
	require.NoError(t, err)
}

func TestCheckoutService_Checkout_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fillCart(t, env, "user-1")

	env.orderRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.OrderRecord")).Return(nil).Once()

	o, err := env.checkout.Checkout(ctx, "user-1", CheckoutInput{ShippingAddress: "  1 Main St  "})
	require.NoError(t, err)

	assert.Equal(t, testOrderID, o.ID)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, "1 Main St", o.ShippingAddress)
	assert.Len(t, o.Items, 2)
	assert.Equal(t, int64(14997), o.Subtotal)
	assert.Equal(t, int64(16272), o.Total)
	assert.Equal(t, fixedNow, o.CreatedAt)

	view, err := env.carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	_, stored := env.sessionRepo.stored("user-1")
	assert.False(t, stored)

	assert.Equal(t, 1, env.publisher.count(event.TopicOrderCreated))
	assert.Equal(t, 1, env.publisher.count(event.TopicCartCleared))
}

func TestCheckoutService_Checkout_EmptyCart(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.checkout.Checkout(context.Background(), "user-1", CheckoutInput{ShippingAddress: "1 Main St"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	env.orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckoutService_Checkout_BlankAddressKeepsCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fillCart(t, env, "user-1")

	_, err := env.checkout.Checkout(ctx, "user-1", CheckoutInput{ShippingAddress: "   "})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	view, err := env.carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestCheckoutService_Checkout_PersistFailureKeepsCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fillCart(t, env, "user-1")

	env.orderRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()

	o, err := env.checkout.Checkout(ctx, "user-1", CheckoutInput{ShippingAddress: "1 Main St"})
	require.Error(t, err)
	assert.Nil(t, o)
	assert.Contains(t, err.Error(), "persist order")

	view, err := env.carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, 0, env.publisher.count(event.TopicOrderCreated))
}

func TestCheckoutService_Checkout_PublishFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fillCart(t, env, "user-1")
	env.publisher.err = errors.New("kafka down")

	env.orderRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	o, err := env.checkout.Checkout(ctx, "user-1", CheckoutInput{ShippingAddress: "1 Main St"})
	require.NoError(t, err)
	assert.Equal(t, testOrderID, o.ID)

	view, err := env.carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestCheckoutService_Checkout_MissingUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.checkout.Checkout(context.Background(), "", CheckoutInput{ShippingAddress: "1 Main St"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
