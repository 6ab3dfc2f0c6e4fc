package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/order"
	"github.com/utafrali/storefront/internal/pricing"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/pagination"
)

const (
	testOrderID    = "0195a1b2-3c4d-7e5f-8a9b-0c1d2e3f4a5b"
	missingOrderID = "0195a1b2-3c4d-7e5f-8a9b-ffffffffffff"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// Session storage
// ---------------------------------------------------------------------------

type memSessionRepo struct {
	mu      sync.Mutex
	carts   map[string][]domain.LineItem
	gets    int
	getErr  error
	saveErr error
	delErr  error
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{carts: make(map[string][]domain.LineItem)}
}

func (r *memSessionRepo) Get(_ context.Context, userID string) ([]domain.LineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	items, ok := r.carts[userID]
	if !ok {
		return nil, apperrors.NotFound("cart", userID)
	}
	return domain.CloneItems(items), nil
}

func (r *memSessionRepo) Save(_ context.Context, userID string, items []domain.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.carts[userID] = domain.CloneItems(items)
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.delErr != nil {
		return r.delErr
	}
	delete(r.carts, userID)
	return nil
}

func (r *memSessionRepo) stored(userID string) ([]domain.LineItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, ok := r.carts[userID]
	return items, ok
}

// ---------------------------------------------------------------------------
// Order repository
// ---------------------------------------------------------------------------

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, o *domain.OrderRecord) error {
	return m.Called(ctx, o).Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*domain.OrderRecord, error) {
	args := m.Called(ctx, id)
	if o, ok := args.Get(0).(*domain.OrderRecord); ok {
		return o, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepo) ListByUser(ctx context.Context, userID string, page pagination.Params) ([]domain.OrderRecord, int, error) {
	args := m.Called(ctx, userID, page)
	orders, _ := args.Get(0).([]domain.OrderRecord)
	return orders, args.Int(1), args.Error(2)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	return m.Called(ctx, id, from, to).Error(0)
}

// ---------------------------------------------------------------------------
// Event bus
// ---------------------------------------------------------------------------

type fakePublisher struct {
	mu     sync.Mutex
	events map[string][]*pkgkafka.Event
	err    error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{events: make(map[string][]*pkgkafka.Event)}
}

func (f *fakePublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events[topic] = append(f.events[topic], e)
	return nil
}

func (f *fakePublisher) count(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events[topic])
}

// ---------------------------------------------------------------------------
// Wiring
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	sessionRepo *memSessionRepo
	orderRepo   *mockOrderRepo
	publisher   *fakePublisher
	sessions    *Sessions
	carts       *CartService
	checkout    *CheckoutService
	orders      *OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	engine, err := pricing.NewEngine(decimal.RequireFromString("0.085"))
	require.NoError(t, err)

	env := &testEnv{
		sessionRepo: newMemSessionRepo(),
		orderRepo:   new(mockOrderRepo),
		publisher:   newFakePublisher(),
	}
	logger := discardLogger()
	producer := event.NewProducer(env.publisher, logger)
	assembler := order.NewAssembler(engine,
		order.WithClock(func() time.Time { return fixedNow }),
		order.WithIDGenerator(func() (string, error) { return testOrderID, nil }),
	)

	env.sessions = NewSessions(env.sessionRepo, time.Hour, logger)
	env.carts = NewCartService(env.sessions, catalog.NewMemoryCatalog(catalog.DemoProducts()...), engine, producer, logger, "usd")
	env.checkout = NewCheckoutService(env.sessions, assembler, env.orderRepo, producer, logger)
	env.orders = NewOrderService(env.orderRepo, producer, logger)

	t.Cleanup(func() { env.orderRepo.AssertExpectations(t) })
	return env
}
