package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// sweepInterval bounds how often idle sessions are looked for.
const sweepInterval = time.Minute

type session struct {
	mu       sync.Mutex
	store    *cart.Store
	lastUsed time.Time
}

// Sessions keeps one live cart.Store per user, backed by snapshots in the
// session repository. A user's cart is loaded on first access and every
// mutation is written back before it is acknowledged. Sessions idle for
// longer than the cart TTL are dropped from memory.
type Sessions struct {
	mu        sync.Mutex
	sessions  map[string]*session
	lastSweep time.Time

	repo   repository.CartSessionRepository
	idle   time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewSessions creates a registry over repo.
func NewSessions(repo repository.CartSessionRepository, idle time.Duration, logger *slog.Logger) *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		repo:     repo,
		idle:     idle,
		now:      time.Now,
		logger:   logger,
	}
}

// acquire returns the user's session locked. The caller must unlock it.
func (s *Sessions) acquire(ctx context.Context, userID string) (*session, error) {
	now := s.now()

	s.mu.Lock()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweepLocked(now)
	}
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{}
		s.sessions[userID] = sess
	}
	sess.lastUsed = now
	s.mu.Unlock()

	sess.mu.Lock()
	if sess.store == nil {
		store, err := s.load(ctx, userID)
		if err != nil {
			sess.mu.Unlock()
			return nil, err
		}
		sess.store = store
	}
	return sess, nil
}

func (s *Sessions) sweepLocked(now time.Time) {
	s.lastSweep = now
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.idle {
			delete(s.sessions, id)
		}
	}
}

// load restores the cart from its snapshot. A missing snapshot yields an
// empty cart; an unreadable one is deleted with a warning and also yields an
// empty cart.
func (s *Sessions) load(ctx context.Context, userID string) (*cart.Store, error) {
	items, err := s.repo.Get(ctx, userID)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound):
		return cart.New(), nil
	case errors.Is(err, repository.ErrCorruptSnapshot):
		s.discard(ctx, userID, err)
		return cart.New(), nil
	default:
		return nil, fmt.Errorf("load cart session: %w", err)
	}

	store, err := cart.Restore(items)
	if err != nil {
		s.discard(ctx, userID, err)
		return cart.New(), nil
	}
	return store, nil
}

func (s *Sessions) discard(ctx context.Context, userID string, cause error) {
	s.logger.WarnContext(ctx, "discarding invalid cart snapshot",
		slog.String("user_id", userID),
		slog.String("error", cause.Error()),
	)
	if err := s.repo.Delete(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete invalid cart snapshot",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Sessions) persist(ctx context.Context, userID string, items []domain.LineItem) error {
	if len(items) == 0 {
		if err := s.repo.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete cart session: %w", err)
		}
		return nil
	}
	if err := s.repo.Save(ctx, userID, items); err != nil {
		return fmt.Errorf("save cart session: %w", err)
	}
	return nil
}

// View returns a snapshot of the user's cart.
func (s *Sessions) View(ctx context.Context, userID string) ([]domain.LineItem, error) {
	sess, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return sess.store.Snapshot(), nil
}

// Update applies fn to the user's cart and persists the result. If fn fails
// nothing is written. If the write fails the live cart is rolled back, so
// memory never runs ahead of storage.
func (s *Sessions) Update(ctx context.Context, userID string, fn func(*cart.Store) error) ([]domain.LineItem, error) {
	sess, err := s.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	before := sess.store.Snapshot()
	if err := fn(sess.store); err != nil {
		return nil, err
	}
	after := sess.store.Snapshot()

	if err := s.persist(ctx, userID, after); err != nil {
		if restored, rerr := cart.Restore(before); rerr == nil {
			sess.store = restored
		}
		return nil, err
	}
	return after, nil
}

// Drain hands the cart contents to fn while holding the session, then
// empties the cart if fn succeeds. A failed fn leaves the cart untouched.
// Failing to delete the stored snapshot afterwards is logged, not returned:
// by then fn has committed its work.
func (s *Sessions) Drain(ctx context.Context, userID string, fn func(items []domain.LineItem) error) error {
	sess, err := s.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()

	if err := fn(sess.store.Snapshot()); err != nil {
		return err
	}

	sess.store.Clear()
	if err := s.persist(ctx, userID, nil); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete drained cart session",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Len reports how many sessions are held in memory.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
