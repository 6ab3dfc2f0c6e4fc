// Package redis stores cart session snapshots in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const keyPrefix = "cart:"

// snapshotVersion is bumped when the stored layout changes.
const snapshotVersion = 1

type snapshot struct {
	Version int               `json:"version"`
	UserID  string            `json:"user_id"`
	Items   []domain.LineItem `json:"items"`
	SavedAt time.Time         `json:"saved_at"`
}

// CartSessionRepository implements repository.CartSessionRepository using Redis.
type CartSessionRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

// NewCartSessionRepository creates a repository whose snapshots expire after
// ttl without a save.
func NewCartSessionRepository(client redis.UniversalClient, ttl time.Duration) *CartSessionRepository {
	return &CartSessionRepository{client: client, ttl: ttl, now: time.Now}
}

func key(userID string) string {
	return keyPrefix + userID
}

// Get loads the user's snapshot.
func (r *CartSessionRepository) Get(ctx context.Context, userID string) ([]domain.LineItem, error) {
	data, err := r.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: unmarshal cart: %w", repository.ErrCorruptSnapshot, err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", repository.ErrCorruptSnapshot, s.Version)
	}
	return domain.CloneItems(s.Items), nil
}

// Save writes the snapshot with a fresh TTL.
func (r *CartSessionRepository) Save(ctx context.Context, userID string, items []domain.LineItem) error {
	data, err := json.Marshal(snapshot{
		Version: snapshotVersion,
		UserID:  userID,
		Items:   domain.CloneItems(items),
		SavedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := r.client.Set(ctx, key(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

// Delete removes the snapshot.
func (r *CartSessionRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}

// Ping checks the connection, for readiness probes.
func (r *CartSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
