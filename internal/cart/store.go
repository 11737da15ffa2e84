package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/farmfresh-backend/pkg/redis"
	"github.com/google/uuid"
)

// Store persists cart snapshots per user.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) (Snapshot, error)
	Save(ctx context.Context, userID uuid.UUID, snapshot Snapshot) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type redisBackend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(userID string) string
}

// RedisStore keeps each snapshot as JSON under ff:cart:<userId>.
type RedisStore struct {
	client redisBackend
	ttl    time.Duration
}

func NewRedisStore(client redisBackend, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Load returns an empty snapshot when the user has no stored cart.
func (s *RedisStore) Load(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(userID.String()))
	if redis.IsNil(err) {
		return Snapshot{Lines: []Line{}}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load cart: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode cart: %w", err)
	}
	if snapshot.Lines == nil {
		snapshot.Lines = []Line{}
	}
	return snapshot, nil
}

func (s *RedisStore) Save(ctx context.Context, userID uuid.UUID, snapshot Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, s.client.CartKey(userID.String()), payload, s.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, s.client.CartKey(userID.String())); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
