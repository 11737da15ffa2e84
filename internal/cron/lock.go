package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 30 * time.Minute

// ErrLockLost reports that the lease expired or changed hands while held.
var ErrLockLost = errors.New("cron lock lost before release")

// Lock gives one worker instance exclusive use of a cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// renewable locks can extend a held lease; the service refreshes them while
// a cycle runs.
type renewable interface {
	Refresh(ctx context.Context) error
	TTL() time.Duration
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, expected string) (bool, error)
	ExpireIfValue(ctx context.Context, key, expected string, ttl time.Duration) (bool, error)
}

// RedisLock is a SET NX lease whose value "<instance>:<uuid>" names the
// holder. Release and Refresh only touch the key while it still holds that
// value.
type RedisLock struct {
	client   redisStore
	key      string
	ttl      time.Duration
	instance string

	mu    sync.Mutex
	owner string
}

// NewRedisLock builds a lease on key. A non-positive ttl means 30 minutes.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case client == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl, instance: "cron"}, nil
}

// WithInstance sets the holder prefix written into the lease value.
func (l *RedisLock) WithInstance(id string) *RedisLock {
	if id != "" {
		l.instance = id
	}
	return l
}

func (l *RedisLock) TTL() time.Duration { return l.ttl }

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	candidate := fmt.Sprintf("%s:%s", l.instance, uuid.NewString())
	ok, err := l.client.SetNX(ctx, l.key, candidate, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.mu.Lock()
		l.owner = candidate
		l.mu.Unlock()
	}
	return ok, nil
}

// Refresh pushes the lease expiry out by one TTL. It returns ErrLockLost
// when the lease is gone or held by someone else.
func (l *RedisLock) Refresh(ctx context.Context) error {
	owner := l.currentOwner()
	if owner == "" {
		return ErrLockLost
	}
	extended, err := l.client.ExpireIfValue(ctx, l.key, owner, l.ttl)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", l.key, err)
	}
	if !extended {
		return ErrLockLost
	}
	return nil
}

// Release drops the lease if this instance still holds it. Releasing an
// expired lease returns ErrLockLost; releasing twice is a no-op.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	owner := l.owner
	l.owner = ""
	l.mu.Unlock()
	if owner == "" {
		return nil
	}

	deleted, err := l.client.DelIfValue(ctx, l.key, owner)
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if !deleted {
		return ErrLockLost
	}
	return nil
}

func (l *RedisLock) currentOwner() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner
}
