package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/farmfresh-backend/pkg/redis"
	"github.com/google/uuid"
)

const (
	claimValue       = "reconciling"
	reconciledPrefix = "reconciled:"
)

type ledgerStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, expected string) (bool, error)
	ReconcileKey(token string) string
}

// Ledger records which success tokens were processed. A token is either
// claimed by a running reconciliation or marked reconciled with its order.
type Ledger struct {
	store    ledgerStore
	claimTTL time.Duration
	doneTTL  time.Duration
}

func NewLedger(store ledgerStore, claimTTL, doneTTL time.Duration) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	if claimTTL <= 0 {
		return nil, errors.New("claim ttl must be positive")
	}
	return &Ledger{store: store, claimTTL: claimTTL, doneTTL: doneTTL}, nil
}

// Lookup returns the order recorded for token, if any.
func (l *Ledger) Lookup(ctx context.Context, token string) (uuid.UUID, bool, error) {
	value, err := l.store.Get(ctx, l.store.ReconcileKey(token))
	if redis.IsNil(err) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	if !strings.HasPrefix(value, reconciledPrefix) {
		return uuid.Nil, false, nil
	}
	orderID, err := uuid.Parse(strings.TrimPrefix(value, reconciledPrefix))
	if err != nil {
		return uuid.Nil, false, nil
	}
	return orderID, true, nil
}

// Claim reserves token for the caller. It reports false when another run
// holds the claim or the token is already reconciled.
func (l *Ledger) Claim(ctx context.Context, token string) (bool, error) {
	return l.store.SetNX(ctx, l.store.ReconcileKey(token), claimValue, l.claimTTL)
}

// MarkReconciled overwrites the claim with the order id.
func (l *Ledger) MarkReconciled(ctx context.Context, token string, orderID uuid.UUID) error {
	return l.store.Set(ctx, l.store.ReconcileKey(token), reconciledPrefix+orderID.String(), l.doneTTL)
}

// Release drops a claim that did not finish. A reconciled marker is kept.
func (l *Ledger) Release(ctx context.Context, token string) error {
	_, err := l.store.DelIfValue(ctx, l.store.ReconcileKey(token), claimValue)
	return err
}
