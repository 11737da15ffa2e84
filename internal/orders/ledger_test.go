package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerClaimMarkAndLookup(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestRedis(t)
	ledger, err := NewLedger(client, time.Minute, 24*time.Hour)
	require.NoError(t, err)

	_, found, err := ledger.Lookup(ctx, "cs_1")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := ledger.Claim(ctx, "cs_1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("ff:reconcile:cs_1"))

	ok, err = ledger.Claim(ctx, "cs_1")
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")

	_, found, _ = ledger.Lookup(ctx, "cs_1")
	assert.False(t, found, "a claim is not a reconciled marker")

	orderID := uuid.New()
	require.NoError(t, ledger.MarkReconciled(ctx, "cs_1", orderID))
	got, found, err := ledger.Lookup(ctx, "cs_1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, orderID, got)
	assert.Equal(t, 24*time.Hour, mr.TTL("ff:reconcile:cs_1"))

	require.NoError(t, ledger.Release(ctx, "cs_1"))
	_, found, _ = ledger.Lookup(ctx, "cs_1")
	assert.True(t, found, "release must keep the reconciled marker")
}

func TestLedgerReleaseDropsClaim(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestRedis(t)
	ledger, err := NewLedger(client, time.Minute, time.Hour)
	require.NoError(t, err)

	ok, err := ledger.Claim(ctx, "cs_2")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, ledger.Release(ctx, "cs_2"))
	assert.False(t, mr.Exists("ff:reconcile:cs_2"))

	ok, err = ledger.Claim(ctx, "cs_2")
	require.NoError(t, err)
	assert.True(t, ok, "released token can be claimed again")
}

func TestNewLedgerValidation(t *testing.T) {
	client, _ := newTestRedis(t)
	_, err := NewLedger(nil, time.Minute, time.Hour)
	assert.Error(t, err)
	_, err = NewLedger(client, 0, time.Hour)
	assert.Error(t, err)
}
