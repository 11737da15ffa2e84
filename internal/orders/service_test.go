package orders

import (
	"context"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrdersService(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewRepository(setupOrdersTestDB(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestServiceGetOrderHidesOtherUsers(t *testing.T) {
	svc, repo := newTestOrdersService(t)
	owner := uuid.New()
	order := seedOrder(t, repo, owner, "cs_owned", time.Now().UTC(), item("Tomatoes", "Ravi Farms", 320, 2))

	got, err := svc.GetOrder(context.Background(), owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].LineTotal.Equal(decimal.NewFromInt(640)))

	_, err = svc.GetOrder(context.Background(), uuid.New(), order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = svc.GetOrder(context.Background(), owner, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = svc.GetOrder(context.Background(), uuid.Nil, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
}

func TestServiceListUserOrders(t *testing.T) {
	svc, repo := newTestOrdersService(t)
	userID := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, session := range []string{"cs_1", "cs_2", "cs_3"} {
		seedOrder(t, repo, userID, session, base.Add(time.Duration(i)*time.Minute), item("Rice", "Green Acres", 60, 1))
	}

	page, err := svc.ListUserOrders(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "cs_3", page.Items[0].ExternalSessionID)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.ListUserOrders(context.Background(), userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, "cs_1", next.Items[0].ExternalSessionID)
	assert.Empty(t, next.NextCursor)

	_, err = svc.ListUserOrders(context.Background(), userID, pagination.Params{Cursor: "not-a-cursor"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestServiceSellerViews(t *testing.T) {
	svc, repo := newTestOrdersService(t)
	now := time.Now().UTC()
	seedOrder(t, repo, uuid.New(), "cs_a", now, item("Tomatoes", "Ravi Farms", 320, 2), item("Rice", "Green Acres", 60, 1))

	items, err := svc.ListSellerOrderItems(context.Background(), " Ravi Farms ", pagination.Params{})
	require.NoError(t, err)
	require.Len(t, items.Items, 1)
	assert.Equal(t, "Tomatoes", items.Items[0].ProductName)

	stats, err := svc.SellerStats(context.Background(), "Ravi Farms")
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.OrderCount)
	assert.True(t, stats.Revenue.Equal(decimal.NewFromInt(640)))

	_, err = svc.SellerStats(context.Background(), "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.ListSellerOrderItems(context.Background(), "", pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
