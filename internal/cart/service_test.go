package cart

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryStore struct {
	carts   map[uuid.UUID]Snapshot
	loadErr error
	saves   int
	deletes int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{carts: map[uuid.UUID]Snapshot{}}
}

func (s *memoryStore) Load(_ context.Context, userID uuid.UUID) (Snapshot, error) {
	if s.loadErr != nil {
		return Snapshot{}, s.loadErr
	}
	return s.carts[userID], nil
}

func (s *memoryStore) Save(_ context.Context, userID uuid.UUID, snapshot Snapshot) error {
	s.saves++
	s.carts[userID] = snapshot
	return nil
}

func (s *memoryStore) Delete(_ context.Context, userID uuid.UUID) error {
	s.deletes++
	delete(s.carts, userID)
	return nil
}

func newTestService(t *testing.T, store Store) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Store: store, DeliveryFee: decimal.NewFromInt(50)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestServiceAddItemPersistsAndRenders(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store)
	userID := uuid.New()

	view, err := svc.AddItem(context.Background(), userID, tomato(2))
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if !view.Subtotal.Equal(decimal.NewFromInt(640)) {
		t.Fatalf("unexpected subtotal %s", view.Subtotal)
	}
	if !view.Total.Equal(decimal.NewFromInt(690)) {
		t.Fatalf("expected total 690 with delivery fee, got %s", view.Total)
	}
	if view.ItemCount != 2 {
		t.Fatalf("unexpected item count %d", view.ItemCount)
	}
	if store.saves != 1 || len(store.carts[userID].Lines) != 1 {
		t.Fatalf("expected cart persisted once")
	}
}

func TestServiceEmptyCartHasNoDeliveryFee(t *testing.T) {
	svc := newTestService(t, newMemoryStore())
	view, err := svc.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !view.Total.IsZero() || len(view.Lines) != 0 {
		t.Fatalf("expected empty zero-total view, got %+v", view)
	}
}

func TestServiceRejectsInvalidAddWithoutSaving(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store)
	_, err := svc.AddItem(context.Background(), uuid.New(), tomato(-2))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("invalid mutation must not be saved")
	}
}

func TestServiceRequiresUser(t *testing.T) {
	svc := newTestService(t, newMemoryStore())
	if _, err := svc.Get(context.Background(), uuid.Nil); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := svc.Clear(context.Background(), uuid.Nil); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceStoreFailureIsDependencyError(t *testing.T) {
	store := newMemoryStore()
	store.loadErr = errors.New("redis down")
	svc := newTestService(t, store)
	if _, err := svc.Get(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestServiceReplaceAndClear(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store)
	userID := uuid.New()

	view, err := svc.Replace(context.Background(), userID, Snapshot{Lines: []Line{tomato(1), tomato(1)}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 2 {
		t.Fatalf("expected merged replacement, got %+v", view.Lines)
	}
	if _, err := svc.Replace(context.Background(), userID, Snapshot{Lines: []Line{{ProductID: "x"}}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unpriced line, got %v", err)
	}
	blank := tomato(1)
	blank.ProductID = "   "
	if _, err := svc.Replace(context.Background(), userID, Snapshot{Lines: []Line{blank}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for a blank product id, got %v", err)
	}

	if _, err := svc.UpdateQuantity(context.Background(), userID, "p-tomato", 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	if store.carts[userID].Lines[0].Quantity != 2 {
		t.Fatalf("update to zero must be ignored")
	}

	if err := svc.Clear(context.Background(), userID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if store.deletes != 1 {
		t.Fatalf("expected one delete, got %d", store.deletes)
	}
}
