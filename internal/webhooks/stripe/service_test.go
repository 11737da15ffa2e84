package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/angelmondragon/farmfresh-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/farmfresh-backend/pkg/redis"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v84"
)

type stubReconciler struct {
	calls []orders.ReconcileInput
	err   error
}

func (s *stubReconciler) Reconcile(_ context.Context, in orders.ReconcileInput) (*orders.ReconcileResult, error) {
	s.calls = append(s.calls, in)
	if s.err != nil {
		return nil, s.err
	}
	return &orders.ReconcileResult{Order: orders.OrderDTO{ID: uuid.New()}}, nil
}

func sessionEvent(t *testing.T, eventType stripe.EventType, session stripe.CheckoutSession) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return &stripe.Event{ID: "evt_123", Type: eventType, Data: &stripe.EventData{Raw: raw}}
}

func newTestService(t *testing.T, rec *stubReconciler) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Reconciler: rec})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	return svc
}

func TestHandleCheckoutCompletedReconciles(t *testing.T) {
	rec := &stubReconciler{}
	svc := newTestService(t, rec)
	userID := uuid.New()

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{
		ID:                "cs_test_1",
		ClientReferenceID: userID.String(),
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected one reconcile call, got %d", len(rec.calls))
	}
	call := rec.calls[0]
	if call.SessionID != "cs_test_1" || call.UserID != userID {
		t.Fatalf("unexpected reconcile input %+v", call)
	}
	if call.Actor == nil || call.Actor.UserID != userID {
		t.Fatalf("expected actor to carry the buyer")
	}
}

func TestHandleCheckoutCompletedSkipsUnpaid(t *testing.T) {
	rec := &stubReconciler{}
	svc := newTestService(t, rec)
	event := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{
		ID:                "cs_async",
		ClientReferenceID: uuid.NewString(),
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusUnpaid,
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("unpaid session must not reconcile")
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	rec := &stubReconciler{}
	svc := newTestService(t, rec)
	event := &stripe.Event{Type: stripe.EventTypeInvoicePaid, Data: &stripe.EventData{Raw: []byte(`{}`)}}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Fatalf("unrelated events must be ignored")
	}
}

func TestHandleEventErrors(t *testing.T) {
	svc := newTestService(t, &stubReconciler{})
	if err := svc.HandleEvent(context.Background(), nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for nil event, got %v", err)
	}

	bad := &stripe.Event{Type: stripe.EventTypeCheckoutSessionCompleted, Data: &stripe.EventData{Raw: []byte(`{`)}}
	if err := svc.HandleEvent(context.Background(), bad); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for broken payload, got %v", err)
	}

	noRef := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{
		ID:            "cs_noref",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
	})
	if err := svc.HandleEvent(context.Background(), noRef); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error without client reference, got %v", err)
	}
}

func TestHandleEventPropagatesStoreFailures(t *testing.T) {
	boom := pkgerrors.New(pkgerrors.CodeInternal, "persist order")
	svc := newTestService(t, &stubReconciler{err: boom})
	event := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{
		ID:                "cs_down",
		ClientReferenceID: uuid.NewString(),
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
	})
	if err := svc.HandleEvent(context.Background(), event); !errors.Is(err, boom) {
		t.Fatalf("expected reconcile failure to surface, got %v", err)
	}
}

func TestHandleEventAcksConflictsAndPartialOrders(t *testing.T) {
	for _, code := range []pkgerrors.Code{pkgerrors.CodeStateConflict, pkgerrors.CodePartialOrder} {
		rec := &stubReconciler{err: pkgerrors.New(code, "not finished")}
		svc := newTestService(t, rec)
		event := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{
			ID:                "cs_busy",
			ClientReferenceID: uuid.NewString(),
			PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
		})
		if err := svc.HandleEvent(context.Background(), event); err != nil {
			t.Fatalf("%s should be acknowledged so delivery does not loop, got %v", code, err)
		}
		if len(rec.calls) != 1 {
			t.Fatalf("%s: expected one reconcile attempt, got %d", code, len(rec.calls))
		}
	}
}

func TestHandleEventAcksEmptyCart(t *testing.T) {
	svc := newTestService(t, &stubReconciler{err: pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")})
	event := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, stripe.CheckoutSession{
		ID:                "cs_empty",
		ClientReferenceID: uuid.NewString(),
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
	})
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("empty cart should be acknowledged, got %v", err)
	}
}

func TestUserIDFromSessionMetadataFallback(t *testing.T) {
	userID := uuid.New()
	got, err := UserIDFromSession(&stripe.CheckoutSession{Metadata: map[string]string{"user_id": userID.String()}})
	if err != nil || got != userID {
		t.Fatalf("expected metadata user id, got %v (%v)", got, err)
	}
	if _, err := UserIDFromSession(&stripe.CheckoutSession{ClientReferenceID: "not-a-uuid"}); err == nil {
		t.Fatalf("expected invalid reference to fail")
	}
}

func TestIdempotencyGuardMarksOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = raw.Close() })
	manager, err := idempotency.NewManager(redis.Wrap(raw), time.Hour)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	guard, err := NewIdempotencyGuard(manager, Consumer)
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_123")
	if err != nil || seen {
		t.Fatalf("first delivery should be new: seen=%v err=%v", seen, err)
	}
	seen, _ = guard.CheckAndMark(ctx, "evt_123")
	if !seen {
		t.Fatalf("second delivery should be a duplicate")
	}
	if err := guard.Delete(ctx, "evt_123"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	seen, _ = guard.CheckAndMark(ctx, "evt_123")
	if seen {
		t.Fatalf("deleted marker should allow a retry")
	}
	if !mr.Exists("ff:idempotency:evt:stripe-webhook:evt_123") {
		t.Fatalf("expected namespaced redis key, have %v", mr.Keys())
	}
}
