package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/farmfresh-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

type reconciler interface {
	Reconcile(ctx context.Context, in orders.ReconcileInput) (*orders.ReconcileResult, error)
}

type ServiceParams struct {
	Reconciler reconciler
	Logger     *logger.Logger
}

// Service reconciles orders from Stripe checkout events, covering buyers
// who never return to the success page.
type Service struct {
	reconciler reconciler
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{reconciler: params.Reconciler, logg: logg}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		return s.reconcileSession(ctx, &session)
	default:
		return nil
	}
}

func (s *Service) reconcileSession(ctx context.Context, session *stripe.CheckoutSession) error {
	ctx = s.logg.WithSessionID(ctx, session.ID)
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		// async methods complete later with checkout.session.async_payment_succeeded
		s.logg.Info(s.logg.WithField(ctx, "payment_status", string(session.PaymentStatus)), "checkout session not paid yet")
		return nil
	}

	userID, err := UserIDFromSession(session)
	if err != nil {
		return err
	}

	result, err := s.reconciler.Reconcile(ctx, orders.ReconcileInput{
		SessionID: session.ID,
		UserID:    userID,
		Actor:     &outbox.ActorRef{UserID: userID},
	})
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
		// nothing left to turn into an order, e.g. the cart was emptied by hand
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout session skipped")
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), pkgerrors.IsCode(err, pkgerrors.CodePartialOrder):
		// acked: the buyer's reconcile call or the partial-order audit finishes these
		s.logg.Error(ctx, "checkout session left for manual reconciliation", err)
		return nil
	case err != nil:
		return err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":           result.Order.ID.String(),
		"already_reconciled": result.AlreadyReconciled,
	}), "checkout session reconciled from webhook")
	return nil
}

// UserIDFromSession reads the buyer from client_reference_id, falling back
// to the user_id metadata set when the session was created.
func UserIDFromSession(session *stripe.CheckoutSession) (uuid.UUID, error) {
	if session == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session required")
	}
	raw := strings.TrimSpace(session.ClientReferenceID)
	if raw == "" && session.Metadata != nil {
		raw = strings.TrimSpace(session.Metadata["user_id"])
	}
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no client reference")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client reference id")
	}
	return id, nil
}
