package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/farmfresh-backend/api/middleware"
	"github.com/angelmondragon/farmfresh-backend/api/responses"
	"github.com/angelmondragon/farmfresh-backend/api/validators"
	"github.com/angelmondragon/farmfresh-backend/internal/checkout"
	"github.com/angelmondragon/farmfresh-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox"
)

type sessionStarter interface {
	StartForUser(ctx context.Context, userID uuid.UUID, origin string) (*checkout.Session, error)
}

type orderReconciler interface {
	Reconcile(ctx context.Context, in orders.ReconcileInput) (*orders.ReconcileResult, error)
}

// Checkout opens a payment session for the caller's stored cart.
func Checkout(svc sessionStarter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, err := middleware.UserUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.StartForUser(r.Context(), userID, r.Header.Get("Origin"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

type reconcileRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// Reconcile redeems a success token into an order. A repeated call returns
// the existing order with alreadyReconciled set.
func Reconcile(svc orderReconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}
		userID, err := middleware.UserUUID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reconcileRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Reconcile(r.Context(), orders.ReconcileInput{
			SessionID: strings.TrimSpace(payload.SessionID),
			UserID:    userID,
			Actor:     &outbox.ActorRef{UserID: userID, Email: middleware.EmailFromContext(r.Context())},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.AlreadyReconciled {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
