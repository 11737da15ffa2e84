package routes

import (
	"context"
	"time"

	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/farmfresh-backend/internal/checkout"
	"github.com/angelmondragon/farmfresh-backend/internal/orders"
	stripewebhook "github.com/angelmondragon/farmfresh-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/farmfresh-backend/pkg/redis"
	"github.com/angelmondragon/farmfresh-backend/pkg/stripe"
)

// The adapters below keep typed nil pointers out of interface values so the
// controllers' nil checks see a real nil.

type startService interface {
	Start(ctx context.Context, input checkout.StartInput) (*checkout.Session, error)
	StartForUser(ctx context.Context, userID uuid.UUID, origin string) (*checkout.Session, error)
}

type reconcileService interface {
	Reconcile(ctx context.Context, in orders.ReconcileInput) (*orders.ReconcileResult, error)
}

type fixedWindowStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type webhookHandler interface {
	HandleEvent(ctx context.Context, event *stripego.Event) error
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type eventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (stripego.Event, error)
}

func checkoutStarter(i *checkout.Initiator) startService {
	if i == nil {
		return nil
	}
	return i
}

func reconciler(r *orders.Reconciler) reconcileService {
	if r == nil {
		return nil
	}
	return r
}

func rateLimitStore(c *redis.Client) fixedWindowStore {
	if c == nil {
		return nil
	}
	return c
}

func webhookService(s *stripewebhook.Service) webhookHandler {
	if s == nil {
		return nil
	}
	return s
}

func webhookGuard(g *stripewebhook.IdempotencyGuard) eventGuard {
	if g == nil {
		return nil
	}
	return g
}

func webhookVerifier(c *stripe.Client) eventVerifier {
	if c == nil {
		return nil
	}
	return c
}
