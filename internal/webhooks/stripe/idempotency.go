package stripewebhook

import (
	"context"
	"errors"

	"github.com/angelmondragon/farmfresh-backend/pkg/outbox/idempotency"
)

// Consumer names the processed-event namespace for Stripe deliveries.
const Consumer = "stripe-webhook"

// IdempotencyGuard remembers which Stripe event ids were handled.
type IdempotencyGuard struct {
	manager  *idempotency.Manager
	consumer string
}

func NewIdempotencyGuard(manager *idempotency.Manager, consumer string) (*IdempotencyGuard, error) {
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if consumer == "" {
		return nil, errors.New("consumer is required")
	}
	return &IdempotencyGuard{manager: manager, consumer: consumer}, nil
}

// CheckAndMark reports true when eventID was already seen.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	first, err := g.manager.MarkProcessed(ctx, g.consumer, eventID)
	if err != nil {
		return false, err
	}
	return !first, nil
}

// Delete releases the mark after a failed delivery.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	return g.manager.Forget(ctx, g.consumer, eventID)
}
