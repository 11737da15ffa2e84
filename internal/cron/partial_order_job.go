package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/farmfresh-backend/pkg/db/models"
	"github.com/angelmondragon/farmfresh-backend/pkg/enums"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
	"github.com/angelmondragon/farmfresh-backend/pkg/metrics"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox/payloads"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	defaultPartialOrderGrace = 10 * time.Minute
	partialOrderBatchLimit   = 200
)

// PartialOrderJobParams configure the partial order audit.
type PartialOrderJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Orders     partialOrderReader
	Outbox     outboxEmitter
	OutboxRepo outboxExistenceChecker
	Metrics    *metrics.CheckoutMetrics
	Grace      time.Duration
}

// NewPartialOrderJob builds the job that flags order headers left without
// items by a failed sequential reconciliation.
func NewPartialOrderJob(params PartialOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.OutboxRepo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultPartialOrderGrace
	}
	return &partialOrderJob{
		logg:       params.Logger,
		db:         params.DB,
		orders:     params.Orders,
		outbox:     params.Outbox,
		outboxRepo: params.OutboxRepo,
		metrics:    params.Metrics,
		grace:      grace,
		now:        time.Now,
	}, nil
}

type partialOrderJob struct {
	logg       *logger.Logger
	db         txRunner
	orders     partialOrderReader
	outbox     outboxEmitter
	outboxRepo outboxExistenceChecker
	metrics    *metrics.CheckoutMetrics
	grace      time.Duration
	now        func() time.Time
}

func (j *partialOrderJob) Name() string { return "partial-order-audit" }

func (j *partialOrderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.grace)
	partial, err := j.orders.FindOrdersWithoutItems(ctx, cutoff, partialOrderBatchLimit)
	if err != nil {
		return fmt.Errorf("query partial orders: %w", err)
	}
	j.metrics.SetPartialOrders(len(partial))

	var errs error
	flagged := 0
	for _, order := range partial {
		emitted, err := j.flag(ctx, order, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if emitted {
			flagged++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"partial_count": len(partial),
		"flagged":       flagged,
	})
	if len(partial) > 0 {
		j.logg.Warn(logCtx, "orders without items detected")
	} else {
		j.logg.Info(logCtx, "partial order audit complete")
	}
	return errs
}

// flag queues order_partial_detected once per order.
func (j *partialOrderJob) flag(ctx context.Context, order models.Order, now time.Time) (bool, error) {
	exists, err := j.outboxRepo.Exists(ctx, enums.EventOrderPartialDetected, enums.AggregateOrder, order.ID)
	if err != nil {
		return false, fmt.Errorf("check partial event existence: %w", err)
	}
	if exists {
		return false, nil
	}
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPartialDetected,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: payloads.OrderPartialDetectedEvent{
				OrderID:           order.ID,
				UserID:            order.UserID,
				ExternalSessionID: order.ExternalSessionID,
				CreatedAt:         order.CreatedAt,
				DetectedAt:        now,
			},
		})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
