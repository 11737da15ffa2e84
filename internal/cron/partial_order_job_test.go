package cron

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/farmfresh-backend/pkg/db/models"
	"github.com/angelmondragon/farmfresh-backend/pkg/enums"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
	"github.com/angelmondragon/farmfresh-backend/pkg/metrics"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type stubPartialReader struct {
	orders []models.Order
	cutoff time.Time
	err    error
}

func (s *stubPartialReader) FindOrdersWithoutItems(_ context.Context, createdBefore time.Time, _ int) ([]models.Order, error) {
	s.cutoff = createdBefore
	return s.orders, s.err
}

type recordingEmitter struct {
	events []outbox.DomainEvent
	failOn uuid.UUID
}

func (r *recordingEmitter) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	if event.AggregateID == r.failOn {
		return errors.New("insert failed")
	}
	r.events = append(r.events, event)
	return nil
}

type stubExistence struct {
	existing map[uuid.UUID]bool
}

func (s stubExistence) Exists(_ context.Context, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, id uuid.UUID) (bool, error) {
	if eventType != enums.EventOrderPartialDetected || aggregateType != enums.AggregateOrder {
		return false, errors.New("unexpected lookup")
	}
	return s.existing[id], nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newPartialOrderJob(t *testing.T, reader partialOrderReader, emitter outboxEmitter, existing map[uuid.UUID]bool, m *metrics.CheckoutMetrics) *partialOrderJob {
	t.Helper()
	jobIface, err := NewPartialOrderJob(PartialOrderJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         passthroughTx{},
		Orders:     reader,
		Outbox:     emitter,
		OutboxRepo: stubExistence{existing: existing},
		Metrics:    m,
	})
	if err != nil {
		t.Fatalf("NewPartialOrderJob: %v", err)
	}
	job, ok := jobIface.(*partialOrderJob)
	if !ok {
		t.Fatalf("expected partialOrderJob, got %T", jobIface)
	}
	return job
}

func TestPartialOrderJobFlagsEachOrderOnce(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	fresh := models.Order{ID: uuid.New(), UserID: uuid.New(), ExternalSessionID: "cs_1", CreatedAt: now.Add(-time.Hour)}
	known := models.Order{ID: uuid.New(), UserID: uuid.New(), ExternalSessionID: "cs_2", CreatedAt: now.Add(-2 * time.Hour)}
	reader := &stubPartialReader{orders: []models.Order{fresh, known}}
	emitter := &recordingEmitter{}
	reg := prometheus.NewRegistry()
	m := metrics.NewCheckoutMetrics(reg)

	job := newPartialOrderJob(t, reader, emitter, map[uuid.UUID]bool{known.ID: true}, m)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reader.cutoff.Equal(now.Add(-defaultPartialOrderGrace)) {
		t.Fatalf("unexpected cutoff %s", reader.cutoff)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected one new event, got %d", len(emitter.events))
	}
	event := emitter.events[0]
	if event.EventType != enums.EventOrderPartialDetected || event.AggregateID != fresh.ID {
		t.Fatalf("unexpected event %+v", event)
	}
	data, ok := event.Data.(payloads.OrderPartialDetectedEvent)
	if !ok || data.ExternalSessionID != "cs_1" || !data.DetectedAt.Equal(now) {
		t.Fatalf("unexpected payload %+v", event.Data)
	}
	if got := partialGauge(t, reg); got != 2 {
		t.Fatalf("expected partial gauge 2, got %v", got)
	}
}

func partialGauge(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "farmfresh_orders_partial" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("partial orders gauge not registered")
	return 0
}

func TestPartialOrderJobAggregatesErrors(t *testing.T) {
	a := models.Order{ID: uuid.New()}
	b := models.Order{ID: uuid.New()}
	c := models.Order{ID: uuid.New()}
	emitter := &recordingEmitter{failOn: b.ID}
	job := newPartialOrderJob(t, &stubPartialReader{orders: []models.Order{a, b, c}}, emitter, nil, nil)

	err := job.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), b.ID.String()) {
		t.Fatalf("expected aggregated error naming %s, got %v", b.ID, err)
	}
	if len(emitter.events) != 2 {
		t.Fatalf("failure on one order must not stop the others, got %d events", len(emitter.events))
	}
}

func TestPartialOrderJobQueryError(t *testing.T) {
	job := newPartialOrderJob(t, &stubPartialReader{err: errors.New("db down")}, &recordingEmitter{}, nil, nil)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPartialOrderPayloadShape(t *testing.T) {
	raw, err := json.Marshal(payloads.OrderPartialDetectedEvent{OrderID: uuid.New(), ExternalSessionID: "cs_9"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"external_session_id":"cs_9"`) {
		t.Fatalf("unexpected payload %s", raw)
	}
}
