package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCronJobMetricsRecordsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "partial-order-audit"
	m.ObserveRun(job, 250*time.Millisecond, nil)
	m.ObserveRun(job, time.Second, errors.New("db down"))
	m.ObserveRun(job, 100*time.Millisecond, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	cases := []struct {
		result string
		want   float64
	}{
		{"success", 2},
		{"failure", 1},
	}
	for _, tc := range cases {
		metric, err := sample(mfs, "farmfresh_cron_job_runs_total", map[string]string{"job": job, "result": tc.result})
		if err != nil {
			t.Fatalf("%s: %v", tc.result, err)
		}
		if got := metric.GetCounter().GetValue(); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.result, tc.want, got)
		}
	}

	hist, err := sample(mfs, "farmfresh_cron_job_duration_seconds", map[string]string{"job": job})
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if got := hist.GetHistogram().GetSampleCount(); got != 3 {
		t.Fatalf("expected 3 duration samples, got %d", got)
	}

	last, err := sample(mfs, "farmfresh_cron_job_last_success_timestamp_seconds", map[string]string{"job": job})
	if err != nil {
		t.Fatalf("last success: %v", err)
	}
	if last.GetGauge().GetValue() <= 0 {
		t.Fatal("expected last success timestamp to be set")
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	var cron *CronJobMetrics
	cron.ObserveRun("x", time.Second, nil)
	NewCronJobMetrics(nil).ObserveRun("x", time.Second, errors.New("x"))
	NewCheckoutMetrics(nil).Reconciled(OutcomeFailed)
	NewServerMetrics(nil, "api").Observe("/", 200, time.Millisecond)
	NewOutboxMetrics(nil).Event("order_reconciled", OutboxPublished)
}
