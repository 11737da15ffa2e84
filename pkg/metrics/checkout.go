package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reconciliation outcomes.
const (
	OutcomeReconciled        = "reconciled"
	OutcomeAlreadyReconciled = "already_reconciled"
	OutcomePartial           = "partial"
	OutcomeFailed            = "failed"
)

// CheckoutMetrics covers session creation and order reconciliation.
type CheckoutMetrics struct {
	sessions        *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	partialOrders   prometheus.Gauge
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "sessions_total",
		Help:      "Checkout sessions requested from the payment provider.",
	}, []string{"result"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "reconciliations_total",
		Help:      "Reconciliation attempts by outcome.",
	}, []string{"outcome"})
	partialOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "partial",
		Help:      "Orders without items found by the last audit.",
	})
	reg.MustRegister(sessions, reconciliations, partialOrders)
	return &CheckoutMetrics{
		sessions:        sessions,
		reconciliations: reconciliations,
		partialOrders:   partialOrders,
	}
}

// SessionCreated counts a session request; ok=false records a provider failure.
func (m *CheckoutMetrics) SessionCreated(ok bool) {
	if m == nil || m.sessions == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.sessions.WithLabelValues(result).Inc()
}

func (m *CheckoutMetrics) Reconciled(outcome string) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CheckoutMetrics) SetPartialOrders(n int) {
	if m == nil || m.partialOrders == nil {
		return
	}
	m.partialOrders.Set(float64(n))
}
