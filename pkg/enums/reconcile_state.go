package enums

// ReconcileState is the lifecycle of one reconciliation attempt.
type ReconcileState string

const (
	ReconcileStateIdle        ReconcileState = "idle"
	ReconcileStateReconciling ReconcileState = "reconciling"
	ReconcileStateReconciled  ReconcileState = "reconciled"
	ReconcileStateFailed      ReconcileState = "failed"
)

func (s ReconcileState) String() string {
	return string(s)
}

// Terminal reports whether no further transition is possible.
func (s ReconcileState) Terminal() bool {
	return s == ReconcileStateReconciled || s == ReconcileStateFailed
}
