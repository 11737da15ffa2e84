package enums

// OutboxAggregateType is the aggregate_type column: which entity the event
// is about.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateProduct OutboxAggregateType = "product"
)

var aggregateTypes = set[OutboxAggregateType]{AggregateOrder, AggregateProduct}

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

// OutboxEventType is the event_type column and selects the payload schema.
type OutboxEventType string

const (
	EventOrderReconciled      OutboxEventType = "order_reconciled"
	EventOrderPartialDetected OutboxEventType = "order_partial_detected"
	EventProductListed        OutboxEventType = "product_listed"
)

var eventTypes = set[OutboxEventType]{EventOrderReconciled, EventOrderPartialDetected, EventProductListed}

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

// OutboxDeadLetterReason records why the publisher gave up on a row.
type OutboxDeadLetterReason string

const (
	DeadLetterMaxAttempts  OutboxDeadLetterReason = "max_attempts"
	DeadLetterNonRetryable OutboxDeadLetterReason = "non_retryable"
)
