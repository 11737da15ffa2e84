package outbox

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ActorRef is the shopper, farmer or system process that caused an event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email,omitempty"`
}

// PayloadEnvelope wraps every event body written to outbox_events. Consumers
// decode Data according to the row's event_type.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Attributes returns the envelope metadata that travels as broker message
// attributes so subscribers can filter without decoding the body.
func (e PayloadEnvelope) Attributes() map[string]string {
	attrs := map[string]string{}
	if e.EventID != "" {
		attrs["event_id"] = e.EventID
	}
	if e.Version > 0 {
		attrs["event_version"] = strconv.Itoa(e.Version)
	}
	if !e.OccurredAt.IsZero() {
		attrs["occurred_at"] = e.OccurredAt.UTC().Format(time.RFC3339Nano)
	}
	if e.Actor != nil && e.Actor.UserID != uuid.Nil {
		attrs["actor_id"] = e.Actor.UserID.String()
	}
	return attrs
}
