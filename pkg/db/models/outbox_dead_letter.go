package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmfresh-backend/pkg/enums"
)

// OutboxDeadLetter keeps outbox rows the publisher gave up on.
type OutboxDeadLetter struct {
	ID            uuid.UUID                    `gorm:"column:id;type:uuid;primaryKey"`
	EventID       uuid.UUID                    `gorm:"column:event_id;type:uuid;not null"`
	EventType     enums.OutboxEventType        `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType    `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                    `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage              `gorm:"column:payload;type:jsonb;not null"`
	Reason        enums.OutboxDeadLetterReason `gorm:"column:reason;not null"`
	ErrorMessage  *string                      `gorm:"column:error_message"`
	AttemptCount  int                          `gorm:"column:attempt_count;not null;default:0"`
	FailedAt      time.Time                    `gorm:"column:failed_at;not null"`
}

func (OutboxDeadLetter) TableName() string { return "outbox_dead_letters" }

func (d *OutboxDeadLetter) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
