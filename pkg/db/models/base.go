package models

import (
	"time"

	"github.com/google/uuid"
)

// ensureID assigns a fresh uuid when the caller did not set one. Postgres
// also defaults ids, but sqlite has no generator.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// ensureCreated stamps zero timestamps in UTC so cursor comparisons behave
// the same on every driver.
func ensureCreated(ts ...*time.Time) {
	now := time.Now().UTC()
	for _, t := range ts {
		if t.IsZero() {
			*t = now
		}
	}
}
