// Package analytics decouples telemetry from the operations that emit it.
// The API publishes events to a queue and a separate worker persists them,
// so a telemetry failure can never fail or roll back a user-facing
// operation.
package analytics

import (
	"context"
	"time"

	"stratus/internal/database"
)

// TaskRecordEvent is the asynq task type for one usage event.
const TaskRecordEvent = "analytics:record"

// Event is one usage record on its way to the analytics store.
type Event struct {
	UserID     int                `json:"user_id"`
	Type       database.EventType `json:"event_type"`
	FileID     int                `json:"file_id"`
	FileSize   int64              `json:"file_size"`
	FileType   string             `json:"file_type"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// Recorder accepts events for eventual persistence. Implementations must be
// safe for concurrent use. Callers treat Record errors as non-fatal.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}
