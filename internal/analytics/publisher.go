package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// QueueRecorder publishes events onto the asynq queue consumed by the worker.
type QueueRecorder struct {
	client *asynq.Client
}

// NewQueueRecorder creates a recorder backed by an asynq client.
func NewQueueRecorder(client *asynq.Client) *QueueRecorder {
	return &QueueRecorder{client: client}
}

// Record enqueues the event. The task is retried by the worker runtime on
// processing failure; enqueue failure surfaces to the caller, who logs and
// continues.
func (r *QueueRecorder) Record(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	task := asynq.NewTask(TaskRecordEvent, payload)
	if _, err := r.client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}
	return nil
}
