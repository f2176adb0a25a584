package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"stratus/internal/database"
)

// Handler consumes queued events and appends them to the analytics store.
type Handler struct {
	repo *database.AnalyticsRepository
}

// NewHandler creates a worker-side handler.
func NewHandler(repo *database.AnalyticsRepository) *Handler {
	return &Handler{repo: repo}
}

// Mux returns the asynq routing table for the worker server.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskRecordEvent, h.processRecord)
	return mux
}

func (h *Handler) processRecord(ctx context.Context, t *asynq.Task) error {
	var e Event
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		// Malformed payloads will never succeed; drop instead of retrying.
		slog.Error("dropping malformed analytics task", "error", err)
		return nil
	}

	record := &database.AnalyticsEvent{
		UserID:     e.UserID,
		EventType:  e.Type,
		FileID:     e.FileID,
		FileSize:   e.FileSize,
		FileType:   e.FileType,
		OccurredAt: e.OccurredAt,
	}
	if err := h.repo.Insert(ctx, record); err != nil {
		return fmt.Errorf("failed to persist analytics event: %w", err)
	}

	slog.Info("analytics event recorded",
		"event_type", e.Type,
		"user_id", e.UserID,
		"file_id", e.FileID,
	)
	return nil
}
