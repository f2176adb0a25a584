package service

import (
	"context"
	"errors"

	"stratus/internal/database"
)

// ErrInvalidEventType rejects frequency queries for unknown event types.
var ErrInvalidEventType = errors.New("invalid event type")

// StatsRepo serves aggregation queries over recorded events.
type StatsRepo interface {
	StorageUsage(ctx context.Context, userID int) (int64, error)
	FileTypeCounts(ctx context.Context, userID int) (map[string]int64, error)
	EventFrequency(ctx context.Context, userID int, eventType database.EventType) (map[string]int64, error)
}

// StatsService answers usage questions from the analytics event log.
type StatsService struct {
	stats StatsRepo
}

// NewStatsService creates a new StatsService.
func NewStatsService(stats StatsRepo) *StatsService {
	return &StatsService{stats: stats}
}

// StorageUsage returns the total bytes the user has uploaded, computed from
// UPLOAD events. Deleted files still count; this is historical volume, not
// current footprint.
func (s *StatsService) StorageUsage(ctx context.Context, userID int) (int64, error) {
	return s.stats.StorageUsage(ctx, userID)
}

// FileTypeCounts returns event counts grouped by content type.
func (s *StatsService) FileTypeCounts(ctx context.Context, userID int) (map[string]int64, error) {
	return s.stats.FileTypeCounts(ctx, userID)
}

// EventFrequency returns per-day counts of one event type, keyed by date.
func (s *StatsService) EventFrequency(ctx context.Context, userID int, rawType string) (map[string]int64, error) {
	switch typ := database.EventType(rawType); typ {
	case database.EventUpload, database.EventDownload, database.EventUpdate,
		database.EventDelete, database.EventRestoreVersion, database.EventViewVersions:
		return s.stats.EventFrequency(ctx, userID, typ)
	default:
		return nil, ErrInvalidEventType
	}
}
