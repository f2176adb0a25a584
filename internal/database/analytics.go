package database

import (
	"context"
	"fmt"
	"time"
)

// AnalyticsRepository appends usage events and serves aggregation queries.
// Events are never updated or deleted.
type AnalyticsRepository struct {
	db *DB
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(db *DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Insert appends one event.
func (r *AnalyticsRepository) Insert(ctx context.Context, e *AnalyticsEvent) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO analytics_events (user_id, event_type, file_id, file_size, file_type, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.UserID, e.EventType, e.FileID, e.FileSize, e.FileType, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

// StorageUsage sums the bytes of all UPLOAD events for a user.
func (r *AnalyticsRepository) StorageUsage(ctx context.Context, userID int) (int64, error) {
	var total int64
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(file_size), 0)
		FROM analytics_events
		WHERE user_id = $1 AND event_type = $2
	`, userID, EventUpload).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum storage usage: %w", err)
	}
	return total, nil
}

// FileTypeCounts returns event counts grouped by content type for a user.
func (r *AnalyticsRepository) FileTypeCounts(ctx context.Context, userID int) (map[string]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT COALESCE(file_type, ''), COUNT(*)
		FROM analytics_events
		WHERE user_id = $1
		GROUP BY file_type
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count file types: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("failed to scan file type count: %w", err)
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// EventFrequency returns per-day event counts for one event type, keyed by
// the day in RFC 3339 date form, ordered by day in the underlying query.
func (r *AnalyticsRepository) EventFrequency(ctx context.Context, userID int, eventType EventType) (map[string]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DATE_TRUNC('day', occurred_at) AS day, COUNT(*)
		FROM analytics_events
		WHERE user_id = $1 AND event_type = $2
		GROUP BY day
		ORDER BY day
	`, userID, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to query event frequency: %w", err)
	}
	defer rows.Close()

	freq := make(map[string]int64)
	for rows.Next() {
		var day time.Time
		var n int64
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event frequency: %w", err)
		}
		freq[day.Format("2006-01-02")] = n
	}
	return freq, rows.Err()
}
