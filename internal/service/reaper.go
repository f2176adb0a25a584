package service

import (
	"context"
	"log/slog"
	"time"

	"stratus/internal/storage"
)

// Reaper periodically removes files stuck in a transient status — uploads
// that never completed or errored out — from both the database and the
// object store.
type Reaper struct {
	files    FileRepo
	store    storage.ObjectStore
	interval time.Duration
	maxAge   time.Duration
	done     chan struct{}
}

// NewReaper creates a new reaper.
func NewReaper(files FileRepo, store storage.ObjectStore, interval, maxAge time.Duration) *Reaper {
	return &Reaper{
		files:    files,
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		done:     make(chan struct{}),
	}
}

// Start begins the reaper loop in a background goroutine.
func (r *Reaper) Start(ctx context.Context) {
	slog.Info("reaper started", "interval", r.interval, "max_age", r.maxAge)

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		// Run once immediately on start
		r.sweep(ctx)

		for {
			select {
			case <-ticker.C:
				r.sweep(ctx)
			case <-ctx.Done():
				slog.Info("reaper stopping")
				close(r.done)
				return
			}
		}
	}()
}

// Wait blocks until the reaper has fully stopped.
func (r *Reaper) Wait() {
	<-r.done
}

func (r *Reaper) sweep(ctx context.Context) {
	stale, err := r.files.ListStale(ctx, r.maxAge)
	if err != nil {
		slog.Error("failed to list stale files", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	var reaped, failed int
	for _, f := range stale {
		// The object may never have been written; a delete marker on a
		// missing key is harmless either way.
		if err := r.store.Delete(ctx, f.ObjectKey); err != nil {
			slog.Error("failed to delete stale object",
				"file_id", f.ID,
				"key", f.ObjectKey,
				"error", err,
			)
			failed++
			continue
		}
		if err := r.files.Delete(ctx, f.ID); err != nil {
			slog.Error("failed to delete stale record",
				"file_id", f.ID,
				"error", err,
			)
			failed++
			continue
		}

		reaped++
		slog.Info("reaped stale file",
			"file_id", f.ID,
			"status", f.Status,
			"updated_at", f.UpdatedAt,
		)
	}

	slog.Info("reap cycle complete",
		"reaped", reaped,
		"failed", failed,
		"total_stale", len(stale),
	)
}
