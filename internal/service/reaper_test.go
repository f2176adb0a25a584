package service

import (
	"context"
	"testing"
	"time"

	"stratus/internal/database"
)

func TestReaperSweep(t *testing.T) {
	env := newTestEnv()

	healthy := env.upload(t, 1, "healthy.txt", "fine")
	stuck := env.upload(t, 1, "stuck.txt", "broken")
	env.files.files[stuck.ID].Status = database.StatusUploading
	env.files.files[stuck.ID].UpdatedAt = time.Now().Add(-2 * time.Hour)

	r := NewReaper(env.files, env.store, time.Minute, time.Hour)
	r.sweep(context.Background())

	if _, ok := env.files.files[stuck.ID]; ok {
		t.Error("expected stuck upload to be reaped")
	}
	if _, ok := env.store.objects[stuck.ObjectKey]; ok {
		t.Error("expected stuck object to be deleted")
	}
	if _, ok := env.files.files[healthy.ID]; !ok {
		t.Error("expected available file to survive")
	}
}

func TestReaperIgnoresRecentTransients(t *testing.T) {
	env := newTestEnv()

	inflight := env.upload(t, 1, "inflight.txt", "bytes")
	env.files.files[inflight.ID].Status = database.StatusUploading

	r := NewReaper(env.files, env.store, time.Minute, time.Hour)
	r.sweep(context.Background())

	if _, ok := env.files.files[inflight.ID]; !ok {
		t.Error("expected recent in-flight upload to survive")
	}
}

func TestReaperStopsOnContextCancel(t *testing.T) {
	env := newTestEnv()
	r := NewReaper(env.files, env.store, 10*time.Millisecond, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after context cancellation")
	}
}
