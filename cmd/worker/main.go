// The worker consumes queued analytics events and persists them, keeping
// telemetry writes off the request path.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"stratus/internal/analytics"
	"stratus/internal/config"
	"stratus/internal/database"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.WorkerCount,
	})
	handler := analytics.NewHandler(database.NewAnalyticsRepository(db))

	go func() {
		<-ctx.Done()
		slog.Info("shutting down worker")
		server.Shutdown()
	}()

	slog.Info("worker started", "concurrency", cfg.WorkerCount)
	if err := server.Run(handler.Mux()); err != nil {
		slog.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}
