package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"stratus/internal/analytics"
	"stratus/internal/api"
	"stratus/internal/auth"
	"stratus/internal/cache"
	"stratus/internal/config"
	"stratus/internal/database"
	"stratus/internal/service"
	"stratus/internal/storage"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg := config.Load()
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"s3_endpoint", cfg.S3Endpoint,
		"s3_bucket", cfg.S3Bucket,
		"max_file_size", cfg.MaxFileSize,
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	// Initialize object storage
	store, err := storage.NewMinioStore(storage.Options{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		slog.Error("failed to create object store client", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		slog.Error("failed to initialize bucket", "error", err)
		os.Exit(1)
	}
	slog.Info("object storage initialized", "bucket", cfg.S3Bucket)

	// Listing cache; the server runs without it if Redis is down
	var listCache service.ListCache
	if c, err := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL); err != nil {
		slog.Warn("listing cache disabled", "error", err)
	} else {
		listCache = c
		defer c.Close()
	}

	// Analytics publisher
	queue := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queue.Close()
	recorder := analytics.NewQueueRecorder(queue)

	// Repositories and services
	fileRepo := database.NewFileRepository(db)
	permRepo := database.NewPermissionRepository(db)
	folderRepo := database.NewFolderRepository(db)
	userRepo := database.NewUserRepository(db)
	statsRepo := database.NewAnalyticsRepository(db)

	tokens := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	files := service.NewFileService(fileRepo, permRepo, folderRepo, userRepo,
		store, recorder, listCache, cfg.MaxFileSize)
	users := service.NewUserService(userRepo, tokens)
	stats := service.NewStatsService(statsRepo)

	// Start the orphan reaper
	reaperCtx, reaperCancel := context.WithCancel(context.Background())
	reaper := service.NewReaper(fileRepo, store, cfg.ReaperInterval, cfg.ReaperMaxAge)
	reaper.Start(reaperCtx)

	// Setup HTTP router
	handler := api.NewHandler(files, users, stats, db)
	e := api.SetupRouter(handler, tokens, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil {
			slog.Info("server stopped", "reason", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop the reaper
	reaperCancel()
	reaper.Wait()

	slog.Info("server exited cleanly")
}
