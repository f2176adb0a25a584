package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations contains all database migrations in order.
// Each migration has a version key and SQL to execute.
var migrations = []struct {
	Version string
	SQL     string
}{
	{
		Version: "000001_create_users",
		SQL: `
			CREATE TABLE IF NOT EXISTS users (
				user_id       SERIAL       PRIMARY KEY,
				username      VARCHAR(100) NOT NULL UNIQUE,
				email         VARCHAR(255) NOT NULL UNIQUE,
				password_hash VARCHAR(255) NOT NULL,
				is_active     BOOLEAN      NOT NULL DEFAULT TRUE,
				created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
				last_login    TIMESTAMPTZ
			);
		`,
	},
	{
		Version: "000002_create_folders",
		SQL: `
			CREATE TABLE IF NOT EXISTS folders (
				folder_id   SERIAL       PRIMARY KEY,
				user_id     INTEGER      NOT NULL REFERENCES users(user_id),
				folder_name VARCHAR(255) NOT NULL,
				parent_id   INTEGER      REFERENCES folders(folder_id),
				created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_folders_user_id ON folders(user_id);
		`,
	},
	{
		Version: "000003_create_files",
		SQL: `
			CREATE TABLE IF NOT EXISTS files (
				file_id    SERIAL       PRIMARY KEY,
				user_id    INTEGER      NOT NULL REFERENCES users(user_id),
				folder_id  INTEGER      REFERENCES folders(folder_id),
				file_name  VARCHAR(255) NOT NULL,
				object_key VARCHAR(512) NOT NULL UNIQUE,
				file_size  BIGINT       NOT NULL,
				file_type  VARCHAR(255) NOT NULL,
				is_public  BOOLEAN      NOT NULL DEFAULT FALSE,
				status     VARCHAR(20)  NOT NULL DEFAULT 'AVAILABLE',
				file_hash  VARCHAR(64)  NOT NULL,
				created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_files_user_id ON files(user_id);
			CREATE INDEX IF NOT EXISTS idx_files_file_hash ON files(file_hash);
			CREATE INDEX IF NOT EXISTS idx_files_folder_id ON files(folder_id);
		`,
	},
	{
		Version: "000004_create_tags",
		SQL: `
			CREATE TABLE IF NOT EXISTS tags (
				tag_id SERIAL       PRIMARY KEY,
				name   VARCHAR(100) NOT NULL UNIQUE
			);
			CREATE TABLE IF NOT EXISTS file_tags (
				file_id INTEGER NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
				tag_id  INTEGER NOT NULL REFERENCES tags(tag_id) ON DELETE CASCADE,
				PRIMARY KEY (file_id, tag_id)
			);
		`,
	},
	{
		Version: "000005_create_file_permissions",
		SQL: `
			CREATE TABLE IF NOT EXISTS file_permissions (
				permission_id SERIAL      PRIMARY KEY,
				file_id       INTEGER     NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
				user_id       INTEGER     NOT NULL REFERENCES users(user_id),
				type          VARCHAR(10) NOT NULL,
				UNIQUE (file_id, user_id, type)
			);
			CREATE INDEX IF NOT EXISTS idx_file_permissions_user_id ON file_permissions(user_id);
		`,
	},
	{
		Version: "000006_create_analytics_events",
		SQL: `
			CREATE TABLE IF NOT EXISTS analytics_events (
				id          BIGSERIAL   PRIMARY KEY,
				user_id     INTEGER     NOT NULL,
				event_type  VARCHAR(20) NOT NULL,
				file_id     INTEGER,
				file_size   BIGINT,
				file_type   VARCHAR(255),
				occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_analytics_events_user_type ON analytics_events(user_id, event_type);
		`,
	},
}

// DB wraps a pgxpool connection pool and provides health checks and migrations.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("connected to database")
	return &DB{Pool: pool}, nil
}

// RunMigrations applies all pending database migrations in order.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := db.Pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status for %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		tx, err := db.Pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", m.Version, err)
		}

		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
		}

		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
		}

		slog.Info("applied migration", "version", m.Version)
	}

	return nil
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
