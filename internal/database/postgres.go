package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool and verifies the connection.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected", "min_conns", poolCfg.MinConns, "max_conns", poolCfg.MaxConns)
	return pool, nil
}

const (
	// migrationLockID is a PostgreSQL advisory lock ID for coordinating
	// migrations across instances. Value: "postpu" in ASCII hex.
	migrationLockID             = 0x706f73747075
	migrationLockReleaseTimeout = 5 * time.Second
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS analysis_runs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		subject_handle TEXT NOT NULL,
		requested_count INT NOT NULL DEFAULT 0,
		item_count INT NOT NULL DEFAULT 0,
		positive_count INT NOT NULL DEFAULT 0,
		neutral_count INT NOT NULL DEFAULT 0,
		negative_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_subject_created
		ON analysis_runs(subject_handle, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		run_id UUID NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
		subject_handle TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('post', 'reply')),
		text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		label TEXT NOT NULL CHECK (label IN ('positive', 'neutral', 'negative')),
		score DOUBLE PRECISION NOT NULL CHECK (score >= -1 AND score <= 1)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_run ON items(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_subject_created ON items(subject_handle, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_items_subject_label_score
		ON items(subject_handle, label, score DESC)`,
}

// RunMigrations applies the schema under an advisory lock so concurrent
// instances do not race each other on startup.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), migrationLockReleaseTimeout)
		defer cancel()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			slog.Error("failed to release migration lock", "error", err)
		}
	}()

	slog.Info("running database migrations")
	for _, migration := range migrations {
		if _, err := conn.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
