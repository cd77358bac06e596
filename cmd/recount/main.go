// Command recount recomputes the summary counters of completed analysis runs
// from their stored items. Summaries are write-once in normal operation; this
// tool is the explicit repair path for runs whose counters drifted, e.g. after
// a manual data fix.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/postpulse/postpulse/internal/database"
	"github.com/postpulse/postpulse/internal/domain"
	"github.com/postpulse/postpulse/internal/logging"
)

type runCounts struct {
	itemCount int
	summary   domain.SentimentSummary
}

type storedRun struct {
	id            uuid.UUID
	subjectHandle string
	counts        runCounts
}

func main() {
	dryRun := flag.Bool("dry-run", false, "report mismatches without updating")
	subject := flag.String("subject", "", "limit the recount to one subject handle")
	flag.Parse()

	_ = godotenv.Load()
	logging.InitLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	if err := run(context.Background(), *dryRun, *subject); err != nil {
		slog.Error("Recount failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dryRun bool, subject string) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	runs, err := loadCompletedRuns(ctx, pool, subject)
	if err != nil {
		return err
	}
	slog.Info("Loaded completed runs", "count", len(runs))

	fixed := 0
	for _, stored := range runs {
		actual, err := countItems(ctx, pool, stored.id)
		if err != nil {
			return err
		}
		if actual == stored.counts {
			continue
		}

		slog.Warn("Run summary out of date",
			"run_id", stored.id,
			"subject_handle", stored.subjectHandle,
			"stored_items", stored.counts.itemCount,
			"actual_items", actual.itemCount,
		)

		if dryRun {
			continue
		}
		if err := updateSummary(ctx, pool, stored.id, actual); err != nil {
			return err
		}
		fixed++
	}

	slog.Info("Recount finished", "checked", len(runs), "fixed", fixed, "dry_run", dryRun)
	return nil
}

func loadCompletedRuns(ctx context.Context, pool *pgxpool.Pool, subject string) ([]storedRun, error) {
	query := `SELECT id, subject_handle, item_count, positive_count, neutral_count, negative_count
	          FROM analysis_runs
	          WHERE completed_at IS NOT NULL`
	args := []any{}
	if subject != "" {
		query += " AND subject_handle = $1"
		args = append(args, subject)
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	defer rows.Close()

	var runs []storedRun
	for rows.Next() {
		var r storedRun
		if err := rows.Scan(&r.id, &r.subjectHandle, &r.counts.itemCount,
			&r.counts.summary.Positive, &r.counts.summary.Neutral, &r.counts.summary.Negative); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func countItems(ctx context.Context, pool *pgxpool.Pool, runID uuid.UUID) (runCounts, error) {
	rows, err := pool.Query(ctx,
		`SELECT label, COUNT(*) FROM items WHERE run_id = $1 GROUP BY label`, runID)
	if err != nil {
		return runCounts{}, fmt.Errorf("failed to count items for run %s: %w", runID, err)
	}
	defer rows.Close()

	var counts runCounts
	for rows.Next() {
		var label domain.Label
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return runCounts{}, fmt.Errorf("failed to scan label count: %w", err)
		}
		counts.itemCount += n
		switch label {
		case domain.LabelPositive:
			counts.summary.Positive = n
		case domain.LabelNeutral:
			counts.summary.Neutral = n
		case domain.LabelNegative:
			counts.summary.Negative = n
		}
	}
	return counts, rows.Err()
}

func updateSummary(ctx context.Context, pool *pgxpool.Pool, runID uuid.UUID, counts runCounts) error {
	tag, err := pool.Exec(ctx,
		`UPDATE analysis_runs
		 SET item_count = $2, positive_count = $3, neutral_count = $4, negative_count = $5
		 WHERE id = $1`,
		runID, counts.itemCount, counts.summary.Positive, counts.summary.Neutral, counts.summary.Negative)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
