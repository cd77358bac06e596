package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postpulse/postpulse/internal/domain"
)

// runColumns must match the Scan order in scanRun.
const runColumns = `id, subject_handle, requested_count, item_count, positive_count, neutral_count, negative_count, created_at, completed_at`

// RunRepo implements domain.RunRepository backed by PostgreSQL.
type RunRepo struct {
	db *pgxpool.Pool
}

func NewRunRepo(db *pgxpool.Pool) *RunRepo {
	return &RunRepo{db: db}
}

func scanRun(row pgx.Row) (*domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	err := row.Scan(
		&run.ID, &run.SubjectHandle, &run.RequestedCount, &run.ItemCount,
		&run.PositiveCount, &run.NeutralCount, &run.NegativeCount,
		&run.CreatedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepo) Create(ctx context.Context, subjectHandle string, requestedCount int) (*domain.AnalysisRun, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `
		INSERT INTO analysis_runs (subject_handle, requested_count)
		VALUES ($1, $2)
		RETURNING `+runColumns,
		subjectHandle, requestedCount))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis run: %w", err)
	}
	return run, nil
}

// CompleteSummary writes the summary exactly once: a second call for the same
// run finds completed_at already set and reports ErrRunNotFound.
func (r *RunRepo) CompleteSummary(ctx context.Context, runID uuid.UUID, itemCount int, summary domain.SentimentSummary) (*domain.AnalysisRun, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `
		UPDATE analysis_runs
		SET item_count = $2, positive_count = $3, neutral_count = $4, negative_count = $5, completed_at = NOW()
		WHERE id = $1 AND completed_at IS NULL
		RETURNING `+runColumns,
		runID, itemCount, summary.Positive, summary.Neutral, summary.Negative))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete analysis run: %w", err)
	}
	return run, nil
}

func (r *RunRepo) GetByID(ctx context.Context, runID uuid.UUID) (*domain.AnalysisRun, error) {
	run, err := scanRun(r.db.QueryRow(ctx,
		`SELECT `+runColumns+` FROM analysis_runs WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	return run, err
}

func (r *RunRepo) GetLatestBySubject(ctx context.Context, subjectHandle string) (*domain.AnalysisRun, error) {
	run, err := scanRun(r.db.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM analysis_runs
		WHERE subject_handle = $1
		ORDER BY created_at DESC
		LIMIT 1`, subjectHandle))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubjectNotFound
	}
	return run, err
}

func (r *RunRepo) ListBySubject(ctx context.Context, subjectHandle string) ([]domain.AnalysisRun, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+runColumns+`
		FROM analysis_runs
		WHERE subject_handle = $1
		ORDER BY created_at DESC`, subjectHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.AnalysisRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}
