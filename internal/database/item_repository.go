package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postpulse/postpulse/internal/domain"
)

// itemColumns must match the Scan order in scanItem.
const itemColumns = `id, run_id, subject_handle, kind, text, created_at, label, score`

// ItemRepo implements domain.ItemRepository backed by PostgreSQL. Every row
// leaving this repository passes domain validation, so downstream aggregation
// can assume a clean collection.
type ItemRepo struct {
	db *pgxpool.Pool
}

func NewItemRepo(db *pgxpool.Pool) *ItemRepo {
	return &ItemRepo{db: db}
}

func scanItem(row pgx.Row) (*domain.ClassifiedItem, error) {
	var item domain.ClassifiedItem
	err := row.Scan(
		&item.ID, &item.RunID, &item.SubjectHandle, &item.Kind,
		&item.Text, &item.CreatedAt, &item.Label, &item.Score,
	)
	if err != nil {
		return nil, err
	}
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("stored item %s failed validation: %w", item.ID, err)
	}
	return &item, nil
}

// InsertBatch stores items, silently skipping IDs already present (an item
// seen by an earlier run keeps its original classification). Returns the
// number of rows actually inserted.
func (r *ItemRepo) InsertBatch(ctx context.Context, items []domain.ClassifiedItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return 0, err
		}
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO items (id, run_id, subject_handle, kind, text, created_at, label, score)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			item.ID, item.RunID, item.SubjectHandle, item.Kind,
			item.Text, item.CreatedAt, item.Label, item.Score)
	}

	results := r.db.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	inserted := 0
	for range items {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert item batch: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *ItemRepo) ListBySubject(ctx context.Context, subjectHandle string) ([]domain.ClassifiedItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE subject_handle = $1
		ORDER BY created_at`, subjectHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return collectItems(rows)
}

func (r *ItemRepo) ListByRun(ctx context.Context, runID uuid.UUID, filter domain.ItemFilter) ([]domain.ClassifiedItem, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE run_id = $1`
	args := []any{runID}

	if filter.Label != "" {
		args = append(args, filter.Label)
		query += fmt.Sprintf(" AND label = $%d", len(args))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	query += " ORDER BY score DESC, created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list run items: %w", err)
	}
	return collectItems(rows)
}

func (r *ItemRepo) TopBySubject(ctx context.Context, subjectHandle string, label domain.Label, limit int) ([]domain.ClassifiedItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE subject_handle = $1 AND label = $2
		ORDER BY score DESC, created_at DESC
		LIMIT $3`, subjectHandle, label, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top items: %w", err)
	}
	return collectItems(rows)
}

func collectItems(rows pgx.Rows) ([]domain.ClassifiedItem, error) {
	defer rows.Close()

	items := []domain.ClassifiedItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
