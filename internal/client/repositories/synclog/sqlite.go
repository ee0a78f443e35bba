package synclog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"arcana/internal/dbx"
	"arcana/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) RecordRejection(ctx context.Context, table models.Table, id string, reason string) (int, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	query := `INSERT INTO sync_log (table_name, record_id, rejections, last_error, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(table_name, record_id) DO UPDATE SET
			rejections = rejections + 1,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, table, id, reason, dbx.Millis(now)); err != nil {
		return 0, fmt.Errorf("failed to record rejection: %w", err)
	}
	return r.Rejections(ctx, table, id)
}

func (r *SQLiteRepository) Rejections(ctx context.Context, table models.Table, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT rejections FROM sync_log WHERE table_name = ? AND record_id = ?`, table, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to select rejections: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, table models.Table, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_log WHERE table_name = ? AND record_id = ?`, table, id)
	if err != nil {
		return fmt.Errorf("failed to clear rejections: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT table_name, record_id, rejections, last_error FROM sync_log ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select sync log: %w", err)
	}
	defer rows.Close()
	var result []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Table, &e.RecordID, &e.Rejections, &e.LastError); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
