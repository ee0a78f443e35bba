package decks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"arcana/internal/common"
	"arcana/internal/dbx"
	"arcana/internal/shared"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListUpdatedSince(ctx context.Context, userID string, since *time.Time) ([]common.DeckRecord, error) {
	query :=
		`SELECT id, user_id, name, description, cover_image_url, card_count,
		        created_at, updated_at, is_deleted
		 FROM decks
		 WHERE user_id = $1 AND ($2::timestamptz IS NULL OR updated_at > $2)
		 ORDER BY updated_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []common.DeckRecord
	for rows.Next() {
		var rec common.DeckRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Description, &rec.CoverImageURL,
			&rec.CardCount, &rec.CreatedAt, &rec.UpdatedAt, &rec.IsDeleted); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID string, rec *common.DeckRecord) error {
	if err := r.checkOwnership(ctx, userID, rec.ID); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	query :=
		`INSERT INTO decks (id, user_id, name, description, cover_image_url, card_count,
		                    created_at, updated_at, is_deleted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     name = excluded.name,
		     description = excluded.description,
		     cover_image_url = excluded.cover_image_url,
		     card_count = excluded.card_count,
		     updated_at = excluded.updated_at,
		     is_deleted = excluded.is_deleted
		 WHERE decks.updated_at <= excluded.updated_at
		 `

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, userID, rec.Name, rec.Description, rec.CoverImageURL, rec.CardCount,
		rec.CreatedAt, rec.UpdatedAt, rec.IsDeleted)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, userID string, id string, at time.Time) error {
	if err := r.checkOwnership(ctx, userID, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}

	query :=
		`UPDATE decks SET is_deleted = TRUE, updated_at = $3
		 WHERE id = $1 AND user_id = $2 AND updated_at <= $3
		 `

	if _, err := r.db.ExecContext(ctx, query, id, userID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// checkOwnership returns shared.ErrOwnershipDenied when the row exists under
// another user and shared.ErrNotFound when it does not exist at all.
func (r *PostgresRepository) checkOwnership(ctx context.Context, userID, id string) error {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM decks WHERE id = $1`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return shared.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if owner != userID {
		return shared.ErrOwnershipDenied
	}
	return nil
}
