package profiles

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

func (r *PostgresRepository) ListUpdatedSince(ctx context.Context, userID string, since *time.Time) ([]common.ProfileRecord, error) {
	query :=
		`SELECT id, user_id, email, username, avatar_url, subscription_tier,
		        created_at, updated_at, is_deleted
		 FROM profiles
		 WHERE user_id = $1 AND ($2::timestamptz IS NULL OR updated_at > $2)
		 ORDER BY updated_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []common.ProfileRecord
	for rows.Next() {
		var rec common.ProfileRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Email, &rec.Username, &rec.AvatarURL,
			&rec.SubscriptionTier, &rec.CreatedAt, &rec.UpdatedAt, &rec.IsDeleted); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID string, rec *common.ProfileRecord) error {
	if err := r.checkOwnership(ctx, userID, rec.ID); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	query :=
		`INSERT INTO profiles (id, user_id, email, username, avatar_url, subscription_tier,
		                       created_at, updated_at, is_deleted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     email = excluded.email,
		     username = excluded.username,
		     avatar_url = excluded.avatar_url,
		     subscription_tier = excluded.subscription_tier,
		     updated_at = excluded.updated_at,
		     is_deleted = excluded.is_deleted
		 WHERE profiles.updated_at <= excluded.updated_at
		 `

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, userID, rec.Email, rec.Username, rec.AvatarURL, rec.SubscriptionTier,
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
		`UPDATE profiles SET is_deleted = TRUE, updated_at = $3
		 WHERE id = $1 AND user_id = $2 AND updated_at <= $3
		 `

	if _, err := r.db.ExecContext(ctx, query, id, userID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) checkOwnership(ctx context.Context, userID, id string) error {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM profiles WHERE id = $1`, id).Scan(&owner)
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
