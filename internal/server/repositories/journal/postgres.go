package journal

import (
	"context"
	"database/sql"
	"encoding/json"
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

func (r *PostgresRepository) ListUpdatedSince(ctx context.Context, userID string, since *time.Time) ([]common.JournalEntryRecord, error) {
	query :=
		`SELECT j.id, j.reading_id, j.content, j.mood, j.tags, j.photo_urls,
		        j.created_at, j.updated_at, j.is_deleted
		 FROM journal_entries j
		 JOIN readings rd ON rd.id = j.reading_id
		 WHERE rd.user_id = $1 AND ($2::timestamptz IS NULL OR j.updated_at > $2)
		 ORDER BY j.updated_at
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []common.JournalEntryRecord
	for rows.Next() {
		var rec common.JournalEntryRecord
		var tags, photos []byte
		if err := rows.Scan(&rec.ID, &rec.ReadingID, &rec.Content, &rec.Mood, &tags, &photos,
			&rec.CreatedAt, &rec.UpdatedAt, &rec.IsDeleted); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal(tags, &rec.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
		if err := json.Unmarshal(photos, &rec.PhotoURLs); err != nil {
			return nil, fmt.Errorf("failed to decode photo urls: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID string, rec *common.JournalEntryRecord) error {
	if err := r.checkReadingOwnership(ctx, userID, rec.ReadingID); err != nil {
		return err
	}
	// The conflicting row, when it exists under another reading, must belong
	// to the caller as well.
	var existingReading string
	err := r.db.QueryRowContext(ctx, `SELECT reading_id FROM journal_entries WHERE id = $1`, rec.ID).Scan(&existingReading)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case existingReading != rec.ReadingID:
		if err := r.checkReadingOwnership(ctx, userID, existingReading); err != nil {
			return err
		}
	}

	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	photos, err := json.Marshal(rec.PhotoURLs)
	if err != nil {
		return fmt.Errorf("failed to encode photo urls: %w", err)
	}

	query :=
		`INSERT INTO journal_entries (id, reading_id, content, mood, tags, photo_urls,
		                              created_at, updated_at, is_deleted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		     content = excluded.content,
		     mood = excluded.mood,
		     tags = excluded.tags,
		     photo_urls = excluded.photo_urls,
		     updated_at = excluded.updated_at,
		     is_deleted = excluded.is_deleted
		 WHERE journal_entries.updated_at <= excluded.updated_at
		 `

	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.ReadingID, rec.Content, rec.Mood, tags, photos,
		rec.CreatedAt, rec.UpdatedAt, rec.IsDeleted)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, userID string, id string, at time.Time) error {
	var readingID string
	err := r.db.QueryRowContext(ctx, `SELECT reading_id FROM journal_entries WHERE id = $1`, id).Scan(&readingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := r.checkReadingOwnership(ctx, userID, readingID); err != nil {
		return err
	}

	query :=
		`UPDATE journal_entries SET is_deleted = TRUE, updated_at = $2
		 WHERE id = $1 AND updated_at <= $2
		 `

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) checkReadingOwnership(ctx context.Context, userID, readingID string) error {
	var owner string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM readings WHERE id = $1`, readingID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: unknown reading %s", shared.ErrValidation, readingID)
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if owner != userID {
		return shared.ErrOwnershipDenied
	}
	return nil
}
