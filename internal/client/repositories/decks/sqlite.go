package decks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"arcana/internal/dbx"
	"arcana/internal/models"
	"arcana/internal/shared"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deckColumns = `id, user_id, name, description, cover_image_url, card_count,
	created_at, updated_at, synced_at, is_deleted`

func scanDeck(row interface{ Scan(...any) error }) (*models.Deck, error) {
	var d models.Deck
	var created, updated int64
	var synced sql.NullInt64
	if err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &d.CoverImageURL,
		&d.CardCount, &created, &updated, &synced, &d.IsDeleted); err != nil {
		return nil, err
	}
	d.CreatedAt = dbx.FromMillis(created)
	d.UpdatedAt = dbx.FromMillis(updated)
	d.SyncedAt = dbx.TimePtr(synced)
	return &d, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, d *models.Deck) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	d.CreatedAt = now
	d.UpdatedAt = now
	d.SyncedAt = nil
	d.IsDeleted = false

	query := `INSERT INTO decks (id, user_id, name, description, cover_image_url, card_count,
			created_at, updated_at, synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, 0)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.UserID, d.Name, d.Description, d.CoverImageURL, d.CardCount,
		dbx.Millis(d.CreatedAt), dbx.Millis(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert deck: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p Patch) (*models.Deck, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	query := `UPDATE decks SET
			name = COALESCE(?, name),
			description = COALESCE(?, description),
			cover_image_url = COALESCE(?, cover_image_url),
			updated_at = ?,
			synced_at = NULL
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, p.Name, p.Description, p.CoverImageURL, dbx.Millis(now), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update deck: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return nil, shared.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := r.db.ExecContext(ctx,
		`UPDATE decks SET is_deleted = 1, updated_at = ?, synced_at = NULL WHERE id = ? AND is_deleted = 0`,
		dbx.Millis(now), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete deck: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Deck, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deckColumns+` FROM decks WHERE id = ?`, id)
	d, err := scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select deck: %w", err)
	}
	return d, nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context, userID string) ([]models.Deck, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deckColumns+` FROM decks WHERE user_id = ? AND is_deleted = 0 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select decks: %w", err)
	}
	return collectDecks(rows)
}

func (r *SQLiteRepository) Dirty(ctx context.Context) ([]models.Deck, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deckColumns+` FROM decks WHERE synced_at IS NULL OR synced_at < updated_at ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty decks: %w", err)
	}
	return collectDecks(rows)
}

func collectDecks(rows *sql.Rows) ([]models.Deck, error) {
	defer rows.Close()
	var result []models.Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Stamp(ctx context.Context, id string) (bool, time.Time, bool, error) {
	var updated int64
	var synced sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT updated_at, synced_at FROM decks WHERE id = ?`, id).
		Scan(&updated, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return false, time.Time{}, false, nil
	}
	if err != nil {
		return false, time.Time{}, false, fmt.Errorf("failed to stamp deck: %w", err)
	}
	dirty := !synced.Valid || synced.Int64 < updated
	return true, dbx.FromMillis(updated), dirty, nil
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, d *models.Deck, syncedAt time.Time) error {
	query := `INSERT INTO decks (id, user_id, name, description, cover_image_url, card_count,
			created_at, updated_at, synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			cover_image_url = excluded.cover_image_url,
			card_count = excluded.card_count,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at,
			is_deleted = excluded.is_deleted`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.UserID, d.Name, d.Description, d.CoverImageURL, d.CardCount,
		dbx.Millis(d.CreatedAt), dbx.Millis(d.UpdatedAt), dbx.Millis(syncedAt), d.IsDeleted)
	if err != nil {
		return fmt.Errorf("failed to apply remote deck: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	// The guard keeps a record mutated after the at snapshot dirty.
	_, err := r.db.ExecContext(ctx,
		`UPDATE decks SET synced_at = ? WHERE id = ? AND updated_at <= ?`,
		dbx.Millis(at), id, dbx.Millis(at))
	if err != nil {
		return fmt.Errorf("failed to mark deck synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM decks WHERE id = ? AND is_deleted = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to purge deck: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) BumpCardCount(ctx context.Context, id string, delta int) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := r.db.ExecContext(ctx,
		`UPDATE decks SET card_count = MAX(0, card_count + ?), updated_at = ?, synced_at = NULL WHERE id = ?`,
		delta, dbx.Millis(now), id)
	if err != nil {
		return fmt.Errorf("failed to bump card count: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return shared.ErrNotFound
	}
	return nil
}
