package readings

import (
	"context"
	"database/sql"
	"encoding/json"
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

const readingColumns = `id, user_id, deck_id, spread_type, intention, card_positions,
	ai_interpretation, created_at, updated_at, synced_at, is_deleted`

func encodePositions(v []models.CardPosition) (string, error) {
	if v == nil {
		v = []models.CardPosition{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode card positions: %w", err)
	}
	return string(b), nil
}

func scanReading(row interface{ Scan(...any) error }) (*models.Reading, error) {
	var rd models.Reading
	var spread, positions string
	var created, updated int64
	var synced sql.NullInt64
	if err := row.Scan(&rd.ID, &rd.UserID, &rd.DeckID, &spread, &rd.Intention, &positions,
		&rd.AIInterpretation, &created, &updated, &synced, &rd.IsDeleted); err != nil {
		return nil, err
	}
	rd.Spread = models.SpreadType(spread)
	if err := json.Unmarshal([]byte(positions), &rd.CardPositions); err != nil {
		return nil, fmt.Errorf("failed to decode card positions: %w", err)
	}
	rd.CreatedAt = dbx.FromMillis(created)
	rd.UpdatedAt = dbx.FromMillis(updated)
	rd.SyncedAt = dbx.TimePtr(synced)
	return &rd, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, rd *models.Reading) error {
	if rd.ID == "" {
		rd.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	rd.CreatedAt = now
	rd.UpdatedAt = now
	rd.SyncedAt = nil
	rd.IsDeleted = false

	positions, err := encodePositions(rd.CardPositions)
	if err != nil {
		return err
	}

	query := `INSERT INTO readings (id, user_id, deck_id, spread_type, intention, card_positions,
			ai_interpretation, created_at, updated_at, synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, 0)`
	_, err = r.db.ExecContext(ctx, query,
		rd.ID, rd.UserID, rd.DeckID, string(rd.Spread), rd.Intention, positions,
		rd.AIInterpretation, dbx.Millis(rd.CreatedAt), dbx.Millis(rd.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p Patch) (*models.Reading, error) {
	var positions *string
	if p.CardPositions != nil {
		s, err := encodePositions(*p.CardPositions)
		if err != nil {
			return nil, err
		}
		positions = &s
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	query := `UPDATE readings SET
			intention = COALESCE(?, intention),
			card_positions = COALESCE(?, card_positions),
			ai_interpretation = COALESCE(?, ai_interpretation),
			updated_at = ?,
			synced_at = NULL
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		p.Intention, positions, p.AIInterpretation, dbx.Millis(now), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update reading: %w", err)
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
		`UPDATE readings SET is_deleted = 1, updated_at = ?, synced_at = NULL WHERE id = ? AND is_deleted = 0`,
		dbx.Millis(now), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete reading: %w", err)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Reading, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+readingColumns+` FROM readings WHERE id = ?`, id)
	rd, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select reading: %w", err)
	}
	return rd, nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context, userID string) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+readingColumns+` FROM readings WHERE user_id = ? AND is_deleted = 0 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select readings: %w", err)
	}
	return collectReadings(rows)
}

func (r *SQLiteRepository) Dirty(ctx context.Context) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+readingColumns+` FROM readings WHERE synced_at IS NULL OR synced_at < updated_at ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty readings: %w", err)
	}
	return collectReadings(rows)
}

func collectReadings(rows *sql.Rows) ([]models.Reading, error) {
	defer rows.Close()
	var result []models.Reading
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Stamp(ctx context.Context, id string) (bool, time.Time, bool, error) {
	var updated int64
	var synced sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT updated_at, synced_at FROM readings WHERE id = ?`, id).
		Scan(&updated, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return false, time.Time{}, false, nil
	}
	if err != nil {
		return false, time.Time{}, false, fmt.Errorf("failed to stamp reading: %w", err)
	}
	dirty := !synced.Valid || synced.Int64 < updated
	return true, dbx.FromMillis(updated), dirty, nil
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, rd *models.Reading, syncedAt time.Time) error {
	positions, err := encodePositions(rd.CardPositions)
	if err != nil {
		return err
	}

	query := `INSERT INTO readings (id, user_id, deck_id, spread_type, intention, card_positions,
			ai_interpretation, created_at, updated_at, synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			spread_type = excluded.spread_type,
			intention = excluded.intention,
			card_positions = excluded.card_positions,
			ai_interpretation = excluded.ai_interpretation,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at,
			is_deleted = excluded.is_deleted`
	_, err = r.db.ExecContext(ctx, query,
		rd.ID, rd.UserID, rd.DeckID, string(rd.Spread), rd.Intention, positions,
		rd.AIInterpretation, dbx.Millis(rd.CreatedAt), dbx.Millis(rd.UpdatedAt),
		dbx.Millis(syncedAt), rd.IsDeleted)
	if err != nil {
		return fmt.Errorf("failed to apply remote reading: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE readings SET synced_at = ? WHERE id = ? AND updated_at <= ?`,
		dbx.Millis(at), id, dbx.Millis(at))
	if err != nil {
		return fmt.Errorf("failed to mark reading synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM readings WHERE id = ? AND is_deleted = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to purge reading: %w", err)
	}
	return nil
}
