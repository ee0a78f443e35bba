package cards

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

const cardColumns = `id, deck_id, title, meaning, keywords, style_template, symbols,
	image_url, position, created_at, updated_at, synced_at, is_deleted`

// encodeList serializes a string list for its TEXT column. The empty list is
// stored as "[]" so decoding never sees NULL.
func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode list field: %w", err)
	}
	return string(b), nil
}

func decodeList(s string) ([]string, error) {
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("failed to decode list field: %w", err)
	}
	return v, nil
}

func scanCard(row interface{ Scan(...any) error }) (*models.Card, error) {
	var c models.Card
	var keywords, symbols string
	var created, updated int64
	var synced sql.NullInt64
	if err := row.Scan(&c.ID, &c.DeckID, &c.Title, &c.Meaning, &keywords, &c.StyleTemplate,
		&symbols, &c.ImageURL, &c.Position, &created, &updated, &synced, &c.IsDeleted); err != nil {
		return nil, err
	}
	var err error
	if c.Keywords, err = decodeList(keywords); err != nil {
		return nil, err
	}
	if c.Symbols, err = decodeList(symbols); err != nil {
		return nil, err
	}
	c.CreatedAt = dbx.FromMillis(created)
	c.UpdatedAt = dbx.FromMillis(updated)
	c.SyncedAt = dbx.TimePtr(synced)
	return &c, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, c *models.Card) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	c.CreatedAt = now
	c.UpdatedAt = now
	c.SyncedAt = nil
	c.IsDeleted = false

	keywords, err := encodeList(c.Keywords)
	if err != nil {
		return err
	}
	symbols, err := encodeList(c.Symbols)
	if err != nil {
		return err
	}

	query := `INSERT INTO cards (id, deck_id, title, meaning, keywords, style_template, symbols,
			image_url, position, created_at, updated_at, synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, 0)`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.DeckID, c.Title, c.Meaning, keywords, c.StyleTemplate, symbols,
		c.ImageURL, c.Position, dbx.Millis(c.CreatedAt), dbx.Millis(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p Patch) (*models.Card, error) {
	var keywords, symbols *string
	if p.Keywords != nil {
		s, err := encodeList(*p.Keywords)
		if err != nil {
			return nil, err
		}
		keywords = &s
	}
	if p.Symbols != nil {
		s, err := encodeList(*p.Symbols)
		if err != nil {
			return nil, err
		}
		symbols = &s
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	query := `UPDATE cards SET
			title = COALESCE(?, title),
			meaning = COALESCE(?, meaning),
			keywords = COALESCE(?, keywords),
			style_template = COALESCE(?, style_template),
			symbols = COALESCE(?, symbols),
			image_url = COALESCE(?, image_url),
			position = COALESCE(?, position),
			updated_at = ?,
			synced_at = NULL
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		p.Title, p.Meaning, keywords, p.StyleTemplate, symbols, p.ImageURL, p.Position,
		dbx.Millis(now), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update card: %w", err)
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
		`UPDATE cards SET is_deleted = 1, updated_at = ?, synced_at = NULL WHERE id = ? AND is_deleted = 0`,
		dbx.Millis(now), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete card: %w", err)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Card, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select card: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context, deckID string) ([]models.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE deck_id = ? AND is_deleted = 0 ORDER BY position`,
		deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to select cards: %w", err)
	}
	return collectCards(rows)
}

func (r *SQLiteRepository) CountActive(ctx context.Context, deckID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cards WHERE deck_id = ? AND is_deleted = 0`, deckID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Dirty(ctx context.Context) ([]models.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE synced_at IS NULL OR synced_at < updated_at ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty cards: %w", err)
	}
	return collectCards(rows)
}

func collectCards(rows *sql.Rows) ([]models.Card, error) {
	defer rows.Close()
	var result []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Stamp(ctx context.Context, id string) (bool, time.Time, bool, error) {
	var updated int64
	var synced sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT updated_at, synced_at FROM cards WHERE id = ?`, id).
		Scan(&updated, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return false, time.Time{}, false, nil
	}
	if err != nil {
		return false, time.Time{}, false, fmt.Errorf("failed to stamp card: %w", err)
	}
	dirty := !synced.Valid || synced.Int64 < updated
	return true, dbx.FromMillis(updated), dirty, nil
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, c *models.Card, syncedAt time.Time) error {
	keywords, err := encodeList(c.Keywords)
	if err != nil {
		return err
	}
	symbols, err := encodeList(c.Symbols)
	if err != nil {
		return err
	}

	query := `INSERT INTO cards (id, deck_id, title, meaning, keywords, style_template, symbols,
			image_url, position, created_at, updated_at, synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			meaning = excluded.meaning,
			keywords = excluded.keywords,
			style_template = excluded.style_template,
			symbols = excluded.symbols,
			image_url = excluded.image_url,
			position = excluded.position,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at,
			is_deleted = excluded.is_deleted`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.DeckID, c.Title, c.Meaning, keywords, c.StyleTemplate, symbols,
		c.ImageURL, c.Position, dbx.Millis(c.CreatedAt), dbx.Millis(c.UpdatedAt),
		dbx.Millis(syncedAt), c.IsDeleted)
	if err != nil {
		return fmt.Errorf("failed to apply remote card: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE cards SET synced_at = ? WHERE id = ? AND updated_at <= ?`,
		dbx.Millis(at), id, dbx.Millis(at))
	if err != nil {
		return fmt.Errorf("failed to mark card synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ? AND is_deleted = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to purge card: %w", err)
	}
	return nil
}
