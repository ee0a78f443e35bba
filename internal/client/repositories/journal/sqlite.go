package journal

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

const entryColumns = `id, reading_id, content, mood, tags, photo_urls,
	created_at, updated_at, synced_at, is_deleted`

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

func scanEntry(row interface{ Scan(...any) error }) (*models.JournalEntry, error) {
	var e models.JournalEntry
	var tags, photos string
	var created, updated int64
	var synced sql.NullInt64
	if err := row.Scan(&e.ID, &e.ReadingID, &e.Content, &e.Mood, &tags, &photos,
		&created, &updated, &synced, &e.IsDeleted); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(photos), &e.PhotoURLs); err != nil {
		return nil, fmt.Errorf("failed to decode photo urls: %w", err)
	}
	e.CreatedAt = dbx.FromMillis(created)
	e.UpdatedAt = dbx.FromMillis(updated)
	e.SyncedAt = dbx.TimePtr(synced)
	return &e, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, e *models.JournalEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	e.CreatedAt = now
	e.UpdatedAt = now
	e.SyncedAt = nil
	e.IsDeleted = false

	tags, err := encodeList(e.Tags)
	if err != nil {
		return err
	}
	photos, err := encodeList(e.PhotoURLs)
	if err != nil {
		return err
	}

	query := `INSERT INTO journal_entries (id, reading_id, content, mood, tags, photo_urls,
			created_at, updated_at, synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, 0)`
	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.ReadingID, e.Content, e.Mood, tags, photos,
		dbx.Millis(e.CreatedAt), dbx.Millis(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p Patch) (*models.JournalEntry, error) {
	var tags, photos *string
	if p.Tags != nil {
		s, err := encodeList(*p.Tags)
		if err != nil {
			return nil, err
		}
		tags = &s
	}
	if p.PhotoURLs != nil {
		s, err := encodeList(*p.PhotoURLs)
		if err != nil {
			return nil, err
		}
		photos = &s
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	query := `UPDATE journal_entries SET
			content = COALESCE(?, content),
			mood = COALESCE(?, mood),
			tags = COALESCE(?, tags),
			photo_urls = COALESCE(?, photo_urls),
			updated_at = ?,
			synced_at = NULL
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, p.Content, p.Mood, tags, photos, dbx.Millis(now), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update journal entry: %w", err)
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
		`UPDATE journal_entries SET is_deleted = 1, updated_at = ?, synced_at = NULL WHERE id = ? AND is_deleted = 0`,
		dbx.Millis(now), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete journal entry: %w", err)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.JournalEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select journal entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context, readingID string) ([]models.JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries WHERE reading_id = ? AND is_deleted = 0 ORDER BY created_at DESC`,
		readingID)
	if err != nil {
		return nil, fmt.Errorf("failed to select journal entries: %w", err)
	}
	return collectEntries(rows)
}

func (r *SQLiteRepository) Dirty(ctx context.Context) ([]models.JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries WHERE synced_at IS NULL OR synced_at < updated_at ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty journal entries: %w", err)
	}
	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]models.JournalEntry, error) {
	defer rows.Close()
	var result []models.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Stamp(ctx context.Context, id string) (bool, time.Time, bool, error) {
	var updated int64
	var synced sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT updated_at, synced_at FROM journal_entries WHERE id = ?`, id).
		Scan(&updated, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return false, time.Time{}, false, nil
	}
	if err != nil {
		return false, time.Time{}, false, fmt.Errorf("failed to stamp journal entry: %w", err)
	}
	dirty := !synced.Valid || synced.Int64 < updated
	return true, dbx.FromMillis(updated), dirty, nil
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, e *models.JournalEntry, syncedAt time.Time) error {
	tags, err := encodeList(e.Tags)
	if err != nil {
		return err
	}
	photos, err := encodeList(e.PhotoURLs)
	if err != nil {
		return err
	}

	query := `INSERT INTO journal_entries (id, reading_id, content, mood, tags, photo_urls,
			created_at, updated_at, synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			mood = excluded.mood,
			tags = excluded.tags,
			photo_urls = excluded.photo_urls,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at,
			is_deleted = excluded.is_deleted`
	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.ReadingID, e.Content, e.Mood, tags, photos,
		dbx.Millis(e.CreatedAt), dbx.Millis(e.UpdatedAt), dbx.Millis(syncedAt), e.IsDeleted)
	if err != nil {
		return fmt.Errorf("failed to apply remote journal entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE journal_entries SET synced_at = ? WHERE id = ? AND updated_at <= ?`,
		dbx.Millis(at), id, dbx.Millis(at))
	if err != nil {
		return fmt.Errorf("failed to mark journal entry synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = ? AND is_deleted = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to purge journal entry: %w", err)
	}
	return nil
}
