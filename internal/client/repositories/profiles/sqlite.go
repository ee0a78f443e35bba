package profiles

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

const profileColumns = `id, user_id, email, username, avatar_url, subscription_tier,
	created_at, updated_at, synced_at, is_deleted`

func scanProfile(row interface{ Scan(...any) error }) (*models.Profile, error) {
	var p models.Profile
	var created, updated int64
	var synced sql.NullInt64
	if err := row.Scan(&p.ID, &p.UserID, &p.Email, &p.Username, &p.AvatarURL, &p.Tier,
		&created, &updated, &synced, &p.IsDeleted); err != nil {
		return nil, err
	}
	p.CreatedAt = dbx.FromMillis(created)
	p.UpdatedAt = dbx.FromMillis(updated)
	p.SyncedAt = dbx.TimePtr(synced)
	return &p, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, p *models.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Tier == "" {
		p.Tier = models.TierFree
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	p.CreatedAt = now
	p.UpdatedAt = now
	p.SyncedAt = nil
	p.IsDeleted = false

	query := `INSERT INTO profiles (id, user_id, email, username, avatar_url, subscription_tier,
			created_at, updated_at, synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, 0)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Email, p.Username, p.AvatarURL, p.Tier,
		dbx.Millis(p.CreatedAt), dbx.Millis(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p Patch) (*models.Profile, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	query := `UPDATE profiles SET
			username = COALESCE(?, username),
			avatar_url = COALESCE(?, avatar_url),
			subscription_tier = COALESCE(?, subscription_tier),
			updated_at = ?,
			synced_at = NULL
		WHERE id = ?`
	var tier *string
	if p.Tier != nil {
		s := string(*p.Tier)
		tier = &s
	}
	res, err := r.db.ExecContext(ctx, query, p.Username, p.AvatarURL, tier, dbx.Millis(now), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
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
		`UPDATE profiles SET is_deleted = 1, updated_at = ?, synced_at = NULL WHERE id = ? AND is_deleted = 0`,
		dbx.Millis(now), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete profile: %w", err)
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

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ? AND is_deleted = 0`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) Dirty(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE synced_at IS NULL OR synced_at < updated_at ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty profiles: %w", err)
	}
	defer rows.Close()
	var result []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Stamp(ctx context.Context, id string) (bool, time.Time, bool, error) {
	var updated int64
	var synced sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT updated_at, synced_at FROM profiles WHERE id = ?`, id).
		Scan(&updated, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return false, time.Time{}, false, nil
	}
	if err != nil {
		return false, time.Time{}, false, fmt.Errorf("failed to stamp profile: %w", err)
	}
	dirty := !synced.Valid || synced.Int64 < updated
	return true, dbx.FromMillis(updated), dirty, nil
}

func (r *SQLiteRepository) ApplyRemote(ctx context.Context, p *models.Profile, syncedAt time.Time) error {
	query := `INSERT INTO profiles (id, user_id, email, username, avatar_url, subscription_tier,
			created_at, updated_at, synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			username = excluded.username,
			avatar_url = excluded.avatar_url,
			subscription_tier = excluded.subscription_tier,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at,
			is_deleted = excluded.is_deleted`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Email, p.Username, p.AvatarURL, p.Tier,
		dbx.Millis(p.CreatedAt), dbx.Millis(p.UpdatedAt), dbx.Millis(syncedAt), p.IsDeleted)
	if err != nil {
		return fmt.Errorf("failed to apply remote profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET synced_at = ? WHERE id = ? AND updated_at <= ?`,
		dbx.Millis(at), id, dbx.Millis(at))
	if err != nil {
		return fmt.Errorf("failed to mark profile synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ? AND is_deleted = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to purge profile: %w", err)
	}
	return nil
}
