package profiles

import (
	"context"
	"time"

	"arcana/internal/models"
)

// Patch holds the updatable fields of a Profile. Nil fields are left unchanged.
type Patch struct {
	Username  *string
	AvatarURL *string
	Tier      *models.SubscriptionTier
}

// Repository describes local persistence for Profile records.
type Repository interface {
	// Create persists a new profile. A missing ID is assigned; the record
	// starts dirty.
	Create(ctx context.Context, p *models.Profile) error

	// Update merges the non-nil patch fields, bumps updated_at and re-marks
	// the record dirty. Returns shared.ErrNotFound for an unknown id.
	Update(ctx context.Context, id string, p Patch) (*models.Profile, error)

	// SoftDelete marks the profile deleted and dirty without removing the row.
	SoftDelete(ctx context.Context, id string) error

	// GetByID returns the profile regardless of its deleted flag.
	GetByID(ctx context.Context, id string) (*models.Profile, error)

	// GetByUserID returns the non-deleted profile for a user, if any.
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)

	// Dirty returns every profile whose changes have not been pushed.
	Dirty(ctx context.Context) ([]models.Profile, error)

	// Stamp returns the existence, modification time and dirty state of a
	// profile without loading its payload.
	Stamp(ctx context.Context, id string) (found bool, updatedAt time.Time, dirty bool, err error)

	// ApplyRemote upserts a pulled remote profile as synced.
	ApplyRemote(ctx context.Context, p *models.Profile, syncedAt time.Time) error

	// MarkSynced records a successful push of the state as of at. Records
	// modified after at are left dirty.
	MarkSynced(ctx context.Context, id string, at time.Time) error

	// Purge physically removes a soft-deleted profile after the remote
	// deletion has been confirmed.
	Purge(ctx context.Context, id string) error
}
