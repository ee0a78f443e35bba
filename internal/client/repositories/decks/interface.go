package decks

import (
	"context"
	"time"

	"arcana/internal/models"
)

// Patch holds the updatable fields of a Deck. Nil fields are left unchanged.
type Patch struct {
	Name          *string
	Description   *string
	CoverImageURL *string
}

// Repository describes local persistence for Deck records, including the
// sync-metadata operations the delta engine relies on.
type Repository interface {
	// Create persists a new deck. A missing ID is assigned; created_at and
	// updated_at are set to now and the record starts dirty (never synced).
	Create(ctx context.Context, d *models.Deck) error

	// Update merges the non-nil patch fields, bumps updated_at and re-marks
	// the record dirty. Returns shared.ErrNotFound for an unknown id.
	Update(ctx context.Context, id string, p Patch) (*models.Deck, error)

	// SoftDelete marks the deck deleted and dirty without removing the row.
	SoftDelete(ctx context.Context, id string) error

	// GetByID returns the deck regardless of its deleted flag.
	GetByID(ctx context.Context, id string) (*models.Deck, error)

	// ListActive returns the user's non-deleted decks, newest first.
	ListActive(ctx context.Context, userID string) ([]models.Deck, error)

	// Dirty returns every deck whose changes have not been pushed.
	Dirty(ctx context.Context) ([]models.Deck, error)

	// Stamp returns the existence, modification time and dirty state of a
	// deck without loading its payload.
	Stamp(ctx context.Context, id string) (found bool, updatedAt time.Time, dirty bool, err error)

	// ApplyRemote upserts a pulled remote deck as synced. created_at is
	// preserved for an existing row. Re-applying the same snapshot is a no-op
	// apart from synced_at.
	ApplyRemote(ctx context.Context, d *models.Deck, syncedAt time.Time) error

	// MarkSynced records a successful push of the state as of at. Records
	// modified after at are left dirty.
	MarkSynced(ctx context.Context, id string, at time.Time) error

	// Purge physically removes a soft-deleted deck after the remote deletion
	// has been confirmed.
	Purge(ctx context.Context, id string) error

	// BumpCardCount adjusts the denormalized card counter and re-marks the
	// deck dirty. Callers run it in the same transaction as the Card write.
	BumpCardCount(ctx context.Context, id string, delta int) error
}
