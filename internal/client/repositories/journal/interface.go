package journal

import (
	"context"
	"time"

	"arcana/internal/models"
)

// Patch holds the updatable fields of a JournalEntry. Nil fields are left
// unchanged.
type Patch struct {
	Content   *string
	Mood      *string
	Tags      *[]string
	PhotoURLs *[]string
}

// Repository describes local persistence for JournalEntry records.
type Repository interface {
	Create(ctx context.Context, e *models.JournalEntry) error
	Update(ctx context.Context, id string, p Patch) (*models.JournalEntry, error)
	SoftDelete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.JournalEntry, error)

	// ListActive returns the reading's non-deleted entries, newest first.
	ListActive(ctx context.Context, readingID string) ([]models.JournalEntry, error)

	Dirty(ctx context.Context) ([]models.JournalEntry, error)
	Stamp(ctx context.Context, id string) (found bool, updatedAt time.Time, dirty bool, err error)
	ApplyRemote(ctx context.Context, e *models.JournalEntry, syncedAt time.Time) error
	MarkSynced(ctx context.Context, id string, at time.Time) error
	Purge(ctx context.Context, id string) error
}
