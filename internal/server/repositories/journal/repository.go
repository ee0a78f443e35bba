package journal

import (
	"context"
	"time"

	"arcana/internal/common"
)

// Repository describes server-side persistence for journal entry records.
// Entries carry no user_id; ownership goes through the reading they belong to.
type Repository interface {
	ListUpdatedSince(ctx context.Context, userID string, since *time.Time) ([]common.JournalEntryRecord, error)

	// Upsert stores the record. An entry pointing at an unknown reading
	// returns shared.ErrValidation; a reading owned by another user returns
	// shared.ErrOwnershipDenied.
	Upsert(ctx context.Context, userID string, rec *common.JournalEntryRecord) error

	SoftDelete(ctx context.Context, userID string, id string, at time.Time) error
}
