package decks

import (
	"context"
	"time"

	"arcana/internal/common"
)

// Repository describes server-side persistence for deck records.
//
// Upsert is last-write-wins: an incoming record older than the stored row is
// silently dropped, which keeps replays and out-of-order pushes idempotent.
type Repository interface {
	// ListUpdatedSince returns the user's decks changed after since, tombstones
	// included. A nil since returns everything.
	ListUpdatedSince(ctx context.Context, userID string, since *time.Time) ([]common.DeckRecord, error)

	// Upsert stores the record under the user. A record owned by another user
	// returns shared.ErrOwnershipDenied.
	Upsert(ctx context.Context, userID string, rec *common.DeckRecord) error

	// SoftDelete tombstones the record at the given instant. Deleting an
	// unknown id is a no-op.
	SoftDelete(ctx context.Context, userID string, id string, at time.Time) error
}
