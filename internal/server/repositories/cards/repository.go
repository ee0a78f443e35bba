package cards

import (
	"context"
	"time"

	"arcana/internal/common"
)

// Repository describes server-side persistence for card records. Cards carry
// no user_id; ownership goes through the deck they belong to.
type Repository interface {
	ListUpdatedSince(ctx context.Context, userID string, since *time.Time) ([]common.CardRecord, error)

	// Upsert stores the record. A card pointing at an unknown deck returns
	// shared.ErrValidation; a deck owned by another user returns
	// shared.ErrOwnershipDenied.
	Upsert(ctx context.Context, userID string, rec *common.CardRecord) error

	SoftDelete(ctx context.Context, userID string, id string, at time.Time) error
}
