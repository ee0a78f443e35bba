package readings

import (
	"context"
	"time"

	"arcana/internal/common"
)

// Repository describes server-side persistence for reading records. Upsert is
// last-write-wins, matching the deck repository.
type Repository interface {
	ListUpdatedSince(ctx context.Context, userID string, since *time.Time) ([]common.ReadingRecord, error)
	Upsert(ctx context.Context, userID string, rec *common.ReadingRecord) error
	SoftDelete(ctx context.Context, userID string, id string, at time.Time) error
}
