package readings

import (
	"context"
	"time"

	"arcana/internal/models"
)

// Patch holds the updatable fields of a Reading. Nil fields are left unchanged.
type Patch struct {
	Intention        *string
	CardPositions    *[]models.CardPosition
	AIInterpretation *string
}

// Repository describes local persistence for Reading records.
type Repository interface {
	Create(ctx context.Context, rd *models.Reading) error
	Update(ctx context.Context, id string, p Patch) (*models.Reading, error)
	SoftDelete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Reading, error)

	// ListActive returns the user's non-deleted readings, newest first.
	ListActive(ctx context.Context, userID string) ([]models.Reading, error)

	Dirty(ctx context.Context) ([]models.Reading, error)
	Stamp(ctx context.Context, id string) (found bool, updatedAt time.Time, dirty bool, err error)
	ApplyRemote(ctx context.Context, rd *models.Reading, syncedAt time.Time) error
	MarkSynced(ctx context.Context, id string, at time.Time) error
	Purge(ctx context.Context, id string) error
}
