package cards

import (
	"context"
	"time"

	"arcana/internal/models"
)

// Patch holds the updatable fields of a Card. Nil fields are left unchanged.
type Patch struct {
	Title         *string
	Meaning       *string
	Keywords      *[]string
	StyleTemplate *string
	Symbols       *[]string
	ImageURL      *string
	Position      *int
}

// Repository describes local persistence for Card records.
//
// Creating or soft-deleting a card does not touch the owning deck's
// card_count; the service layer pairs those calls with decks.BumpCardCount
// inside one transaction.
type Repository interface {
	Create(ctx context.Context, c *models.Card) error
	Update(ctx context.Context, id string, p Patch) (*models.Card, error)
	SoftDelete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Card, error)

	// ListActive returns the deck's non-deleted cards ordered by position.
	ListActive(ctx context.Context, deckID string) ([]models.Card, error)

	// CountActive returns the number of non-deleted cards in the deck.
	CountActive(ctx context.Context, deckID string) (int, error)

	Dirty(ctx context.Context) ([]models.Card, error)
	Stamp(ctx context.Context, id string) (found bool, updatedAt time.Time, dirty bool, err error)
	ApplyRemote(ctx context.Context, c *models.Card, syncedAt time.Time) error
	MarkSynced(ctx context.Context, id string, at time.Time) error
	Purge(ctx context.Context, id string) error
}
