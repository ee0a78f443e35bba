// Package services implements the client's use cases over the local
// repositories. Every mutation nudges the sync scheduler, so local writes
// reach the server shortly after the burst that produced them.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"arcana/internal/client/repositories/cards"
	"arcana/internal/client/repositories/decks"
	"arcana/internal/dbx"
	"arcana/internal/logging"
	"arcana/internal/models"
	"arcana/internal/shared"
)

// Notifier requests a background sync after a local mutation. The sync
// scheduler implements it; tests use a stub.
type Notifier interface {
	Notify()
}

// LibraryService manages decks and their cards. Card writes and the owning
// deck's card_count move in the same transaction.
type LibraryService struct {
	db     *sql.DB
	logger logging.Logger
	notify Notifier
}

// NewLibraryService returns a service over the local database. notify may be
// nil when no background sync is wanted.
func NewLibraryService(db *sql.DB, logger logging.Logger, notify Notifier) *LibraryService {
	return &LibraryService{db: db, logger: logger.With("service", "library"), notify: notify}
}

func (s *LibraryService) nudge() {
	if s.notify != nil {
		s.notify.Notify()
	}
}

func (s *LibraryService) CreateDeck(ctx context.Context, userID, name, description string) (*models.Deck, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: deck name is required", shared.ErrValidation)
	}
	d := &models.Deck{UserID: userID, Name: name, Description: description}
	if err := decks.NewSQLiteRepository(s.db).Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "deck created", "id", d.ID)
	s.nudge()
	return d, nil
}

func (s *LibraryService) UpdateDeck(ctx context.Context, id string, p decks.Patch) (*models.Deck, error) {
	d, err := decks.NewSQLiteRepository(s.db).Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.nudge()
	return d, nil
}

// DeleteDeck soft-deletes the deck together with its remaining cards.
func (s *LibraryService) DeleteDeck(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cardsRepo := cards.NewSQLiteRepository(tx)
		deckRepo := decks.NewSQLiteRepository(tx)
		active, err := cardsRepo.ListActive(ctx, id)
		if err != nil {
			return err
		}
		for _, c := range active {
			if err := cardsRepo.SoftDelete(ctx, c.ID); err != nil {
				return err
			}
			if err := deckRepo.BumpCardCount(ctx, id, -1); err != nil {
				return err
			}
		}
		return deckRepo.SoftDelete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "deck deleted", "id", id)
	s.nudge()
	return nil
}

func (s *LibraryService) GetDeck(ctx context.Context, id string) (*models.Deck, error) {
	d, err := decks.NewSQLiteRepository(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.IsDeleted {
		return nil, shared.ErrNotFound
	}
	return d, nil
}

func (s *LibraryService) ListDecks(ctx context.Context, userID string) ([]models.Deck, error) {
	return decks.NewSQLiteRepository(s.db).ListActive(ctx, userID)
}

// AddCard creates the card and bumps the deck's counter in one transaction.
func (s *LibraryService) AddCard(ctx context.Context, c *models.Card) error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: card title is required", shared.ErrValidation)
	}
	if c.DeckID == "" {
		return fmt.Errorf("%w: deck id is required", shared.ErrValidation)
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		deckRepo := decks.NewSQLiteRepository(tx)
		if _, err := deckRepo.GetByID(ctx, c.DeckID); err != nil {
			return err
		}
		if err := cards.NewSQLiteRepository(tx).Create(ctx, c); err != nil {
			return err
		}
		return deckRepo.BumpCardCount(ctx, c.DeckID, +1)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "card added", "id", c.ID, "deck", c.DeckID)
	s.nudge()
	return nil
}

func (s *LibraryService) UpdateCard(ctx context.Context, id string, p cards.Patch) (*models.Card, error) {
	c, err := cards.NewSQLiteRepository(s.db).Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.nudge()
	return c, nil
}

// RemoveCard soft-deletes the card and decrements the deck's counter in one
// transaction.
func (s *LibraryService) RemoveCard(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		cardsRepo := cards.NewSQLiteRepository(tx)
		c, err := cardsRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c.IsDeleted {
			return shared.ErrNotFound
		}
		if err := cardsRepo.SoftDelete(ctx, id); err != nil {
			return err
		}
		return decks.NewSQLiteRepository(tx).BumpCardCount(ctx, c.DeckID, -1)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "card removed", "id", id)
	s.nudge()
	return nil
}

func (s *LibraryService) ListCards(ctx context.Context, deckID string) ([]models.Card, error) {
	return cards.NewSQLiteRepository(s.db).ListActive(ctx, deckID)
}
