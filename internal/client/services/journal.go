package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"arcana/internal/client/repositories/journal"
	"arcana/internal/client/repositories/readings"
	"arcana/internal/dbx"
	"arcana/internal/logging"
	"arcana/internal/models"
	"arcana/internal/shared"
)

// JournalService manages readings and the journal entries attached to them.
type JournalService struct {
	db     *sql.DB
	logger logging.Logger
	notify Notifier
}

// NewJournalService returns a service over the local database.
func NewJournalService(db *sql.DB, logger logging.Logger, notify Notifier) *JournalService {
	return &JournalService{db: db, logger: logger.With("service", "journal"), notify: notify}
}

func (s *JournalService) nudge() {
	if s.notify != nil {
		s.notify.Notify()
	}
}

func (s *JournalService) CreateReading(ctx context.Context, r *models.Reading) error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user id is required", shared.ErrValidation)
	}
	if r.DeckID == "" {
		return fmt.Errorf("%w: deck id is required", shared.ErrValidation)
	}
	if r.Spread == "" {
		return fmt.Errorf("%w: spread type is required", shared.ErrValidation)
	}
	if err := readings.NewSQLiteRepository(s.db).Create(ctx, r); err != nil {
		return err
	}
	s.logger.Info(ctx, "reading created", "id", r.ID, "spread", r.Spread)
	s.nudge()
	return nil
}

func (s *JournalService) UpdateReading(ctx context.Context, id string, p readings.Patch) (*models.Reading, error) {
	r, err := readings.NewSQLiteRepository(s.db).Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.nudge()
	return r, nil
}

// DeleteReading soft-deletes the reading together with its journal entries.
func (s *JournalService) DeleteReading(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		entriesRepo := journal.NewSQLiteRepository(tx)
		entries, err := entriesRepo.ListActive(ctx, id)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := entriesRepo.SoftDelete(ctx, e.ID); err != nil {
				return err
			}
		}
		return readings.NewSQLiteRepository(tx).SoftDelete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "reading deleted", "id", id)
	s.nudge()
	return nil
}

func (s *JournalService) GetReading(ctx context.Context, id string) (*models.Reading, error) {
	r, err := readings.NewSQLiteRepository(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.IsDeleted {
		return nil, shared.ErrNotFound
	}
	return r, nil
}

func (s *JournalService) ListReadings(ctx context.Context, userID string) ([]models.Reading, error) {
	return readings.NewSQLiteRepository(s.db).ListActive(ctx, userID)
}

func (s *JournalService) AddEntry(ctx context.Context, e *models.JournalEntry) error {
	if strings.TrimSpace(e.Content) == "" {
		return fmt.Errorf("%w: entry content is required", shared.ErrValidation)
	}
	if e.ReadingID == "" {
		return fmt.Errorf("%w: reading id is required", shared.ErrValidation)
	}
	if _, err := s.GetReading(ctx, e.ReadingID); err != nil {
		return err
	}
	if err := journal.NewSQLiteRepository(s.db).Create(ctx, e); err != nil {
		return err
	}
	s.logger.Info(ctx, "journal entry added", "id", e.ID, "reading", e.ReadingID)
	s.nudge()
	return nil
}

func (s *JournalService) UpdateEntry(ctx context.Context, id string, p journal.Patch) (*models.JournalEntry, error) {
	e, err := journal.NewSQLiteRepository(s.db).Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.nudge()
	return e, nil
}

func (s *JournalService) DeleteEntry(ctx context.Context, id string) error {
	if err := journal.NewSQLiteRepository(s.db).SoftDelete(ctx, id); err != nil {
		return err
	}
	s.nudge()
	return nil
}

func (s *JournalService) ListEntries(ctx context.Context, readingID string) ([]models.JournalEntry, error) {
	return journal.NewSQLiteRepository(s.db).ListActive(ctx, readingID)
}
