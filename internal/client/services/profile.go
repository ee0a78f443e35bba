package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"arcana/internal/client/repositories/profiles"
	"arcana/internal/logging"
	"arcana/internal/models"
	"arcana/internal/shared"
)

// ProfileService manages the local user profile.
type ProfileService struct {
	db     *sql.DB
	logger logging.Logger
	notify Notifier
}

// NewProfileService returns a service over the local database.
func NewProfileService(db *sql.DB, logger logging.Logger, notify Notifier) *ProfileService {
	return &ProfileService{db: db, logger: logger.With("service", "profile"), notify: notify}
}

func (s *ProfileService) nudge() {
	if s.notify != nil {
		s.notify.Notify()
	}
}

// Ensure returns the profile for the user, creating a fresh free-tier one on
// first login.
func (s *ProfileService) Ensure(ctx context.Context, userID, email string) (*models.Profile, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrValidation)
	}
	repo := profiles.NewSQLiteRepository(s.db)
	p, err := repo.GetByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	p = &models.Profile{UserID: userID, Email: email, Tier: models.TierFree}
	if err := repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "profile created", "id", p.ID)
	s.nudge()
	return p, nil
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	return profiles.NewSQLiteRepository(s.db).GetByUserID(ctx, userID)
}

func (s *ProfileService) Update(ctx context.Context, id string, p profiles.Patch) (*models.Profile, error) {
	updated, err := profiles.NewSQLiteRepository(s.db).Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.nudge()
	return updated, nil
}
