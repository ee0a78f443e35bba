package users

import (
	"context"

	"arcana/internal/server/models"
)

// Repository describes persistence for user accounts.
type Repository interface {
	// Create inserts the user and fills in the generated id. A duplicate
	// email returns shared.ErrEmailAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByEmail returns the user or shared.ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
