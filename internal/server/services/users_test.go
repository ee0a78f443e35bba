package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcana/internal/server/auth"
	"arcana/internal/server/config"
	"arcana/internal/shared"
)

func newUserService() *UserService {
	return NewUserService(nil, newFakeManager(), &config.Config{
		SecretKey:             "test-secret",
		TokenValidityDuration: time.Hour,
	})
}

func TestRegister_IssuesValidToken(t *testing.T) {
	s := newUserService()

	sess, err := s.Register(context.Background(), "A@Example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.NotEmpty(t, sess.UserID)

	userID, err := auth.GetUserIDFromToken(sess.Token, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, userID)
}

func TestRegister_Validation(t *testing.T) {
	s := newUserService()
	ctx := context.Background()

	_, err := s.Register(ctx, "", "password123")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = s.Register(ctx, "a@example.com", "short")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := newUserService()
	ctx := context.Background()

	_, err := s.Register(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	_, err = s.Register(ctx, "a@example.com", "otherpassword")
	assert.ErrorIs(t, err, shared.ErrEmailAlreadyExists)
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	s := newUserService()
	ctx := context.Background()

	reg, err := s.Register(ctx, "Seer@Example.com", "password123")
	require.NoError(t, err)

	sess, err := s.Login(ctx, "  seer@example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, sess.UserID)
}

func TestLogin_BadCredentials(t *testing.T) {
	s := newUserService()
	ctx := context.Background()

	_, err := s.Register(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	_, err = s.Login(ctx, "a@example.com", "wrongpassword")
	assert.ErrorIs(t, err, shared.ErrInvalidEmailPassword)

	// unknown account looks exactly like a wrong password
	_, err = s.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, shared.ErrInvalidEmailPassword)
}
