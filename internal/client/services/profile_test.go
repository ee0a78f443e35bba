package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcana/internal/client/repositories/profiles"
	"arcana/internal/models"
	"arcana/internal/shared"
)

func TestEnsure_CreatesOnFirstLogin(t *testing.T) {
	notify := &countingNotifier{}
	s := NewProfileService(setupDB(t), testLogger(), notify)
	ctx := context.Background()

	p, err := s.Ensure(ctx, "u1", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, p.Tier)
	assert.Equal(t, 1, notify.n)

	// a second call returns the same profile without creating another
	again, err := s.Ensure(ctx, "u1", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, 1, notify.n)
}

func TestEnsure_RequiresUserID(t *testing.T) {
	s := NewProfileService(setupDB(t), testLogger(), nil)
	_, err := s.Ensure(context.Background(), "", "a@example.com")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateProfile(t *testing.T) {
	s := NewProfileService(setupDB(t), testLogger(), nil)
	ctx := context.Background()

	p, err := s.Ensure(ctx, "u1", "a@example.com")
	require.NoError(t, err)

	username := "moonchild"
	tier := models.TierPremium
	got, err := s.Update(ctx, p.ID, profiles.Patch{Username: &username, Tier: &tier})
	require.NoError(t, err)
	assert.Equal(t, "moonchild", got.Username)
	assert.Equal(t, models.TierPremium, got.Tier)

	fetched, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "moonchild", fetched.Username)
}
