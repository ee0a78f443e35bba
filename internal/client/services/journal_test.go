package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcana/internal/client/repositories/journal"
	"arcana/internal/client/repositories/readings"
	"arcana/internal/models"
	"arcana/internal/shared"
)

func TestCreateReading_Validation(t *testing.T) {
	s := NewJournalService(setupDB(t), testLogger(), nil)
	ctx := context.Background()

	assert.ErrorIs(t, s.CreateReading(ctx, &models.Reading{DeckID: "d", Spread: models.SpreadSingle}), shared.ErrValidation)
	assert.ErrorIs(t, s.CreateReading(ctx, &models.Reading{UserID: "u", Spread: models.SpreadSingle}), shared.ErrValidation)
	assert.ErrorIs(t, s.CreateReading(ctx, &models.Reading{UserID: "u", DeckID: "d"}), shared.ErrValidation)

	r := &models.Reading{UserID: "u", DeckID: "d", Spread: models.SpreadThreeCard}
	require.NoError(t, s.CreateReading(ctx, r))
	assert.NotEmpty(t, r.ID)
}

func TestAddEntry_RequiresLiveReading(t *testing.T) {
	s := NewJournalService(setupDB(t), testLogger(), nil)
	ctx := context.Background()

	err := s.AddEntry(ctx, &models.JournalEntry{ReadingID: "missing", Content: "c"})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, s.AddEntry(ctx, &models.JournalEntry{ReadingID: "r"}), shared.ErrValidation)
	assert.ErrorIs(t, s.AddEntry(ctx, &models.JournalEntry{Content: "c"}), shared.ErrValidation)

	r := &models.Reading{UserID: "u", DeckID: "d", Spread: models.SpreadSingle}
	require.NoError(t, s.CreateReading(ctx, r))
	e := &models.JournalEntry{ReadingID: r.ID, Content: "felt seen"}
	require.NoError(t, s.AddEntry(ctx, e))

	entries, err := s.ListEntries(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)
}

func TestDeleteReading_CascadesToEntries(t *testing.T) {
	db := setupDB(t)
	s := NewJournalService(db, testLogger(), nil)
	ctx := context.Background()

	r := &models.Reading{UserID: "u", DeckID: "d", Spread: models.SpreadSingle}
	require.NoError(t, s.CreateReading(ctx, r))
	e := &models.JournalEntry{ReadingID: r.ID, Content: "c"}
	require.NoError(t, s.AddEntry(ctx, e))

	require.NoError(t, s.DeleteReading(ctx, r.ID))

	_, err := s.GetReading(ctx, r.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	reading, err := readings.NewSQLiteRepository(db).GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, reading.IsDeleted)
	entry, err := journal.NewSQLiteRepository(db).GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, entry.IsDeleted)
}

func TestUpdateReading_SetsInterpretation(t *testing.T) {
	s := NewJournalService(setupDB(t), testLogger(), nil)
	ctx := context.Background()

	r := &models.Reading{UserID: "u", DeckID: "d", Spread: models.SpreadSingle}
	require.NoError(t, s.CreateReading(ctx, r))

	text := "change is coming"
	got, err := s.UpdateReading(ctx, r.ID, readings.Patch{AIInterpretation: &text})
	require.NoError(t, err)
	assert.Equal(t, "change is coming", got.AIInterpretation)
}
