package journal

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcana/internal/client/store"
	"arcana/internal/models"
	"arcana/internal/shared"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreate_RoundTripsTagsAndPhotos(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := &models.JournalEntry{
		ReadingID: "r1",
		Content:   "the cards felt right today",
		Mood:      "calm",
		Tags:      []string{"morning", "full-moon"},
		PhotoURLs: []string{"https://example.com/spread.jpg"},
	}
	require.NoError(t, r.Create(ctx, e))
	assert.NotEmpty(t, e.ID)

	got, err := r.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"morning", "full-moon"}, got.Tags)
	assert.Equal(t, []string{"https://example.com/spread.jpg"}, got.PhotoURLs)
	assert.True(t, got.Dirty())
}

func TestUpdate_PatchAndRedirty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	e := &models.JournalEntry{ReadingID: "r1", Content: "old", Mood: "tense"}
	require.NoError(t, r.Create(ctx, e))
	require.NoError(t, r.MarkSynced(ctx, e.ID, time.Now().UTC().Add(time.Second)))

	content := "revised"
	tags := []string{"edited"}
	got, err := r.Update(ctx, e.ID, Patch{Content: &content, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "revised", got.Content)
	assert.Equal(t, "tense", got.Mood)
	assert.Equal(t, []string{"edited"}, got.Tags)
	assert.True(t, got.Dirty())

	_, err = r.Update(ctx, "missing", Patch{Content: &content})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListActive_ScopedToReading(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	a := &models.JournalEntry{ReadingID: "r1", Content: "a"}
	require.NoError(t, r.Create(ctx, a))
	gone := &models.JournalEntry{ReadingID: "r1", Content: "gone"}
	require.NoError(t, r.Create(ctx, gone))
	require.NoError(t, r.SoftDelete(ctx, gone.ID))
	other := &models.JournalEntry{ReadingID: "r2", Content: "other"}
	require.NoError(t, r.Create(ctx, other))

	got, err := r.ListActive(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}

func TestApplyRemoteMarkSyncedPurge(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	remote := &models.JournalEntry{ID: "e1", ReadingID: "r1", Content: "pulled"}
	remote.CreatedAt = now
	remote.UpdatedAt = now
	require.NoError(t, r.ApplyRemote(ctx, remote, now))

	got, err := r.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, got.Dirty())

	require.NoError(t, r.SoftDelete(ctx, "e1"))
	dirty, err := r.Dirty(ctx)
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.True(t, dirty[0].IsDeleted)

	require.NoError(t, r.Purge(ctx, "e1"))
	found, _, _, err := r.Stamp(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, found)
}
