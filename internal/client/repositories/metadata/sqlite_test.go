package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcana/internal/client/store"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestGet_MissingKeyReturnsNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), KeyPullWatermark)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSet_UpsertsValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeyDeviceID, []byte("dev-1")))
	v, err := r.Get(ctx, KeyDeviceID)
	require.NoError(t, err)
	assert.Equal(t, []byte("dev-1"), v)

	require.NoError(t, r.Set(ctx, KeyDeviceID, []byte("dev-2")))
	v, err = r.Get(ctx, KeyDeviceID)
	require.NoError(t, err)
	assert.Equal(t, []byte("dev-2"), v)
}

func TestDelete_IsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, KeyPullWatermark, []byte("2026-01-01T00:00:00Z")))
	require.NoError(t, r.Delete(ctx, KeyPullWatermark))

	v, err := r.Get(ctx, KeyPullWatermark)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, r.Delete(ctx, KeyPullWatermark))
}
