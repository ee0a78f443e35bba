// Package metadata persists small key/value state that survives restarts,
// most importantly the pull watermark of the sync engine.
package metadata

import "context"

// Well-known metadata keys.
const (
	KeyPullWatermark = "pull_watermark"
	KeyDeviceID      = "device_id"
)

// Repository is a generic key/value store backed by the local database.
type Repository interface {
	// Get returns the stored value, or (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value, overwriting any previous one.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
