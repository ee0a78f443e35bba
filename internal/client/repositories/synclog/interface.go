// Package synclog tracks per-record push rejections so the engine can stop
// retrying records the server keeps refusing.
package synclog

import (
	"context"

	"arcana/internal/models"
)

// Entry is one rejection counter for a (table, record) pair.
type Entry struct {
	Table      models.Table
	RecordID   string
	Rejections int
	LastError  string
}

// Repository persists rejection counters across sync cycles.
type Repository interface {
	// RecordRejection increments the counter for the record and returns the
	// new count.
	RecordRejection(ctx context.Context, table models.Table, id string, reason string) (int, error)

	// Rejections returns the current counter, zero when the record has no
	// recorded rejections.
	Rejections(ctx context.Context, table models.Table, id string) (int, error)

	// Clear drops the counter after a successful push of the record.
	Clear(ctx context.Context, table models.Table, id string) error

	// List returns all entries with at least one rejection, for diagnostics.
	List(ctx context.Context) ([]Entry, error)
}
