package dbx

import (
	"database/sql"
	"time"
)

// Timestamps are stored as integer Unix milliseconds. Millisecond precision
// is what the sync protocol compares on, so values must round-trip exactly.

// Millis converts t to Unix milliseconds for storage.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts a stored millisecond timestamp back to UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// NullMillis converts an optional timestamp for storage; nil maps to NULL.
func NullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

// TimePtr converts a nullable stored timestamp back to an optional time.
func TimePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
