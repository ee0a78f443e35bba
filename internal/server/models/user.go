// Package models holds the server-only database models. The synced entity
// tables go through the wire records in internal/common directly.
package models

import "time"

// User is an account row. Entity records reference it through user_id.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
