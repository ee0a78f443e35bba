// Package common defines the wire contract of the delta sync protocol, shared
// by the client gateway and the server handlers.
//
// Wire timestamps are RFC 3339 strings. List fields travel as JSON arrays;
// converting them to and from the typed model slices happens in this package
// and nowhere else.
package common

import (
	"encoding/json"
	"time"
)

// Push operation kinds accepted by the delta endpoint.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// AuthHeaderName is the HTTP header carrying the bearer token.
const AuthHeaderName = "Authorization"

// PushOp is one client-side mutation to replay against the remote store.
// Data holds the table-specific record (see the *Record types); it is empty
// for OpDelete.
type PushOp struct {
	Table     string          `json:"table"`
	Operation string          `json:"operation"`
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// PushResult reports the outcome of a single PushOp.
type PushResult struct {
	Table   string `json:"table"`
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DeltaRequest is the body of POST /sync/delta. A nil PullSince requests a
// full pull; an empty PushOps performs no writes.
type DeltaRequest struct {
	PullSince *time.Time `json:"pull_since"`
	PushOps   []PushOp   `json:"push_ops,omitempty"`
}

// DeltaResponse carries per-op push outcomes, pulled records grouped by
// table, and the server clock reading that anchors the next pull watermark.
type DeltaResponse struct {
	PushResults     []PushResult                 `json:"push_results"`
	PullChanges     map[string][]json.RawMessage `json:"pull_changes"`
	ServerTimestamp time.Time                    `json:"server_timestamp"`
}

// RecordStamp is the envelope every wire record shares. It is enough to make
// the last-write-wins decision without decoding the table-specific payload.
type RecordStamp struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
	IsDeleted bool      `json:"is_deleted"`
}

// DecodeStamp extracts the shared envelope from a raw wire record.
func DecodeStamp(raw json.RawMessage) (RecordStamp, error) {
	var s RecordStamp
	err := json.Unmarshal(raw, &s)
	return s, err
}

// ProfileRecord is the wire form of models.Profile.
type ProfileRecord struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Email            string    `json:"email"`
	Username         string    `json:"username,omitempty"`
	AvatarURL        string    `json:"avatar_url,omitempty"`
	SubscriptionTier string    `json:"subscription_tier"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	IsDeleted        bool      `json:"is_deleted"`
}

// DeckRecord is the wire form of models.Deck.
type DeckRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	CardCount     int       `json:"card_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	IsDeleted     bool      `json:"is_deleted"`
}

// CardRecord is the wire form of models.Card.
type CardRecord struct {
	ID            string    `json:"id"`
	DeckID        string    `json:"deck_id"`
	Title         string    `json:"title"`
	Meaning       string    `json:"meaning,omitempty"`
	Keywords      []string  `json:"keywords"`
	StyleTemplate string    `json:"style_template,omitempty"`
	Symbols       []string  `json:"symbols"`
	ImageURL      string    `json:"image_url,omitempty"`
	Position      int       `json:"position"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	IsDeleted     bool      `json:"is_deleted"`
}

// CardPositionRecord mirrors models.CardPosition on the wire.
type CardPositionRecord struct {
	CardID          string `json:"card_id"`
	Position        int    `json:"position"`
	PositionMeaning string `json:"position_meaning,omitempty"`
}

// ReadingRecord is the wire form of models.Reading.
type ReadingRecord struct {
	ID               string               `json:"id"`
	UserID           string               `json:"user_id"`
	DeckID           string               `json:"deck_id"`
	SpreadType       string               `json:"spread_type"`
	Intention        string               `json:"intention,omitempty"`
	CardPositions    []CardPositionRecord `json:"card_positions"`
	AIInterpretation string               `json:"ai_interpretation,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	IsDeleted        bool                 `json:"is_deleted"`
}

// JournalEntryRecord is the wire form of models.JournalEntry.
type JournalEntryRecord struct {
	ID        string    `json:"id"`
	ReadingID string    `json:"reading_id"`
	Content   string    `json:"content"`
	Mood      string    `json:"mood,omitempty"`
	Tags      []string  `json:"tags"`
	PhotoURLs []string  `json:"photo_urls"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsDeleted bool      `json:"is_deleted"`
}
