// Package models defines the synchronizable entity types shared by the local
// store, the sync engine and the remote gateway.
//
// Every entity embeds SyncMeta, which carries the lifecycle timestamps the
// delta protocol is built on. List-valued fields (keywords, tags, card
// positions) are real slices here; they are serialized to JSON text only at
// the SQLite column and HTTP wire boundaries.
package models

import "time"

// Table identifies a synchronizable entity table.
type Table string

const (
	TableProfiles       Table = "profiles"
	TableDecks          Table = "decks"
	TableCards          Table = "cards"
	TableReadings       Table = "readings"
	TableJournalEntries Table = "journal_entries"
)

// SyncOrder lists the syncable tables parent-first, so that a pulled Card
// never references a Deck that has not been applied yet.
var SyncOrder = []Table{
	TableProfiles,
	TableDecks,
	TableCards,
	TableReadings,
	TableJournalEntries,
}

// Syncable reports whether t is one of the tables the delta protocol accepts.
func Syncable(t Table) bool {
	for _, s := range SyncOrder {
		if s == t {
			return true
		}
	}
	return false
}

// SyncMeta is the lifecycle metadata common to all syncable records.
type SyncMeta struct {
	// CreatedAt is set once at creation and never changes.
	CreatedAt time.Time

	// UpdatedAt is bumped on every local or remote mutation. It drives both
	// conflict resolution (last-write-wins) and delta detection.
	UpdatedAt time.Time

	// SyncedAt is the last instant local state was confirmed to match the
	// remote store. Nil means the record has never been synced.
	SyncedAt *time.Time

	// IsDeleted marks a soft-deleted record. The row is kept locally until a
	// push confirms the remote deletion, after which it may be purged.
	IsDeleted bool
}

// Dirty reports whether the record has local changes not yet pushed.
func (m SyncMeta) Dirty() bool {
	return m.SyncedAt == nil || m.SyncedAt.Before(m.UpdatedAt)
}

// SubscriptionTier is the billing tier carried on a Profile.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
	TierPro     SubscriptionTier = "pro"
)

// Profile is the 1:1 record for a user identity.
type Profile struct {
	ID        string
	UserID    string
	Email     string
	Username  string
	AvatarURL string
	Tier      SubscriptionTier
	SyncMeta
}

// Deck owns an ordered set of Cards. CardCount is a denormalized counter
// maintained alongside Card creation/deletion in the same transaction.
type Deck struct {
	ID            string
	UserID        string
	Name          string
	Description   string
	CoverImageURL string
	CardCount     int
	SyncMeta
}

// Card belongs to a Deck and is ordered by Position within it.
type Card struct {
	ID            string
	DeckID        string
	Title         string
	Meaning       string
	Keywords      []string
	StyleTemplate string
	Symbols       []string
	ImageURL      string
	Position      int
	SyncMeta
}

// SpreadType names the layout used for a reading.
type SpreadType string

const (
	SpreadSingle      SpreadType = "single"
	SpreadThreeCard   SpreadType = "three-card"
	SpreadFiveCard    SpreadType = "five-card"
	SpreadCelticCross SpreadType = "celtic-cross"
	SpreadCustom      SpreadType = "custom"
)

// CardPosition assigns a card to a slot of a spread.
type CardPosition struct {
	CardID          string `json:"card_id"`
	Position        int    `json:"position"`
	PositionMeaning string `json:"position_meaning,omitempty"`
}

// Reading records one card-draw session: a spread, the drawn card positions
// and the optional AI interpretation text.
type Reading struct {
	ID               string
	UserID           string
	DeckID           string
	Spread           SpreadType
	Intention        string
	CardPositions    []CardPosition
	AIInterpretation string
	SyncMeta
}

// JournalEntry is a reflection attached to a Reading.
type JournalEntry struct {
	ID        string
	ReadingID string
	Content   string
	Mood      string
	Tags      []string
	PhotoURLs []string
	SyncMeta
}
