package sync

import (
	"context"
	"encoding/json"
	"time"

	"arcana/internal/client/remote"
	"arcana/internal/client/repositories/cards"
	"arcana/internal/client/repositories/decks"
	"arcana/internal/client/repositories/journal"
	"arcana/internal/client/repositories/profiles"
	"arcana/internal/client/repositories/readings"
	"arcana/internal/models"
)

// PendingChange is one local mutation waiting to be pushed. Data is the wire
// record for upserts and nil for deletions. UpdatedAt is the snapshot's
// modification time, used to guard MarkSynced against mid-push mutations.
type PendingChange struct {
	ID          string
	Deleted     bool
	NeverSynced bool
	UpdatedAt   time.Time
	Data        json.RawMessage
}

// TableTracker adapts one entity repository to the engine. The engine itself
// never touches SQL or the typed models; it works on stamps, raw wire records
// and pending changes.
type TableTracker struct {
	Table models.Table

	// Stamp reports the local record's existence, modification time and dirty
	// state. Used for the last-write-wins decision during apply.
	Stamp func(ctx context.Context, id string) (found bool, updatedAt time.Time, dirty bool, err error)

	// Apply upserts a pulled wire record into the local store as synced.
	Apply func(ctx context.Context, raw json.RawMessage, syncedAt time.Time) error

	// Pending lists the local changes that have not been pushed.
	Pending func(ctx context.Context) ([]PendingChange, error)

	// MarkSynced records a confirmed push of the snapshot modified at at.
	// A record mutated after at stays dirty.
	MarkSynced func(ctx context.Context, id string, at time.Time) error

	// Purge removes a soft-deleted row once the remote deletion is confirmed.
	Purge func(ctx context.Context, id string) error
}

// syncRepo is the sync-metadata slice of a repository, identical across all
// entity types.
type syncRepo[T any] interface {
	Dirty(ctx context.Context) ([]T, error)
	Stamp(ctx context.Context, id string) (bool, time.Time, bool, error)
	MarkSynced(ctx context.Context, id string, at time.Time) error
	Purge(ctx context.Context, id string) error
}

// applier is the ApplyRemote slice of a repository.
type applier[T any] interface {
	ApplyRemote(ctx context.Context, v *T, syncedAt time.Time) error
}

func tracker[T any, R interface {
	syncRepo[T]
	applier[T]
}](
	table models.Table,
	repo R,
	decode func(json.RawMessage) (*T, error),
	encode func(*T) (json.RawMessage, error),
	meta func(*T) (id string, deleted bool, neverSynced bool, updatedAt time.Time),
) TableTracker {
	return TableTracker{
		Table: table,
		Stamp: repo.Stamp,
		Apply: func(ctx context.Context, raw json.RawMessage, syncedAt time.Time) error {
			v, err := decode(raw)
			if err != nil {
				return err
			}
			return repo.ApplyRemote(ctx, v, syncedAt)
		},
		Pending: func(ctx context.Context) ([]PendingChange, error) {
			dirty, err := repo.Dirty(ctx)
			if err != nil {
				return nil, err
			}
			changes := make([]PendingChange, 0, len(dirty))
			for i := range dirty {
				v := &dirty[i]
				id, deleted, neverSynced, updatedAt := meta(v)
				c := PendingChange{ID: id, Deleted: deleted, NeverSynced: neverSynced, UpdatedAt: updatedAt}
				if !deleted {
					if c.Data, err = encode(v); err != nil {
						return nil, err
					}
				}
				changes = append(changes, c)
			}
			return changes, nil
		},
		MarkSynced: repo.MarkSynced,
		Purge:      repo.Purge,
	}
}

// Trackers builds the per-table adapters in parent-first order, so a pulled
// card is never applied before its deck.
func Trackers(
	profilesRepo profiles.Repository,
	decksRepo decks.Repository,
	cardsRepo cards.Repository,
	readingsRepo readings.Repository,
	journalRepo journal.Repository,
) []TableTracker {
	return []TableTracker{
		tracker(models.TableProfiles, profilesRepo, remote.DecodeProfile, remote.EncodeProfile,
			func(p *models.Profile) (string, bool, bool, time.Time) {
				return p.ID, p.IsDeleted, p.SyncedAt == nil, p.UpdatedAt
			}),
		tracker(models.TableDecks, decksRepo, remote.DecodeDeck, remote.EncodeDeck,
			func(d *models.Deck) (string, bool, bool, time.Time) {
				return d.ID, d.IsDeleted, d.SyncedAt == nil, d.UpdatedAt
			}),
		tracker(models.TableCards, cardsRepo, remote.DecodeCard, remote.EncodeCard,
			func(c *models.Card) (string, bool, bool, time.Time) {
				return c.ID, c.IsDeleted, c.SyncedAt == nil, c.UpdatedAt
			}),
		tracker(models.TableReadings, readingsRepo, remote.DecodeReading, remote.EncodeReading,
			func(r *models.Reading) (string, bool, bool, time.Time) {
				return r.ID, r.IsDeleted, r.SyncedAt == nil, r.UpdatedAt
			}),
		tracker(models.TableJournalEntries, journalRepo, remote.DecodeJournalEntry, remote.EncodeJournalEntry,
			func(e *models.JournalEntry) (string, bool, bool, time.Time) {
				return e.ID, e.IsDeleted, e.SyncedAt == nil, e.UpdatedAt
			}),
	}
}
