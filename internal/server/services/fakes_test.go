package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	stdsync "sync"
	"time"

	"arcana/internal/common"
	"arcana/internal/dbx"
	"arcana/internal/logging"
	"arcana/internal/server/models"
	"arcana/internal/server/repositories/cards"
	"arcana/internal/server/repositories/decks"
	"arcana/internal/server/repositories/journal"
	"arcana/internal/server/repositories/profiles"
	"arcana/internal/server/repositories/readings"
	"arcana/internal/server/repositories/users"
	"arcana/internal/shared"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// memUsers is an in-memory users.Repository.
type memUsers struct {
	mu      stdsync.Mutex
	byEmail map[string]*models.User
	seq     int
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*models.User{}}
}

func (m *memUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[user.Email]; ok {
		return nil, shared.ErrEmailAlreadyExists
	}
	m.seq++
	u := *user
	u.ID = fmt.Sprintf("user-%d", m.seq)
	u.CreatedAt = time.Now().UTC()
	m.byEmail[u.Email] = &u
	return &u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *u
	return &out, nil
}

// memDecks is an in-memory decks.Repository with the same last-write-wins and
// ownership semantics as the real one.
type memDecks struct {
	mu    stdsync.Mutex
	recs  map[string]common.DeckRecord
	owner map[string]string
}

func newMemDecks() *memDecks {
	return &memDecks{recs: map[string]common.DeckRecord{}, owner: map[string]string{}}
}

func (m *memDecks) ListUpdatedSince(ctx context.Context, userID string, since *time.Time) ([]common.DeckRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []common.DeckRecord
	for id, rec := range m.recs {
		if m.owner[id] != userID {
			continue
		}
		if since != nil && !rec.UpdatedAt.After(*since) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *memDecks) Upsert(ctx context.Context, userID string, rec *common.DeckRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.owner[rec.ID]; ok && owner != userID {
		return shared.ErrOwnershipDenied
	}
	if existing, ok := m.recs[rec.ID]; ok && existing.UpdatedAt.After(rec.UpdatedAt) {
		return nil
	}
	stored := *rec
	stored.UserID = userID
	m.recs[rec.ID] = stored
	m.owner[rec.ID] = userID
	return nil
}

func (m *memDecks) SoftDelete(ctx context.Context, userID string, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owner[id]
	if !ok {
		return nil
	}
	if owner != userID {
		return shared.ErrOwnershipDenied
	}
	rec := m.recs[id]
	rec.IsDeleted = true
	rec.UpdatedAt = at
	m.recs[id] = rec
	return nil
}

type emptyProfiles struct{}

func (emptyProfiles) ListUpdatedSince(context.Context, string, *time.Time) ([]common.ProfileRecord, error) {
	return nil, nil
}
func (emptyProfiles) Upsert(context.Context, string, *common.ProfileRecord) error       { return nil }
func (emptyProfiles) SoftDelete(context.Context, string, string, time.Time) error       { return nil }

type emptyCards struct{}

func (emptyCards) ListUpdatedSince(context.Context, string, *time.Time) ([]common.CardRecord, error) {
	return nil, nil
}
func (emptyCards) Upsert(context.Context, string, *common.CardRecord) error       { return nil }
func (emptyCards) SoftDelete(context.Context, string, string, time.Time) error    { return nil }

type emptyReadings struct{}

func (emptyReadings) ListUpdatedSince(context.Context, string, *time.Time) ([]common.ReadingRecord, error) {
	return nil, nil
}
func (emptyReadings) Upsert(context.Context, string, *common.ReadingRecord) error    { return nil }
func (emptyReadings) SoftDelete(context.Context, string, string, time.Time) error    { return nil }

type emptyJournal struct{}

func (emptyJournal) ListUpdatedSince(context.Context, string, *time.Time) ([]common.JournalEntryRecord, error) {
	return nil, nil
}
func (emptyJournal) Upsert(context.Context, string, *common.JournalEntryRecord) error { return nil }
func (emptyJournal) SoftDelete(context.Context, string, string, time.Time) error      { return nil }

// fakeManager vends the in-memory repositories. The DBTX argument is ignored.
type fakeManager struct {
	users *memUsers
	decks *memDecks
}

func newFakeManager() *fakeManager {
	return &fakeManager{users: newMemUsers(), decks: newMemDecks()}
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository              { return m.users }
func (m *fakeManager) Profiles(dbx.DBTX) profiles.Repository        { return emptyProfiles{} }
func (m *fakeManager) Decks(dbx.DBTX) decks.Repository              { return m.decks }
func (m *fakeManager) Cards(dbx.DBTX) cards.Repository              { return emptyCards{} }
func (m *fakeManager) Readings(dbx.DBTX) readings.Repository        { return emptyReadings{} }
func (m *fakeManager) Journal(dbx.DBTX) journal.Repository          { return emptyJournal{} }
