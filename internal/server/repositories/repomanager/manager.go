package repomanager

import (
	"context"
	"database/sql"

	"arcana/internal/dbx"
	"arcana/internal/server/repositories/cards"
	"arcana/internal/server/repositories/decks"
	"arcana/internal/server/repositories/journal"
	"arcana/internal/server/repositories/profiles"
	"arcana/internal/server/repositories/readings"
	"arcana/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so a
// service can run several repositories inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Decks(db dbx.DBTX) decks.Repository
	Cards(db dbx.DBTX) cards.Repository
	Readings(db dbx.DBTX) readings.Repository
	Journal(db dbx.DBTX) journal.Repository
}
