// Package client wires the on-device stack together: local store, remote
// gateway, sync engine and the services the UI talks to.
package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	stdsync "sync"

	"arcana/internal/client/config"
	"arcana/internal/client/remote"
	"arcana/internal/client/repositories/cards"
	"arcana/internal/client/repositories/decks"
	"arcana/internal/client/repositories/journal"
	"arcana/internal/client/repositories/metadata"
	"arcana/internal/client/repositories/profiles"
	"arcana/internal/client/repositories/readings"
	"arcana/internal/client/repositories/synclog"
	"arcana/internal/client/services"
	"arcana/internal/client/store"
	clientsync "arcana/internal/client/sync"
	"arcana/internal/logging"
	"arcana/internal/shared"
)

const (
	keySessionToken = "session_token"
	keySessionUser  = "session_user"
)

// App owns the client-side object graph.
type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	gateway *remote.HTTPGateway

	engine    *clientsync.Engine
	scheduler *clientsync.Scheduler

	Library  *services.LibraryService
	Journal  *services.JournalService
	Profiles *services.ProfileService

	meta metadata.Repository

	mu     stdsync.Mutex
	token  string
	userID string
}

// NewApp opens the local database, runs migrations and builds the full stack.
// No network traffic happens until a sync cycle runs.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	app := &App{config: cfg, logger: logger, db: db}
	app.meta = metadata.NewSQLiteRepository(db)
	app.gateway = remote.NewHTTPGateway(nil, cfg.ServerURL, app.currentToken)

	if err := app.restoreSession(ctx); err != nil {
		return nil, err
	}

	trackers := clientsync.Trackers(
		profiles.NewSQLiteRepository(db),
		decks.NewSQLiteRepository(db),
		cards.NewSQLiteRepository(db),
		readings.NewSQLiteRepository(db),
		journal.NewSQLiteRepository(db),
	)
	app.engine = clientsync.NewEngine(app.gateway, trackers, app.meta,
		synclog.NewSQLiteRepository(db), logger,
		clientsync.Options{MaxRejects: cfg.MaxRejects})
	app.scheduler = clientsync.NewScheduler(app.engine, logger, clientsync.SchedulerConfig{
		Debounce: cfg.SyncDebounce,
		Interval: cfg.SyncInterval,
	})

	app.Library = services.NewLibraryService(db, logger, app.scheduler)
	app.Journal = services.NewJournalService(db, logger, app.scheduler)
	app.Profiles = services.NewProfileService(db, logger, app.scheduler)

	return app, nil
}

func (a *App) currentToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// UserID returns the id of the logged-in user, empty when logged out.
func (a *App) UserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userID
}

// LoggedIn reports whether a stored session exists.
func (a *App) LoggedIn() bool {
	return a.currentToken() != ""
}

func (a *App) restoreSession(ctx context.Context) error {
	token, err := a.meta.Get(ctx, keySessionToken)
	if err != nil {
		return err
	}
	user, err := a.meta.Get(ctx, keySessionUser)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.token = string(token)
	a.userID = string(user)
	a.mu.Unlock()
	return nil
}

func (a *App) storeSession(ctx context.Context, s *remote.AuthSession) error {
	if err := a.meta.Set(ctx, keySessionToken, []byte(s.Token)); err != nil {
		return err
	}
	if err := a.meta.Set(ctx, keySessionUser, []byte(s.UserID)); err != nil {
		return err
	}
	a.mu.Lock()
	a.token = s.Token
	a.userID = s.UserID
	a.mu.Unlock()
	return nil
}

// Login authenticates against the server, creating the account on first use,
// and makes sure a local profile exists.
func (a *App) Login(ctx context.Context, email, password string) error {
	session, err := a.gateway.Login(ctx, email, password)
	if err != nil {
		var re *shared.RejectedError
		if errors.As(err, &re) && re.StatusCode == 401 {
			session, err = a.gateway.Register(ctx, email, password)
		}
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	}

	if err := a.storeSession(ctx, session); err != nil {
		return err
	}
	if _, err := a.Profiles.Ensure(ctx, session.UserID, email); err != nil {
		return err
	}

	a.logger.Info(ctx, "logged in", "user", session.UserID)
	return nil
}

// Run starts the background sync loop and an initial cycle, then blocks until
// ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start(ctx)
	a.scheduler.Notify()

	<-ctx.Done()

	a.scheduler.Stop()
	return a.db.Close()
}

// Sync triggers one immediate cycle, for a pull-to-refresh gesture. It
// reports whether a cycle actually ran.
func (a *App) Sync(ctx context.Context) (bool, error) {
	return a.engine.TrySync(ctx)
}

// SyncState exposes the engine phase for UI display.
func (a *App) SyncState() clientsync.State {
	return a.engine.State()
}
