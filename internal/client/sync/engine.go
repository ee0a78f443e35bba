// Package sync implements the delta synchronization engine: pull remote
// changes, reconcile them against local state by last-write-wins, then push
// local pending changes record by record.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"arcana/internal/client/remote"
	"arcana/internal/client/repositories/metadata"
	"arcana/internal/client/repositories/synclog"
	"arcana/internal/common"
	"arcana/internal/logging"
	"arcana/internal/models"
	"arcana/internal/shared"
)

// State is the engine's cycle phase, visible to the UI.
type State int32

const (
	StateIdle State = iota
	StatePulling
	StateApplying
	StatePushing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePulling:
		return "pulling"
	case StateApplying:
		return "applying"
	case StatePushing:
		return "pushing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Outcome classifies what happened to one record during a cycle.
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeConflictResolved Outcome = "conflict_resolved"
	OutcomePushed           Outcome = "pushed"
	OutcomePurged           Outcome = "purged"
	OutcomeRejected         Outcome = "rejected"
	OutcomeGivenUp          Outcome = "given_up"
	OutcomeFailed           Outcome = "failed"
)

// Recorder observes per-record outcomes. Implementations must be fast; the
// engine calls it inline. A nil Recorder is ignored.
type Recorder interface {
	Record(table models.Table, id string, outcome Outcome, err error)
}

// Options tune the engine. Zero values select the defaults.
type Options struct {
	// MaxRejects is the number of explicit server rejections after which a
	// record is given up on. Default 5.
	MaxRejects int

	// PushRetries is the number of transport retries per pushed record.
	// Default 3.
	PushRetries uint64

	// PushBackoff is the initial retry backoff. Default 500ms.
	PushBackoff time.Duration

	// Recorder receives per-record outcomes. Optional.
	Recorder Recorder

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine runs pull-then-push delta cycles against the remote gateway. At most
// one cycle runs at a time; TrySync refuses to start a second.
type Engine struct {
	gateway  remote.Gateway
	trackers []TableTracker
	meta     metadata.Repository
	rejects  synclog.Repository
	logger   logging.Logger
	opts     Options

	state atomic.Int32

	mu       stdsync.Mutex
	lastErr  error
	lastSync time.Time
}

// NewEngine assembles an engine over the given trackers. Trackers are
// processed in the order supplied; callers pass them parent-first.
func NewEngine(gateway remote.Gateway, trackers []TableTracker, meta metadata.Repository,
	rejects synclog.Repository, logger logging.Logger, opts Options) *Engine {
	if opts.MaxRejects <= 0 {
		opts.MaxRejects = 5
	}
	if opts.PushRetries == 0 {
		opts.PushRetries = 3
	}
	if opts.PushBackoff <= 0 {
		opts.PushBackoff = 500 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
	}
	return &Engine{
		gateway:  gateway,
		trackers: trackers,
		meta:     meta,
		rejects:  rejects,
		logger:   logger.With("component", "sync"),
		opts:     opts,
	}
}

// State returns the current cycle phase.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// LastError returns the error of the most recent cycle, nil after a clean one.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// LastSync returns when the last cycle finished, zero before the first.
func (e *Engine) LastSync() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// TrySync runs one full cycle. It returns (false, nil) without doing anything
// when a cycle is already in flight.
func (e *Engine) TrySync(ctx context.Context) (bool, error) {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StatePulling)) {
		e.logger.Debug(ctx, "sync already running, skipping")
		return false, nil
	}
	defer e.state.Store(int32(StateIdle))

	err := e.runCycle(ctx)

	e.mu.Lock()
	e.lastErr = err
	e.lastSync = e.opts.Now()
	e.mu.Unlock()

	return true, err
}

func (e *Engine) runCycle(ctx context.Context) error {
	since, err := e.loadWatermark(ctx)
	if err != nil {
		return err
	}

	e.logger.Info(ctx, "sync cycle started", "since", since)

	resp, err := e.gateway.Delta(ctx, common.DeltaRequest{PullSince: since})
	if err != nil {
		e.logger.Error(ctx, "pull failed", "error", err)
		return fmt.Errorf("pull: %w", err)
	}

	e.state.Store(int32(StateApplying))
	applyErrs := e.applyPulled(ctx, resp)

	e.state.Store(int32(StatePushing))
	pushErrs := e.pushPending(ctx)

	// The watermark only advances past records that were actually applied.
	// Any apply failure keeps the old anchor so the records are re-pulled.
	if applyErrs == 0 {
		if err := e.saveWatermark(ctx, resp.ServerTimestamp); err != nil {
			return err
		}
	}

	e.logger.Info(ctx, "sync cycle finished",
		"apply_errors", applyErrs, "push_errors", pushErrs,
		"server_timestamp", resp.ServerTimestamp)

	if applyErrs > 0 || pushErrs > 0 {
		return fmt.Errorf("sync cycle completed with %d apply and %d push errors", applyErrs, pushErrs)
	}
	return nil
}

// applyPulled reconciles pulled records table by table in the tracker order.
// A failing record is logged and skipped; it never blocks its siblings.
func (e *Engine) applyPulled(ctx context.Context, resp *common.DeltaResponse) int {
	var failures int
	for _, t := range e.trackers {
		for _, raw := range resp.PullChanges[string(t.Table)] {
			if err := e.applyOne(ctx, t, raw, resp.ServerTimestamp); err != nil {
				failures++
				e.logger.Error(ctx, "apply failed", "table", t.Table, "error", err)
			}
		}
	}
	return failures
}

func (e *Engine) applyOne(ctx context.Context, t TableTracker, raw json.RawMessage, serverTimestamp time.Time) error {
	stamp, err := common.DecodeStamp(raw)
	if err != nil {
		return fmt.Errorf("failed to decode record envelope: %w", err)
	}

	found, localUpdated, dirty, err := t.Stamp(ctx, stamp.ID)
	if err != nil {
		return err
	}
	if found && !localUpdated.Before(stamp.UpdatedAt) {
		// Local edit is at least as new; ties go to the local side so a
		// dirty record cannot be clobbered before its push. It will win
		// on push.
		e.record(t.Table, stamp.ID, OutcomeConflictResolved, nil)
		e.logger.Debug(ctx, "local record newer, keeping",
			"table", t.Table, "id", stamp.ID, "dirty", dirty)
		return nil
	}

	// A record committed on the server after server_timestamp was taken but
	// before the pull read can carry a later updated_at; marking it synced
	// at the later of the two keeps it from re-registering dirty.
	syncedAt := serverTimestamp
	if stamp.UpdatedAt.After(syncedAt) {
		syncedAt = stamp.UpdatedAt
	}

	if err := t.Apply(ctx, raw, syncedAt); err != nil {
		e.record(t.Table, stamp.ID, OutcomeFailed, err)
		return err
	}
	e.record(t.Table, stamp.ID, OutcomeApplied, nil)
	return nil
}

// pushPending pushes dirty records table by table. Each record is isolated:
// a transport failure or rejection is counted and the loop continues.
func (e *Engine) pushPending(ctx context.Context) int {
	var failures int
	for _, t := range e.trackers {
		changes, err := t.Pending(ctx)
		if err != nil {
			failures++
			e.logger.Error(ctx, "failed to list pending changes", "table", t.Table, "error", err)
			continue
		}
		for _, c := range changes {
			if err := e.pushOne(ctx, t, c); err != nil {
				failures++
			}
		}
	}
	return failures
}

func (e *Engine) pushOne(ctx context.Context, t TableTracker, c PendingChange) error {
	n, err := e.rejects.Rejections(ctx, t.Table, c.ID)
	if err != nil {
		return err
	}
	if n >= e.opts.MaxRejects {
		e.record(t.Table, c.ID, OutcomeGivenUp, nil)
		e.logger.Warn(ctx, "record exceeded rejection limit, skipping",
			"table", t.Table, "id", c.ID, "rejections", n)
		return nil
	}

	// A record created and deleted before any push has never reached the
	// server; drop it locally without a round trip.
	if c.Deleted && c.NeverSynced {
		if err := t.Purge(ctx, c.ID); err != nil {
			return err
		}
		e.record(t.Table, c.ID, OutcomePurged, nil)
		return nil
	}

	backoff := retry.WithMaxRetries(e.opts.PushRetries, retry.NewExponential(e.opts.PushBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var pushErr error
		if c.Deleted {
			pushErr = e.gateway.Delete(ctx, t.Table, c.ID)
		} else {
			pushErr = e.gateway.Upsert(ctx, t.Table, c.Data)
		}
		if shared.IsTransport(pushErr) {
			return retry.RetryableError(pushErr)
		}
		return pushErr
	})

	switch {
	case err == nil:
		if err := e.rejects.Clear(ctx, t.Table, c.ID); err != nil {
			return err
		}
		if c.Deleted {
			if err := t.Purge(ctx, c.ID); err != nil {
				return err
			}
			e.record(t.Table, c.ID, OutcomePurged, nil)
		} else {
			// Mark only the snapshot that was actually pushed. A mutation
			// landing mid-push bumps updated_at past the snapshot, the
			// guarded update then leaves the record dirty for the next cycle.
			if err := t.MarkSynced(ctx, c.ID, c.UpdatedAt); err != nil {
				return err
			}
			e.record(t.Table, c.ID, OutcomePushed, nil)
		}
		return nil

	case shared.IsRejected(err):
		count, logErr := e.rejects.RecordRejection(ctx, t.Table, c.ID, err.Error())
		if logErr != nil {
			e.logger.Error(ctx, "failed to record rejection", "error", logErr)
		}
		e.record(t.Table, c.ID, OutcomeRejected, err)
		e.logger.Warn(ctx, "push rejected",
			"table", t.Table, "id", c.ID, "rejections", count, "error", err)
		return err

	default:
		// Transport failure after retries. The record stays dirty and is
		// retried on the next cycle.
		e.record(t.Table, c.ID, OutcomeFailed, err)
		e.logger.Error(ctx, "push failed", "table", t.Table, "id", c.ID, "error", err)
		return err
	}
}

func (e *Engine) record(table models.Table, id string, outcome Outcome, err error) {
	if e.opts.Recorder != nil {
		e.opts.Recorder.Record(table, id, outcome, err)
	}
}

func (e *Engine) loadWatermark(ctx context.Context) (*time.Time, error) {
	raw, err := e.meta.Get(ctx, metadata.KeyPullWatermark)
	if err != nil {
		return nil, fmt.Errorf("failed to load pull watermark: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pull watermark %q: %w", raw, err)
	}
	return &t, nil
}

func (e *Engine) saveWatermark(ctx context.Context, t time.Time) error {
	v := []byte(t.UTC().Format(time.RFC3339Nano))
	if err := e.meta.Set(ctx, metadata.KeyPullWatermark, v); err != nil {
		return fmt.Errorf("failed to save pull watermark: %w", err)
	}
	return nil
}
