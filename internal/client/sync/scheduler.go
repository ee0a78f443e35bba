package sync

import (
	"context"
	stdsync "sync"
	"time"

	"arcana/internal/logging"
)

// SchedulerConfig tunes the scheduler. Zero values select the defaults.
type SchedulerConfig struct {
	// Debounce is how long to wait after the last Notify before syncing.
	// Batches bursts of local writes into one cycle. Default 2s.
	Debounce time.Duration

	// Interval triggers a periodic cycle even without local writes so that
	// remote changes get pulled. Default 5m.
	Interval time.Duration
}

// Scheduler drives the engine: mutations call Notify, and a debounced
// goroutine runs cycles. A periodic ticker keeps the local store fresh when
// nothing changes locally.
type Scheduler struct {
	engine *Engine
	logger logging.Logger
	cfg    SchedulerConfig

	notify chan struct{}
	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// NewScheduler returns a stopped scheduler over the engine.
func NewScheduler(engine *Engine, logger logging.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Scheduler{
		engine: engine,
		logger: logger.With("component", "scheduler"),
		cfg:    cfg,
		notify: make(chan struct{}, 1),
	}
}

// Notify requests a sync soon. It never blocks; coalescing multiple calls
// into one pending request is the point.
func (s *Scheduler) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Start launches the scheduling loop. It returns immediately; Stop shuts the
// loop down.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop terminates the loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case <-s.notify:
			// Restart the window on every burst of writes.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.NewTimer(s.cfg.Debounce)
			fire = debounce.C

		case <-fire:
			fire = nil
			s.runCycle(ctx)

		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	started, err := s.engine.TrySync(ctx)
	if !started {
		// Another cycle is in flight; re-arm so these writes are not lost.
		s.Notify()
		return
	}
	if err != nil {
		s.logger.Warn(ctx, "sync cycle failed", "error", err)
	}
}
