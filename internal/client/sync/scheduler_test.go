package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (g *fakeGateway) deltaCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sinceSeen)
}

func TestScheduler_DebouncesBurstsIntoOneCycle(t *testing.T) {
	f := newFixture(t, Options{})
	s := NewScheduler(f.engine, discardLogger(), SchedulerConfig{
		Debounce: 20 * time.Millisecond,
		Interval: time.Hour,
	})
	s.Start(context.Background())
	defer s.Stop()

	for i := 0; i < 10; i++ {
		s.Notify()
	}

	require.Eventually(t, func() bool {
		return f.gw.deltaCalls() == 1
	}, time.Second, 5*time.Millisecond)

	// no further notifications, no further cycles
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, f.gw.deltaCalls())
}

func TestScheduler_NotifyRestartsTheWindow(t *testing.T) {
	f := newFixture(t, Options{})
	s := NewScheduler(f.engine, discardLogger(), SchedulerConfig{
		Debounce: 50 * time.Millisecond,
		Interval: time.Hour,
	})
	s.Start(context.Background())
	defer s.Stop()

	s.Notify()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, f.gw.deltaCalls())

	s.Notify()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, f.gw.deltaCalls())

	require.Eventually(t, func() bool {
		return f.gw.deltaCalls() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_PeriodicCycleWithoutNotify(t *testing.T) {
	f := newFixture(t, Options{})
	s := NewScheduler(f.engine, discardLogger(), SchedulerConfig{
		Debounce: time.Hour,
		Interval: 20 * time.Millisecond,
	})
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return f.gw.deltaCalls() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_StopWaitsForLoop(t *testing.T) {
	f := newFixture(t, Options{})
	s := NewScheduler(f.engine, discardLogger(), SchedulerConfig{
		Debounce: 10 * time.Millisecond,
		Interval: time.Hour,
	})
	s.Start(context.Background())
	s.Notify()
	s.Stop()

	// stopped scheduler ignores late notifications
	calls := f.gw.deltaCalls()
	s.Notify()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, f.gw.deltaCalls())
}
