// Package timer schedules delayed and periodic callbacks whose owners may
// disappear before they fire.
//
// Every callback runs through a wrapper that re-checks an optional liveness
// predicate immediately before the body executes. A timer whose owner (a
// session, a rule) has been torn down between scheduling and firing is a
// silent no-op. Panics in callbacks are recovered and logged; they never
// escape into the scheduler.
package timer

import (
	"log/slog"
	"sync"
	"time"
)

// Clock is the time source for a [Service]. The system clock is used by
// default; tests substitute a [Manual] clock to fire timers deterministically.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules fn to run after d and returns a function that
	// cancels the scheduled run, reporting whether it was still pending.
	AfterFunc(d time.Duration, fn func()) func() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, fn)
	return t.Stop
}

// Service schedules callbacks on a clock.
type Service struct {
	clock Clock
	log   *slog.Logger

	// Fired, if non-nil, is called after every callback that runs.
	// It must be set before any timer is scheduled.
	Fired func()
}

// New creates a Service on the system clock.
func New(log *slog.Logger) *Service {
	return NewOnClock(log, systemClock{})
}

// NewOnClock creates a Service on the given clock.
func NewOnClock(log *slog.Logger, clock Clock) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{clock: clock, log: log}
}

// Now returns the service's current time.
func (s *Service) Now() time.Time { return s.clock.Now() }

// Handle is a cancellation token for a scheduled callback.
type Handle struct {
	mu        sync.Mutex
	cancelled bool
	stop      func() bool
}

// Stop cancels the timer. A callback already executing is unaffected, but
// no further executions occur. Stop is idempotent.
func (h *Handle) Stop() {
	h.mu.Lock()
	h.cancelled = true
	stop := h.stop
	h.stop = nil
	h.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Stopped reports whether the handle has been cancelled.
func (h *Handle) Stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

func (h *Handle) rearm(stop func() bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return false
	}
	h.stop = stop
	return true
}

// After schedules fn to run once after d. If alive is non-nil, it is
// consulted immediately before fn runs; a false result skips fn and
// finishes the timer.
func (s *Service) After(d time.Duration, alive func() bool, fn func()) *Handle {
	h := &Handle{}
	stop := s.clock.AfterFunc(d, func() {
		s.fire(h, alive, fn)
	})
	h.rearm(stop)
	return h
}

// Every schedules fn to run every d until the handle is stopped or alive
// reports false. The first run happens after the first interval elapses.
func (s *Service) Every(d time.Duration, alive func() bool, fn func()) *Handle {
	h := &Handle{}
	var tick func()
	tick = func() {
		if !s.fire(h, alive, fn) {
			return
		}
		stop := s.clock.AfterFunc(d, tick)
		if !h.rearm(stop) {
			stop()
		}
	}
	stop := s.clock.AfterFunc(d, tick)
	h.rearm(stop)
	return h
}

// fire runs one scheduled callback, honoring cancellation and liveness.
// It reports whether a periodic timer should continue. A recovered panic
// counts as a completed run; the timer keeps its schedule.
func (s *Service) fire(h *Handle, alive func() bool, fn func()) (cont bool) {
	if h.Stopped() {
		return false
	}
	if alive != nil && !alive() {
		h.Stop()
		return false
	}
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("timer callback panicked", slog.Any("panic", p))
			cont = !h.Stopped()
		}
	}()
	if s.Fired != nil {
		defer s.Fired()
	}
	fn()
	return !h.Stopped()
}
