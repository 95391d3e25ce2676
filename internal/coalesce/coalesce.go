// internal/coalesce/coalesce.go
package coalesce

import (
	"fmt"
	"sync"
)

// Dispatcher runs a unit of work asynchronously.
// It must not run fn on the caller's stack.
type Dispatcher func(fn func())

// Go dispatches fn on a new goroutine.
func Go(fn func()) { go fn() }

// Scheduler collapses any number of Trigger calls into one deferred run of work.
//
// At most one run is pending and at most one is executing. A Trigger made while
// work executes schedules exactly one further run, started after the current one
// returns. Runs never overlap.
type Scheduler struct {
	work     func()
	dispatch Dispatcher
	onPanic  func(v any)

	mu      sync.Mutex
	pending bool
	running bool
	closed  bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDispatcher overrides the dispatcher (default Go).
func WithDispatcher(d Dispatcher) Option {
	return func(s *Scheduler) {
		if d != nil {
			s.dispatch = d
		}
	}
}

// WithPanicHandler receives values recovered from a panicking run.
func WithPanicHandler(fn func(v any)) Option {
	return func(s *Scheduler) { s.onPanic = fn }
}

// New creates a scheduler for work.
func New(work func(), opts ...Option) *Scheduler {
	s := &Scheduler{
		work:     work,
		dispatch: Go,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Trigger schedules a run. Fire-and-forget.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	if s.closed || s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = true

	// A draining run picks the flag up when it finishes.
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.dispatch(s.drain)
}

// Pending reports whether a run is scheduled but not yet started.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Close drops any pending run and ignores further triggers.
// A run already executing completes.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.pending = false
	s.mu.Unlock()
}

func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if s.closed || !s.pending {
			s.running = false
			s.mu.Unlock()
			return
		}
		// Cleared before work runs so re-entrant triggers are not swallowed.
		s.pending = false
		s.mu.Unlock()

		s.runOnce()
	}
}

func (s *Scheduler) runOnce() {
	defer func() {
		if r := recover(); r != nil && s.onPanic != nil {
			s.onPanic(r)
		}
	}()
	s.work()
}

// PanicError wraps a recovered panic value as an error for logging.
func PanicError(v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("recovered panic: %w", err)
	}
	return fmt.Errorf("recovered panic: %v", v)
}
