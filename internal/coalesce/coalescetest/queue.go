// internal/coalesce/coalescetest/queue.go
package coalescetest

import "sync"

// Queue is a manual coalesce.Dispatcher for tests.
// Dispatched work runs only when the test calls Step or Flush.
type Queue struct {
	mu  sync.Mutex
	fns []func()
}

// Dispatch queues fn. Use q.Dispatch as a coalesce.Dispatcher.
func (q *Queue) Dispatch(fn func()) {
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
}

// Len returns the number of queued units of work.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

// Step runs the work queued at the time of the call and returns how many ran.
// Work dispatched while stepping stays queued.
func (q *Queue) Step() int {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Flush steps until the queue is empty.
func (q *Queue) Flush() {
	for q.Step() > 0 {
	}
}
