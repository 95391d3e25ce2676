// internal/cell/cell.go
package cell

import (
	"sync"

	"github.com/tamzrod/statusd/internal/coalesce"
)

// Cell holds a latest value and notifies observers when it changes.
//
// The zero value of T means "absent". Writes within one scheduling quantum are
// coalesced: observers see one call carrying the value current when the fan-out
// runs. Two consecutive fan-outs never carry the same value.
type Cell[T comparable] struct {
	mu        sync.Mutex
	current   T
	delivered T
	observers []*observer[T]
	nextID    uint64
	closed    bool

	// deliverMu serializes replay and fan-out so an observer is never
	// invoked concurrently with itself.
	deliverMu sync.Mutex

	sched   *coalesce.Scheduler
	onPanic func(v any)
}

type observer[T comparable] struct {
	id uint64
	fn func(T)
}

// Option configures a Cell.
type Option func(*options)

type options struct {
	dispatch coalesce.Dispatcher
	onPanic  func(v any)
}

// WithDispatcher sets the dispatcher used for fan-out (default coalesce.Go).
func WithDispatcher(d coalesce.Dispatcher) Option {
	return func(o *options) { o.dispatch = d }
}

// WithPanicHandler receives values recovered from panicking observers.
func WithPanicHandler(fn func(v any)) Option {
	return func(o *options) { o.onPanic = fn }
}

// New creates a cell holding initial.
func New[T comparable](initial T, opts ...Option) *Cell[T] {
	o := options{dispatch: coalesce.Go}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	c := &Cell[T]{
		current:   initial,
		delivered: initial,
		onPanic:   o.onPanic,
	}
	c.sched = coalesce.New(c.fanOut, coalesce.WithDispatcher(o.dispatch))
	return c
}

// Read returns the current value.
func (c *Cell[T]) Read() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Write stores v and schedules a fan-out if v differs from the current value.
func (c *Cell[T]) Write(v T) {
	c.mu.Lock()
	if c.closed || c.current == v {
		c.mu.Unlock()
		return
	}
	c.current = v
	c.mu.Unlock()

	c.sched.Trigger()
}

// Subscribe registers fn and immediately calls it with the current value.
// The returned func removes the observer. fn must not subscribe to the same cell.
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return func() {}
	}
	c.nextID++
	id := c.nextID
	c.observers = append(c.observers, &observer[T]{id: id, fn: fn})
	v := c.current
	c.mu.Unlock()

	c.call(fn, v)

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(id) })
	}
}

// Close clears all observers. Later writes are ignored.
func (c *Cell[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.observers = nil
	c.mu.Unlock()
	c.sched.Close()
}

func (c *Cell[T]) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, o := range c.observers {
		if o.id == id {
			// Copy so an in-flight fan-out keeps its own snapshot.
			next := make([]*observer[T], 0, len(c.observers)-1)
			next = append(next, c.observers[:i]...)
			c.observers = append(next, c.observers[i+1:]...)
			return
		}
	}
}

func (c *Cell[T]) fanOut() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if c.closed || c.current == c.delivered {
		c.mu.Unlock()
		return
	}
	v := c.current
	c.delivered = v
	observers := c.observers
	c.mu.Unlock()

	for _, o := range observers {
		c.call(o.fn, v)
	}
}

func (c *Cell[T]) call(fn func(T), v T) {
	defer func() {
		if r := recover(); r != nil && c.onPanic != nil {
			c.onPanic(r)
		}
	}()
	fn(v)
}
