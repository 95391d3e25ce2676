// internal/healthpoll/loop.go
package healthpoll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/tamzrod/statusd/internal/cell"
	"github.com/tamzrod/statusd/internal/coalesce"
	"github.com/tamzrod/statusd/internal/logger"
	"github.com/tamzrod/statusd/internal/metrics"
	"github.com/tamzrod/statusd/internal/status"
)

// DefaultInterval is the pause between the end of one probe and the start of the next.
const DefaultInterval = time.Second

// Probe reports whether the managed service is reachable and healthy.
// An error counts as unhealthy.
type Probe func(ctx context.Context) (bool, error)

// Loop is an activatable periodic prober.
//
// While active it waits one interval, probes, publishes the result and only then
// arms the next timer, so probes never overlap. While inactive it holds no value
// and performs no I/O.
type Loop struct {
	probe    Probe
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
	dispatch coalesce.Dispatcher
	log      *zap.SugaredLogger
	metrics  metrics.Recorder

	health *cell.Cell[status.HealthStatus]

	mu     sync.Mutex
	active bool
	closed bool
	// gen identifies the current activation; results of older activations are dropped.
	gen    uint64
	timer  clock.Timer
	cancel context.CancelFunc
	// inFlight is set while a probe runs; the finishing probe arms the next timer.
	inFlight bool
}

// Option configures a Loop.
type Option func(*Loop)

func WithClock(c clock.Clock) Option        { return func(l *Loop) { l.clock = c } }
func WithInterval(d time.Duration) Option   { return func(l *Loop) { l.interval = d } }
func WithTimeout(d time.Duration) Option    { return func(l *Loop) { l.timeout = d } }
func WithLogger(lg *zap.SugaredLogger) Option {
	return func(l *Loop) { l.log = logger.For(lg, logger.ComponentHealth) }
}
func WithMetrics(r metrics.Recorder) Option { return func(l *Loop) { l.metrics = metrics.OrNoop(r) } }

// WithDispatcher sets the dispatcher used for health change fan-out.
func WithDispatcher(d coalesce.Dispatcher) Option { return func(l *Loop) { l.dispatch = d } }

// New creates an inactive loop around probe.
func New(probe Probe, opts ...Option) *Loop {
	l := &Loop{
		probe:    probe,
		clock:    clock.WallClock,
		interval: DefaultInterval,
		dispatch: coalesce.Go,
		log:      logger.For(nil, logger.ComponentHealth),
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.interval <= 0 {
		l.interval = DefaultInterval
	}
	l.health = cell.New(status.HealthAbsent,
		cell.WithDispatcher(l.dispatch),
		cell.WithPanicHandler(func(v any) {
			l.log.Warnw("health observer panicked", "error", coalesce.PanicError(v))
		}),
	)
	return l
}

// Status returns the last published health, or HealthAbsent while inactive.
func (l *Loop) Status() status.HealthStatus { return l.health.Read() }

// OnChange subscribes to health changes. The callback is invoked immediately
// with the current value.
func (l *Loop) OnChange(fn func(status.HealthStatus)) (unsubscribe func()) {
	return l.health.Subscribe(fn)
}

// Active reports whether the loop is probing.
func (l *Loop) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Start activates probing. Calling Start on an active loop does nothing.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.active {
		return
	}
	l.active = true
	l.gen++
	l.log.Debugw("health polling started", "interval", l.interval)
	if l.inFlight {
		return
	}
	l.arm(l.gen)
}

// Stop deactivates probing, cancels any pending timer or in-flight probe and
// resets the published health to absent.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if l.active {
		l.log.Debugw("health polling stopped")
	}
	l.halt()
	l.health.Write(status.HealthAbsent)
}

// Close stops the loop without publishing and releases observers.
// It is idempotent and safe while a probe is in flight.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.halt()
	l.mu.Unlock()

	l.health.Close()
	return nil
}

// halt must be called with mu held.
func (l *Loop) halt() {
	l.active = false
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// arm must be called with mu held.
func (l *Loop) arm(gen uint64) {
	l.timer = l.clock.AfterFunc(l.interval, func() { l.fire(gen) })
}

func (l *Loop) current(gen uint64) bool {
	return l.active && !l.closed && l.gen == gen
}

func (l *Loop) fire(gen uint64) {
	l.mu.Lock()
	if !l.current(gen) {
		l.mu.Unlock()
		return
	}
	l.timer = nil
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if l.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), l.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	l.cancel = cancel
	l.inFlight = true
	l.mu.Unlock()

	started := l.clock.Now()
	ok, err := l.run(ctx)
	cancel()
	took := l.clock.Now().Sub(started)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight = false

	// Stopped or restarted while the probe was in flight; a restart waited for us.
	if !l.current(gen) {
		if l.active && !l.closed {
			l.arm(l.gen)
		}
		return
	}
	l.cancel = nil

	result := status.HealthUnhealthy
	switch {
	case err != nil:
		l.metrics.ObserveProbe(metrics.ProbeError, took)
		l.log.Debugw("health probe failed", "error", err, "took", took)
	case ok:
		result = status.HealthHealthy
		l.metrics.ObserveProbe(metrics.ProbeHealthy, took)
	default:
		l.metrics.ObserveProbe(metrics.ProbeUnhealthy, took)
	}
	l.health.Write(result)
	l.arm(gen)
}

// run invokes the probe, converting a panic into an error.
func (l *Loop) run(ctx context.Context) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("healthpoll: probe panicked: %v", r)
		}
	}()
	return l.probe(ctx)
}
