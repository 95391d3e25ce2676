// internal/instance/tracker.go
package instance

import (
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/statusd/internal/cell"
	"github.com/tamzrod/statusd/internal/coalesce"
	"github.com/tamzrod/statusd/internal/logger"
	"github.com/tamzrod/statusd/internal/source"
	"github.com/tamzrod/statusd/internal/status"
)

// HealthPoller is the activation surface of the health poll loop.
type HealthPoller interface {
	Start()
	Stop()
	Status() status.HealthStatus
	OnChange(fn func(status.HealthStatus)) (unsubscribe func())
	Close() error
}

// Config wires a Tracker.
type Config struct {
	// Source delivers container status. The tracker does not close it.
	Source source.Source
	// Health is owned by the tracker and closed with it.
	Health HealthPoller

	// WarmupTimeout bounds how long a running container may go without a
	// health report before the instance is shown as starting. Zero disables it.
	WarmupTimeout time.Duration

	Clock    clock.Clock
	Dispatch coalesce.Dispatcher
	Logger   *zap.SugaredLogger
}

// Validate checks the configuration.
func (cfg Config) Validate() error {
	if cfg.Source == nil {
		return errors.NotValidf("nil Source")
	}
	if cfg.Health == nil {
		return errors.NotValidf("nil Health")
	}
	if cfg.WarmupTimeout < 0 {
		return errors.NotValidf("negative WarmupTimeout")
	}
	return nil
}

// Tracker derives the instance status from container status and health.
type Tracker struct {
	source source.Source
	health HealthPoller
	clock  clock.Clock
	warmup time.Duration
	log    *zap.SugaredLogger

	status *cell.Cell[status.InstanceStatus]

	// mu serializes derivation, forced transitions and teardown.
	mu     sync.Mutex
	closed bool
	// forced overrides the source until the source reports a new observation.
	forced      status.ContainerStatus
	warmupTimer clock.Timer
	warmupGen   uint64
	unsubscribe []func()
}

// New builds a tracker and subscribes it to its inputs.
func New(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = coalesce.Go
	}

	t := &Tracker{
		source: cfg.Source,
		health: cfg.Health,
		clock:  cfg.Clock,
		warmup: cfg.WarmupTimeout,
		log:    logger.For(cfg.Logger, logger.ComponentTracker),
	}
	t.status = cell.New(status.InstanceAbsent,
		cell.WithDispatcher(cfg.Dispatch),
		cell.WithPanicHandler(func(v any) {
			t.log.Warnw("instance status observer panicked", "error", coalesce.PanicError(v))
		}),
	)

	// Activation policy lives in observers, not in Derive.
	t.unsubscribe = append(t.unsubscribe,
		t.status.Subscribe(t.onInstance),
		t.source.OnChange(t.onContainer),
		t.health.OnChange(t.onHealth),
	)
	return t, nil
}

// Status returns the current instance status.
func (t *Tracker) Status() status.InstanceStatus { return t.status.Read() }

// Container returns the container status used for derivation, including a
// forced status not yet superseded by the source.
func (t *Tracker) Container() status.ContainerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.containerLocked()
}

// Health returns the current health poll result.
func (t *Tracker) Health() status.HealthStatus { return t.health.Status() }

// OnChange subscribes fn to instance status changes. fn is called immediately
// with the current status.
func (t *Tracker) OnChange(fn func(status.InstanceStatus)) (unsubscribe func()) {
	return t.status.Subscribe(fn)
}

// ForceContainerStatus records a container transition the caller initiated
// and projects the instance status immediately, without waiting for the source.
// The next observation from the source replaces the forced status.
func (t *Tracker) ForceContainerStatus(c status.ContainerStatus) {
	next, ok := Project(c)
	if !ok {
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.forced = c
	t.disarmWarmupLocked()
	prev := t.status.Read()
	t.status.Write(next)
	t.mu.Unlock()

	t.log.Debugw("container status forced", "container", c, "from", prev, "to", next)
	t.activate(c)
}

// Close detaches the tracker from its inputs and closes the health poller.
// It is idempotent.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.disarmWarmupLocked()
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	t.status.Close()
	return errors.Trace(t.health.Close())
}

func (t *Tracker) onContainer(c status.ContainerStatus) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.forced = status.ContainerAbsent
	t.mu.Unlock()

	t.activate(c)
	t.recompute()
}

func (t *Tracker) onHealth(status.HealthStatus) {
	t.recompute()
}

func (t *Tracker) onInstance(s status.InstanceStatus) {
	if s != status.InstanceRunning {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	// The delivered value may be stale; a newer status could need the probe.
	if t.closed || t.status.Read() != status.InstanceRunning {
		return
	}
	// Steady state needs no probing until the container changes again.
	t.health.Stop()
}

// activate starts probing when the container comes up while the instance is
// not yet running, and stops it once the container goes down.
func (t *Tracker) activate(c status.ContainerStatus) {
	switch c {
	case status.ContainerRunning:
		if t.status.Read() != status.InstanceRunning {
			t.health.Start()
		}
	case status.ContainerStopping, status.ContainerStopped:
		t.health.Stop()
	}
}

func (t *Tracker) containerLocked() status.ContainerStatus {
	if t.forced != status.ContainerAbsent {
		return t.forced
	}
	return t.source.Status()
}

func (t *Tracker) recompute() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	c := t.containerLocked()
	h := t.health.Status()
	prev := t.status.Read()

	next, ok := Derive(c, h, prev)
	if !ok {
		if c == status.ContainerRunning && h == status.HealthAbsent && prev != status.InstanceRunning {
			t.armWarmupLocked()
		} else {
			t.disarmWarmupLocked()
		}
		return
	}
	t.disarmWarmupLocked()

	if next != prev {
		t.log.Debugw("instance status derived", "container", c, "health", h, "from", prev, "to", next)
	}
	t.status.Write(next)
}

func (t *Tracker) armWarmupLocked() {
	if t.warmup <= 0 || t.warmupTimer != nil {
		return
	}
	t.warmupGen++
	gen := t.warmupGen
	t.warmupTimer = t.clock.AfterFunc(t.warmup, func() { t.warmupExpired(gen) })
}

func (t *Tracker) disarmWarmupLocked() {
	if t.warmupTimer == nil {
		return
	}
	t.warmupTimer.Stop()
	t.warmupTimer = nil
	t.warmupGen++
}

func (t *Tracker) warmupExpired(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || gen != t.warmupGen {
		return
	}
	t.warmupTimer = nil

	c := t.containerLocked()
	prev := t.status.Read()
	if c != status.ContainerRunning || t.health.Status() != status.HealthAbsent || prev == status.InstanceRunning {
		return
	}
	t.log.Warnw("no health report within warm-up timeout", "timeout", t.warmup, "from", prev)
	t.status.Write(status.InstanceStarting)
}
