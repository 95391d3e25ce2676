// internal/publisher/publisher.go
package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/statusd/internal/logger"
	"github.com/tamzrod/statusd/internal/metrics"
	"github.com/tamzrod/statusd/internal/status"
	"github.com/tamzrod/statusd/internal/writer"
)

// TickInterval is the resolution of the seconds-in-state counter.
const TickInterval = time.Second

// Tracker is what the publisher reads.
type Tracker interface {
	Status() status.InstanceStatus
	Container() status.ContainerStatus
	Health() status.HealthStatus
	OnChange(fn func(status.InstanceStatus)) (unsubscribe func())
}

type Config struct {
	Tracker Tracker
	Targets []writer.Target
	Clock   clock.Clock
	Logger  *zap.SugaredLogger
	Metrics metrics.Recorder
}

func (cfg Config) Validate() error {
	if cfg.Tracker == nil {
		return errors.NotValidf("nil Tracker")
	}
	for i, t := range cfg.Targets {
		if t.StatusWriter == nil {
			return errors.NotValidf("target %d (%q) without writer", i, t.Name)
		}
	}
	return nil
}

// Publisher owns the status snapshot and delivers it to the writers.
//
// It writes on start, on every instance status change and once per second
// while the instance is not running (seconds-in-state). Writer errors are
// logged and counted, never returned.
type Publisher struct {
	tracker Tracker
	targets []writer.Target
	clock   clock.Clock
	log     *zap.SugaredLogger
	metrics metrics.Recorder

	changed chan struct{}

	mu   sync.Mutex
	snap status.Snapshot
}

func New(cfg Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	return &Publisher{
		tracker: cfg.Tracker,
		targets: cfg.Targets,
		clock:   cfg.Clock,
		log:     logger.For(cfg.Logger, logger.ComponentPublisher),
		metrics: metrics.OrNoop(cfg.Metrics),
		changed: make(chan struct{}, 1),
	}, nil
}

// Snapshot returns the last delivered snapshot.
func (p *Publisher) Snapshot() status.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Run delivers until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	unsubscribe := p.tracker.OnChange(func(status.InstanceStatus) {
		select {
		case p.changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	// full block on start
	p.mu.Lock()
	p.snap = p.read(p.snap)
	snap := p.snap
	p.mu.Unlock()
	p.metrics.SetInstanceStatus(snap.Instance.String())
	p.deliver(snap)

	timer := p.clock.NewTimer(TickInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-p.changed:
			p.onChange()

		case <-timer.Chan():
			p.onTick()
			timer.Reset(TickInterval)
		}
	}
}

// read refreshes the live fields of prev from the tracker.
func (p *Publisher) read(prev status.Snapshot) status.Snapshot {
	next := prev
	next.Instance = p.tracker.Status()
	next.Container = p.tracker.Container()
	next.Health = p.tracker.Health()
	return next
}

func (p *Publisher) onChange() {
	p.mu.Lock()
	prev := p.snap
	next := p.read(prev)
	if next.Instance != prev.Instance {
		next.SecondsInState = 0
	}
	p.snap = next
	p.mu.Unlock()

	if next.Instance != prev.Instance {
		p.log.Infow("instance status changed",
			"from", prev.Instance, "to", next.Instance,
			"container", next.Container, "health", next.Health,
			"after_seconds", prev.SecondsInState)
		p.metrics.IncTransition(prev.Instance.String(), next.Instance.String())
		p.metrics.SetInstanceStatus(next.Instance.String())
	}
	if next != prev {
		p.deliver(next)
	}
}

func (p *Publisher) onTick() {
	p.mu.Lock()
	prev := p.snap
	next := p.read(prev)
	if next.Instance != prev.Instance {
		// the change notification is in flight; let onChange account for it
		next = prev
	}
	if next.Instance != status.InstanceRunning && next.SecondsInState < status.MaxSecondsInState {
		next.SecondsInState++
	}
	p.snap = next
	p.mu.Unlock()

	if next != prev {
		p.deliver(next)
	}
}

func (p *Publisher) deliver(s status.Snapshot) {
	for _, t := range p.targets {
		if err := t.WriteStatus(s); err != nil {
			p.log.Warnw("status write failed", "writer", t.Name, "error", err)
			p.metrics.IncWriterError(t.Name)
		}
	}
}
