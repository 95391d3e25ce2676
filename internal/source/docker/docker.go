// internal/source/docker/docker.go
package docker

import (
	"context"
	"io"
	"sync"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/go-co-op/gocron/v2"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/statusd/internal/coalesce"
	"github.com/tamzrod/statusd/internal/logger"
	"github.com/tamzrod/statusd/internal/source"
	"github.com/tamzrod/statusd/internal/status"
)

const (
	DefaultSocket   = "/var/run/docker.sock"
	DefaultInterval = time.Second
	DefaultTimeout  = 800 * time.Millisecond
)

// Config selects the container to follow.
type Config struct {
	Container string
	Socket    string
	Interval  time.Duration
	Timeout   time.Duration
}

func (c Config) Validate() error {
	if c.Container == "" {
		return errors.NotValidf("empty container name")
	}
	if c.Interval < 0 || c.Timeout < 0 {
		return errors.NotValidf("negative interval or timeout")
	}
	return nil
}

// Inspector is the part of the Engine API client the source uses.
// *client.Client implements it.
type Inspector interface {
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
}

// Source polls the Docker Engine API for the state of one container.
//
// Transport failures leave the last observation in place; a container the
// daemon does not know is reported as stopped.
type Source struct {
	*source.Base

	container string
	engine    Inspector
	// owned is closed with the source when New created the client.
	owned   io.Closer
	timeout time.Duration
	log     *zap.SugaredLogger
	sched   gocron.Scheduler

	closeOnce sync.Once
}

// Option configures a Source.
type Option func(*options)

type options struct {
	dispatch coalesce.Dispatcher
	log      *zap.SugaredLogger
	host     string
	engine   Inspector
}

func WithDispatcher(d coalesce.Dispatcher) Option { return func(o *options) { o.dispatch = d } }
func WithLogger(l *zap.SugaredLogger) Option      { return func(o *options) { o.log = l } }

// WithHost talks to another daemon address, such as tcp://socket-proxy:2375,
// instead of the unix socket.
func WithHost(host string) Option { return func(o *options) { o.host = host } }

// WithInspector uses an existing client. The source does not close it.
func WithInspector(i Inspector) Option { return func(o *options) { o.engine = i } }

// New builds the source and starts polling. The first poll runs immediately.
func New(cfg Config, opts ...Option) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.Socket == "" {
		cfg.Socket = DefaultSocket
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.For(o.log, logger.ComponentSource).With("source", "docker", "container", cfg.Container)

	var owned io.Closer
	if o.engine == nil {
		if o.host == "" {
			o.host = "unix://" + cfg.Socket
		}
		cli, err := client.NewClientWithOpts(
			client.WithHost(o.host),
			client.WithAPIVersionNegotiation(),
		)
		if err != nil {
			return nil, errors.Annotatef(err, "creating docker client for %q", o.host)
		}
		o.engine, owned = cli, cli
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		closeQuietly(owned)
		return nil, errors.Annotate(err, "creating scheduler")
	}

	s := &Source{
		Base:      source.NewBase(o.dispatch, log),
		container: cfg.Container,
		engine:    o.engine,
		owned:     owned,
		timeout:   cfg.Timeout,
		log:       log,
		sched:     sched,
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.Interval),
		gocron.NewTask(s.poll),
		gocron.WithName("docker-inspect-"+cfg.Container),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		closeQuietly(owned)
		return nil, errors.Annotate(err, "scheduling container inspect")
	}
	sched.Start()
	log.Infow("polling docker engine", "interval", cfg.Interval)
	return s, nil
}

// Close stops polling and waits for an in-flight request. It is idempotent.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.sched.Shutdown()
		closeQuietly(s.owned)
		_ = s.Base.Close()
	})
	return errors.Trace(err)
}

func (s *Source) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	c, err := s.Inspect(ctx)
	if err != nil {
		s.log.Debugw("container inspect failed", "error", err)
		return
	}
	s.Set(c)
}

// Inspect queries the engine once and maps the container state.
func (s *Source) Inspect(ctx context.Context) (status.ContainerStatus, error) {
	resp, err := s.engine.ContainerInspect(ctx, s.container)
	switch {
	case cerrdefs.IsNotFound(err):
		return status.ContainerStopped, nil
	case err != nil:
		return status.ContainerAbsent, errors.Annotate(err, "inspecting container")
	case resp.ContainerJSONBase == nil || resp.State == nil:
		return status.ContainerAbsent, errors.NotFoundf("state of container %q", s.container)
	}
	return MapState(resp.State.Status)
}

// MapState maps a Docker container state to a container status.
func MapState(state string) (status.ContainerStatus, error) {
	switch state {
	case "running":
		return status.ContainerRunning, nil
	case "restarting", "removing":
		return status.ContainerStopping, nil
	case "created", "paused", "exited", "dead":
		return status.ContainerStopped, nil
	}
	return status.ContainerAbsent, errors.NotValidf("docker state %q", state)
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
