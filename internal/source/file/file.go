// internal/source/file/file.go
package file

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/tamzrod/statusd/internal/coalesce"
	"github.com/tamzrod/statusd/internal/logger"
	"github.com/tamzrod/statusd/internal/source"
	"github.com/tamzrod/statusd/internal/status"
)

// Source reports the container status written to a state file by the runtime
// wrapper (one word: running, stopping or stopped).
//
// A missing file means stopped. Empty or unparsable content is ignored.
type Source struct {
	*source.Base

	path    string
	log     *zap.SugaredLogger
	watcher *fsnotify.Watcher

	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Source.
type Option func(*options)

type options struct {
	dispatch coalesce.Dispatcher
	log      *zap.SugaredLogger
}

func WithDispatcher(d coalesce.Dispatcher) Option { return func(o *options) { o.dispatch = d } }
func WithLogger(l *zap.SugaredLogger) Option      { return func(o *options) { o.log = l } }

// New reads path once and starts watching its directory for changes.
func New(path string, opts ...Option) (*Source, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.For(o.log, logger.ComponentSource).With("source", "file")

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Annotatef(err, "resolving state file %q", path)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Annotate(err, "creating file watcher")
	}
	// The directory survives atomic replaces of the file itself.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, errors.Annotatef(err, "watching %q", filepath.Dir(abs))
	}

	s := &Source{
		Base:    source.NewBase(o.dispatch, log),
		path:    abs,
		log:     log,
		watcher: w,
		done:    make(chan struct{}),
	}
	s.reload()

	go s.watchLoop()
	log.Infow("watching state file", "path", abs)
	return s, nil
}

// Close stops watching. It is idempotent.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.watcher.Close()
		<-s.done
		_ = s.Base.Close()
	})
	return errors.Trace(err)
}

func (s *Source) watchLoop() {
	defer close(s.done)
	name := filepath.Base(s.path)

	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create), ev.Has(fsnotify.Rename):
				s.reload()
			case ev.Has(fsnotify.Remove):
				s.log.Debugw("state file removed", "path", s.path)
				s.Set(status.ContainerStopped)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warnw("state file watcher error", "error", err)
		}
	}
}

func (s *Source) reload() {
	c, err := read(s.path)
	if err != nil {
		s.log.Warnw("ignoring state file", "path", s.path, "error", err)
		return
	}
	if c == status.ContainerAbsent {
		return
	}
	s.Set(c)
}

func read(path string) (status.ContainerStatus, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return status.ContainerStopped, nil
	}
	if err != nil {
		return status.ContainerAbsent, errors.Trace(err)
	}
	return status.ParseContainerStatus(string(b))
}
