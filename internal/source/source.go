// internal/source/source.go
package source

import (
	"go.uber.org/zap"

	"github.com/tamzrod/statusd/internal/cell"
	"github.com/tamzrod/statusd/internal/coalesce"
	"github.com/tamzrod/statusd/internal/status"
)

// Source delivers container status observations.
type Source interface {
	// Status returns the latest observation, or ContainerAbsent if none yet.
	Status() status.ContainerStatus
	// OnChange subscribes fn and calls it immediately with the current status.
	OnChange(fn func(status.ContainerStatus)) (unsubscribe func())
	Close() error
}

// Base is a cell-backed Source. Concrete sources embed it and call Set.
type Base struct {
	cell *cell.Cell[status.ContainerStatus]
}

// NewBase creates a Base with no observation. log may be nil.
func NewBase(dispatch coalesce.Dispatcher, log *zap.SugaredLogger) *Base {
	if dispatch == nil {
		dispatch = coalesce.Go
	}
	return &Base{
		cell: cell.New(status.ContainerAbsent,
			cell.WithDispatcher(dispatch),
			cell.WithPanicHandler(func(v any) {
				if log != nil {
					log.Warnw("container status observer panicked", "error", coalesce.PanicError(v))
				}
			}),
		),
	}
}

// Set records an observation.
func (b *Base) Set(s status.ContainerStatus) { b.cell.Write(s) }

func (b *Base) Status() status.ContainerStatus { return b.cell.Read() }

func (b *Base) OnChange(fn func(status.ContainerStatus)) func() { return b.cell.Subscribe(fn) }

func (b *Base) Close() error {
	b.cell.Close()
	return nil
}
