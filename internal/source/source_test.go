// internal/source/source_test.go
package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tamzrod/statusd/internal/coalesce/coalescetest"
	"github.com/tamzrod/statusd/internal/status"
)

func TestBase(t *testing.T) {
	q := &coalescetest.Queue{}
	var b Source = NewBase(q.Dispatch, nil)

	var got []status.ContainerStatus
	unsubscribe := b.OnChange(func(c status.ContainerStatus) { got = append(got, c) })
	assert.Equal(t, []status.ContainerStatus{status.ContainerAbsent}, got)

	b.(*Base).Set(status.ContainerRunning)
	b.(*Base).Set(status.ContainerStopped)
	q.Flush()
	assert.Equal(t, status.ContainerStopped, b.Status())
	assert.Equal(t, []status.ContainerStatus{status.ContainerAbsent, status.ContainerStopped}, got)

	unsubscribe()
	b.(*Base).Set(status.ContainerRunning)
	q.Flush()
	assert.Len(t, got, 2)

	assert.NoError(t, b.Close())
}

func TestBase_ObserverPanicIsLogged(t *testing.T) {
	q := &coalescetest.Queue{}
	core, logs := observer.New(zapcore.WarnLevel)
	b := NewBase(q.Dispatch, zap.New(core).Sugar())
	defer func() { _ = b.Close() }()

	b.OnChange(func(c status.ContainerStatus) {
		if c == status.ContainerRunning {
			panic("observer broke")
		}
	})
	b.Set(status.ContainerRunning)
	require.NotPanics(t, q.Flush)

	entries := logs.FilterMessage("container status observer panicked").All()
	require.Len(t, entries, 1)
	err, ok := entries[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.Contains(t, err, "recovered panic: observer broke")
}
