// internal/coalesce/coalesce_test.go
package coalesce

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tamzrod/statusd/internal/coalesce/coalescetest"
)

func TestTrigger_CollapsesBurst(t *testing.T) {
	q := &coalescetest.Queue{}
	runs := 0
	s := New(func() { runs++ }, WithDispatcher(q.Dispatch))

	for i := 0; i < 10; i++ {
		s.Trigger()
	}

	assert.Equal(t, 0, runs, "work must not run on the caller's stack")
	assert.Equal(t, 1, q.Len())
	assert.True(t, s.Pending())

	q.Flush()
	assert.Equal(t, 1, runs)
	assert.False(t, s.Pending())
}

func TestTrigger_DuringRunSchedulesOneMore(t *testing.T) {
	q := &coalescetest.Queue{}
	runs := 0
	var s *Scheduler
	s = New(func() {
		runs++
		if runs == 1 {
			s.Trigger()
			s.Trigger()
		}
	}, WithDispatcher(q.Dispatch))

	s.Trigger()
	q.Flush()

	assert.Equal(t, 2, runs)
	assert.Equal(t, 0, q.Len(), "re-run happens in the same drain, not a second dispatch")
}

func TestTrigger_AfterRunDispatchesAgain(t *testing.T) {
	q := &coalescetest.Queue{}
	runs := 0
	s := New(func() { runs++ }, WithDispatcher(q.Dispatch))

	s.Trigger()
	q.Flush()
	s.Trigger()
	q.Flush()

	assert.Equal(t, 2, runs)
}

func TestPanicClearsPending(t *testing.T) {
	q := &coalescetest.Queue{}
	var recovered any
	runs := 0
	s := New(func() {
		runs++
		panic(errors.New("boom"))
	}, WithDispatcher(q.Dispatch), WithPanicHandler(func(v any) { recovered = v }))

	s.Trigger()
	require.NotPanics(t, q.Flush)
	require.NotNil(t, recovered)
	assert.False(t, s.Pending())

	s.Trigger()
	q.Flush()
	assert.Equal(t, 2, runs, "a failed run must not wedge the scheduler")
	assert.ErrorContains(t, PanicError(recovered), "boom")
}

func TestClose_DropsPending(t *testing.T) {
	q := &coalescetest.Queue{}
	runs := 0
	s := New(func() { runs++ }, WithDispatcher(q.Dispatch))

	s.Trigger()
	s.Close()
	q.Flush()
	s.Trigger()
	q.Flush()

	assert.Equal(t, 0, runs)
}

func TestGoDispatcher_NeverOverlaps(t *testing.T) {
	defer goleak.VerifyNone(t)

	var active, maxActive, runs int32
	s := New(func() {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&active, -1)
		atomic.AddInt32(&runs, 1)
	})

	for i := 0; i < 20; i++ {
		s.Trigger()
		time.Sleep(100 * time.Microsecond)
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) > 0 && !s.Pending() && atomic.LoadInt32(&active) == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(1))
	assert.LessOrEqual(t, atomic.LoadInt32(&runs), int32(20))
}
