package cpu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func drainExecuted(t *testing.T, ex *testExecutor, n int) []*testHandle {
	t.Helper()
	out := make([]*testHandle, 0, n)
	for i := 0; i < n; i++ {
		select {
		case h := <-ex.ran:
			out = append(out, h)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for handle %d/%d to run", i+1, n)
		}
	}
	return out
}

// E1: a single worker submitting to itself via SubmitLocal runs handles in
// reverse push order (LIFO on the owner's own queue means the most recently
// submitted handle runs first).
func TestPool_singleWorkerLocalOrder(t *testing.T) {
	ex := newTestExecutor(8)
	p, err := NewPool(PoolOptions{NumWorkers: 1, Executor: ex})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Stop()

	a, b := newTestHandle("a"), newTestHandle("b")
	require.NoError(t, p.SubmitLocal(0, a))
	require.NoError(t, p.SubmitLocal(0, b))

	got := drainExecuted(t, ex, 2)
	require.Equal(t, "b", got[0].name)
	require.Equal(t, "a", got[1].name)
}

// E2: work submitted via SubmitGlobal from outside any worker wakes a parked
// worker and runs.
func TestPool_submitGlobalWakesParkedWorker(t *testing.T) {
	ex := newTestExecutor(8)
	p, err := NewPool(PoolOptions{NumWorkers: 2, Executor: ex})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Stop()

	// Give workers a moment to reach the parked state.
	time.Sleep(20 * time.Millisecond)

	h := newTestHandle("cross-thread")
	p.SubmitGlobal(h)

	got := drainExecuted(t, ex, 1)
	require.Equal(t, "cross-thread", got[0].name)
}

// E3: a heavily loaded worker's excess work is stealable by an idle peer.
func TestPool_idleWorkerStealsFromOverloadedPeer(t *testing.T) {
	ex := newTestExecutor(64)
	p, err := NewPool(PoolOptions{NumWorkers: 2, Executor: ex, LocalQueueCapacity: 128})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Stop()

	for i := 0; i < 50; i++ {
		require.NoError(t, p.SubmitLocal(0, newTestHandle("h")))
	}

	got := drainExecuted(t, ex, 50)
	require.Len(t, got, 50)
}

// E4: the global-first cadence guarantees globally submitted work is not
// starved by a worker that keeps feeding its own local queue.
func TestPool_globalQueueNotStarvedBySelfFeedingLocal(t *testing.T) {
	ex := newTestExecutor(256)
	// A tiny stride makes the global-first cadence observable quickly
	// without waiting for 51 local turns.
	p, err := NewPool(PoolOptions{NumWorkers: 1, Executor: ex, Stride: 3})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Stop()

	require.NoError(t, p.SubmitLocal(0, newTestHandle("local")))
	p.SubmitGlobal(newTestHandle("global"))

	sawGlobal := false
	for i := 0; i < 20 && !sawGlobal; i++ {
		h := drainExecuted(t, ex, 1)[0]
		if h.name == "local" {
			require.NoError(t, p.SubmitLocal(0, newTestHandle("local")))
			continue
		}
		sawGlobal = true
	}
	require.True(t, sawGlobal, "global submission never ran under a self-feeding local queue")
}

// E5: Stop drains and releases pending work without executing it, and joins
// every worker.
func TestPool_stopDrainsPendingWorkWithoutExecuting(t *testing.T) {
	ex := newTestExecutor(8)
	p, err := NewPool(PoolOptions{NumWorkers: 4, Executor: ex})
	require.NoError(t, err)
	require.NoError(t, p.Start())

	// Flood more work than can possibly drain before Stop races it.
	handles := make([]*testHandle, 200)
	for i := range handles {
		handles[i] = newTestHandle("h")
		p.SubmitGlobal(handles[i])
	}

	require.NoError(t, p.Stop())

	// Every handle either ran (appears in ex.ran, drained opportunistically
	// below) or was released unexecuted by Stop's drain. Either way Stop
	// must return promptly and not hang.
	for {
		select {
		case <-ex.ran:
		default:
			return
		}
	}
}

// E5b: Stop is idempotent and a pool that was never started reports
// ErrNotStarted.
func TestPool_stopBeforeStartIsError(t *testing.T) {
	ex := newTestExecutor(1)
	p, err := NewPool(PoolOptions{NumWorkers: 1, Executor: ex})
	require.NoError(t, err)
	require.ErrorIs(t, p.Stop(), ErrNotStarted)
}

func TestPool_startTwiceIsError(t *testing.T) {
	ex := newTestExecutor(1)
	p, err := NewPool(PoolOptions{NumWorkers: 1, Executor: ex})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Stop()
	require.ErrorIs(t, p.Start(), ErrAlreadyStarted)
}

func TestPool_stopIsIdempotent(t *testing.T) {
	ex := newTestExecutor(1)
	p, err := NewPool(PoolOptions{NumWorkers: 1, Executor: ex})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())
}

// E6: a worker that parks and then wakes for unrelated reasons (simulated by
// an extra Notify with no work queued) simply re-polls rather than exiting or losing
// work — spurious wakeups are harmless.
func TestPool_survivesSpuriousWakeupWithoutLosingWork(t *testing.T) {
	ex := newTestExecutor(4)
	p, err := NewPool(PoolOptions{NumWorkers: 1, Executor: ex})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Stop()

	time.Sleep(20 * time.Millisecond)
	p.waiter.Notify() // no one sleeping yet in most runs, or wakes harmlessly

	h := newTestHandle("late")
	p.SubmitGlobal(h)

	got := drainExecuted(t, ex, 1)
	require.Equal(t, "late", got[0].name)
}

func TestPool_invalidOptionsRejected(t *testing.T) {
	_, err := NewPool(PoolOptions{NumWorkers: 0, Executor: newTestExecutor(1)})
	require.ErrorIs(t, err, ErrWorkersInvalid)

	_, err = NewPool(PoolOptions{NumWorkers: 1})
	require.ErrorIs(t, err, ErrExecutorNil)
}

func TestPool_submitLocalRejectsOutOfRangeWorker(t *testing.T) {
	ex := newTestExecutor(1)
	p, err := NewPool(PoolOptions{NumWorkers: 2, Executor: ex})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Stop()

	require.ErrorIs(t, p.SubmitLocal(2, newTestHandle("x")), ErrInvalidWorkerID)
	require.ErrorIs(t, p.SubmitLocal(-1, newTestHandle("x")), ErrInvalidWorkerID)
}

func TestPool_panicInExecutorDoesNotStopTheWorker(t *testing.T) {
	boom := newTestHandle("boom")
	ok := newTestHandle("ok")

	ex := newTestExecutor(4)
	p, err := NewPool(PoolOptions{NumWorkers: 1, Executor: &panicOnceExecutor{
		testExecutor: ex,
		panicOn:      boom.name,
	}})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Stop()

	p.SubmitGlobal(boom)
	p.SubmitGlobal(ok)

	got := drainExecuted(t, ex, 1)
	require.Equal(t, "ok", got[0].name)
}

type panicOnceExecutor struct {
	testExecutor *testExecutor
	panicOn      string
}

func (e *panicOnceExecutor) Execute(ctx ExecContext, h Handle) {
	if h.Name() == e.panicOn {
		panic("boom")
	}
	e.testExecutor.Execute(ctx, h)
}
