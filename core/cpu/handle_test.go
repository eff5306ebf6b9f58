package cpu

import "sync/atomic"

// testHandle is a minimal Handle used across this package's tests. Its ran
// counter goes up each time a testExecutor executes it; a handle still queued
// when the pool is torn down is never executed.
type testHandle struct {
	name    string
	refs    atomic.Int32
	ran     atomic.Int32
	pending atomic.Int32
}

func newTestHandle(name string) *testHandle {
	return &testHandle{name: name}
}

func (h *testHandle) Name() string      { return h.name }
func (h *testHandle) PendingCount() int { return int(h.pending.Load()) }
func (h *testHandle) Acquire()          { h.refs.Add(1) }
func (h *testHandle) Release()          { h.refs.Add(-1) }

// testExecutor records every handle it executes, in order, with minimal
// synchronization so tests can assert on the sequence.
type testExecutor struct {
	ran chan *testHandle
}

func newTestExecutor(buffer int) *testExecutor {
	return &testExecutor{ran: make(chan *testHandle, buffer)}
}

func (e *testExecutor) Execute(_ ExecContext, h Handle) {
	th := h.(*testHandle)
	th.ran.Add(1)
	e.ran <- th
}
