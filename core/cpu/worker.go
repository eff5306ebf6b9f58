package cpu

import (
	"log/slog"
)

// DefaultStride is the poll-policy cadence used when PoolOptions.Stride is
// zero: every 51st poll attempt tries the global queue before the local
// queue, so externally submitted work cannot be starved by a self-feeding
// local queue. See original_source/tdactor/td/actor/core/CpuWorker.cpp.
const DefaultStride = 51

// Worker drives one pool goroutine: it polls its local queue, the global
// queue, and its peers' local queues (in that rough order, inverted every
// Stride'th attempt), parking on the pool's waiter when all three miss.
type Worker struct {
	id     int
	local  *LocalQueue
	peers  []*LocalQueue // all local queues, including this worker's own
	global *GlobalQueue
	waiter *MpmcWaiter
	slot   *Slot

	threadID int
	stride   uint32
	cnt      uint32

	executor Executor
	debug    DebugTracker
	metrics  CPUMetrics
	log      *slog.Logger
}

// Run is the worker's main loop. It returns only after dequeuing the nil
// shutdown handle.
func (w *Worker) Run() {
	w.slot = w.waiter.InitSlot(w.id, w.threadID)

	for {
		if msg, ok := w.tryPop(); ok {
			w.waiter.StopWait(w.slot)

			if msg == nil {
				w.log.Debug("worker exiting on shutdown handle", slog.Int("worker_id", w.id))
				return
			}

			w.runTurn(msg)
			continue
		}

		w.metrics.PollMiss()
		w.metrics.ParkEnter(w.id)
		msg, woke := w.waiter.Wait(w.slot, w.tryPop)
		w.metrics.ParkExit(w.id)

		if woke {
			if msg == nil {
				w.log.Debug("worker exiting on shutdown handle", slog.Int("worker_id", w.id))
				return
			}
			w.runTurn(msg)
		}
	}
}

func (w *Worker) runTurn(msg Handle) {
	scope := w.debug.Start(msg.Name())
	defer scope.Close()

	timer := w.metrics.TurnDuration()
	success := true
	func() {
		defer func() {
			if r := recover(); r != nil {
				success = false
				w.log.Error("worker turn panicked",
					slog.Int("worker_id", w.id),
					slog.String("handle", msg.Name()),
					slog.Any("recovered", r),
				)
			}
		}()
		w.executor.Execute(ExecContext{WorkerID: w.id, ThreadID: w.threadID}, msg)
	}()
	timer.ObserveDuration()
	w.metrics.TurnCompleted(success)

	msg.Release()
}

// tryPop implements the poll policy: every w.stride-th attempt prefers the
// global queue, otherwise the local queue is preferred; if both miss, steal
// from peers in round-robin order starting just past this worker's own id.
func (w *Worker) tryPop() (Handle, bool) {
	w.cnt++
	globalFirst := w.cnt == w.stride
	if globalFirst {
		w.cnt = 0
	}

	if globalFirst {
		if msg, ok := w.tryPopGlobal(); ok {
			return msg, true
		}
		if msg, ok := w.tryPopLocal(); ok {
			return msg, true
		}
	} else {
		if msg, ok := w.tryPopLocal(); ok {
			return msg, true
		}
		if msg, ok := w.tryPopGlobal(); ok {
			return msg, true
		}
	}

	return w.trySteal()
}

func (w *Worker) tryPopLocal() (Handle, bool) {
	msg, ok := w.local.Pop()
	if ok {
		w.metrics.PollHit("local")
		w.metrics.QueueDepth(w.id, w.local.Len())
	}
	return msg, ok
}

func (w *Worker) tryPopGlobal() (Handle, bool) {
	msg, ok := w.global.TryPop(w.threadID)
	if ok {
		w.metrics.PollHit("global")
	}
	return msg, ok
}

func (w *Worker) trySteal() (Handle, bool) {
	n := len(w.peers)
	for i := 1; i < n; i++ {
		pos := (w.id + i) % n
		if msg, ok := w.peers[pos].Steal(w.local); ok {
			w.metrics.StealAttempt(true)
			w.metrics.PollHit("steal")
			return msg, true
		}
	}
	if n > 1 {
		w.metrics.StealAttempt(false)
	}
	return nil, false
}
