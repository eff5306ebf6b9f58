// Package cpu implements a work-stealing scheduler that multiplexes many
// lightweight units of work onto a small, fixed pool of worker goroutines.
//
// The pool is built from four pieces:
//
//   - [LocalQueue]: a per-worker bounded deque. The owning worker pushes and
//     pops without contention; any other worker may [LocalQueue.Steal] from it.
//   - [GlobalQueue]: a shared, sharded MPMC FIFO used for overflow and for
//     work submitted from outside any worker (e.g. an external request).
//   - [MpmcWaiter]: a park/unpark primitive that lets idle workers sleep
//     without ever missing a wakeup.
//   - [Worker]: the per-goroutine driver that polls its local queue, the
//     global queue, and its peers (in that rough priority, with an
//     anti-starvation twist — see [Worker]) before parking.
//
// [Pool] wires these together and owns their lifecycle.
//
// # Shutdown
//
// There are no cancellation tokens on individual work units. A [Pool] is
// stopped by injecting one nil [Handle] per worker — the nil handle is the
// shutdown sentinel, and a worker that dequeues one exits immediately without
// invoking the executor.
//
// # What this package does not do
//
// No priorities, no deadlines, no preemption mid-turn, and no cross-process
// scheduling. Work units are expected to run cooperatively and return control
// to the pool in bounded time; a unit that blocks indefinitely stalls the
// worker that is running it, exactly like a goroutine that never yields.
package cpu
