package cpu

// Handle is an owning reference to one schedulable unit of work — in this
// codebase, one actor that has at least one pending message or control
// action. A nil Handle is the shutdown sentinel: a [Worker] that dequeues a
// nil Handle exits without calling the [Executor].
//
// Acquire/Release model the enqueue-transfers/dequeue-acquires ownership
// discipline described in the scheduler's data model. They exist mainly so
// double-submit and drop-without-release bugs show up in tests; the Go
// runtime owns the handle's actual memory lifetime regardless of these
// counts.
type Handle interface {
	// Name identifies the handle for debug scopes and logging.
	Name() string

	// PendingCount reports how many further turns this handle is known to
	// want right now (e.g. mailbox depth). It is advisory; the scheduler in
	// this package never reads it or blocks on it.
	PendingCount() int

	// Acquire is called once per enqueue, before the handle becomes visible
	// to any queue.
	Acquire()

	// Release is called once per dequeue, after the executor has finished
	// with the handle (or, on pool teardown, instead of running it at all).
	Release()
}
