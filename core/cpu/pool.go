package cpu

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Pool errors.
var (
	ErrWorkersInvalid  = errors.New("cpu: worker count must be positive")
	ErrExecutorNil     = errors.New("cpu: executor is required")
	ErrAlreadyStarted  = errors.New("cpu: pool already started")
	ErrNotStarted      = errors.New("cpu: pool not started")
	ErrInvalidWorkerID = errors.New("cpu: invalid worker id")
)

// PoolOptions configures a [Pool]. Zero values are filled in with the
// defaults documented on each field.
type PoolOptions struct {
	// NumWorkers is the number of worker goroutines. Required, must be >= 1.
	NumWorkers int

	// Executor runs one turn per dequeued handle. Required.
	Executor Executor

	// LocalQueueCapacity bounds each worker's local queue. Defaults to
	// DefaultLocalQueueCapacity.
	LocalQueueCapacity int

	// GlobalQueueShards is the number of internal shards in the global
	// queue. Defaults to DefaultGlobalQueueShards.
	GlobalQueueShards int

	// GlobalQueueMaxLen bounds the global queue. Zero means unbounded.
	GlobalQueueMaxLen int

	// Stride is the poll-policy global-first cadence. Defaults to
	// DefaultStride (51).
	Stride uint32

	// DebugTracker opens a named scope per turn. Defaults to
	// NopDebugTracker().
	DebugTracker DebugTracker

	// Metrics receives scheduler telemetry. Defaults to NopCPUMetrics().
	Metrics CPUMetrics

	// Logger is used for worker lifecycle and fatal-configuration logging.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// ThreadID assigns a stable small integer to each worker id. Defaults to
	// returning the worker's own id.
	ThreadID ThreadIDFunc
}

// Pool owns N workers, one global queue, one waiter, and N local queues, and
// coordinates their startup and shutdown.
type Pool struct {
	opt     PoolOptions
	workers []*Worker
	locals  []*LocalQueue
	global  *GlobalQueue
	waiter  *MpmcWaiter
	log     *slog.Logger

	wg      sync.WaitGroup
	started atomic.Bool
	stopped atomic.Bool
}

// NewPool validates opt and constructs (but does not start) a pool.
func NewPool(opt PoolOptions) (*Pool, error) {
	if opt.NumWorkers < 1 {
		return nil, ErrWorkersInvalid
	}
	if opt.Executor == nil {
		return nil, ErrExecutorNil
	}
	if opt.LocalQueueCapacity <= 0 {
		opt.LocalQueueCapacity = DefaultLocalQueueCapacity
	}
	if opt.GlobalQueueShards <= 0 {
		opt.GlobalQueueShards = DefaultGlobalQueueShards
	}
	if opt.Stride == 0 {
		opt.Stride = DefaultStride
	}
	if opt.DebugTracker == nil {
		opt.DebugTracker = NopDebugTracker()
	}
	if opt.Metrics == nil {
		opt.Metrics = NopCPUMetrics()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.ThreadID == nil {
		opt.ThreadID = defaultThreadIDFunc
	}

	global := NewGlobalQueue(GlobalQueueOptions{
		Shards: opt.GlobalQueueShards,
		MaxLen: opt.GlobalQueueMaxLen,
	})

	locals := make([]*LocalQueue, opt.NumWorkers)
	for i := range locals {
		locals[i] = NewLocalQueue(opt.LocalQueueCapacity, global)
	}

	waiter := NewMpmcWaiter(opt.NumWorkers)

	p := &Pool{
		opt:    opt,
		locals: locals,
		global: global,
		waiter: waiter,
		log:    opt.Logger,
	}

	workers := make([]*Worker, opt.NumWorkers)
	for i := range workers {
		workers[i] = &Worker{
			id:       i,
			local:    locals[i],
			peers:    locals,
			global:   global,
			waiter:   waiter,
			threadID: opt.ThreadID(i),
			stride:   opt.Stride,
			executor: opt.Executor,
			debug:    opt.DebugTracker,
			metrics:  opt.Metrics,
			log:      opt.Logger,
		}
	}
	p.workers = workers

	return p, nil
}

// Start launches all worker goroutines. Calling Start twice returns
// ErrAlreadyStarted.
func (p *Pool) Start() error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run()
		}(w)
	}
	p.log.Debug("cpu pool started", slog.Int("workers", len(p.workers)))
	return nil
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int { return len(p.workers) }

// SubmitGlobal enqueues h on the global queue and wakes at most one idle
// worker. Any goroutine, worker or not, may call this.
func (p *Pool) SubmitGlobal(h Handle) {
	if h != nil {
		h.Acquire()
	}
	p.global.Push(h)
	p.waiter.Notify()
}

// SubmitLocal enqueues h on the local queue owned by workerID and wakes at
// most one idle worker. Intended for use by code running inside a worker's
// own turn, to resubmit follow-up work with cache affinity; any goroutine may
// call it, but only the owning worker should — the local queue's owner-only
// contract is not otherwise enforced.
func (p *Pool) SubmitLocal(workerID int, h Handle) error {
	if workerID < 0 || workerID >= len(p.locals) {
		return ErrInvalidWorkerID
	}
	if h != nil {
		h.Acquire()
	}
	p.locals[workerID].Push(h)
	p.waiter.Notify()
	return nil
}

// Stop injects exactly one nil shutdown handle per worker, wakes every
// parked worker, and joins all worker goroutines. After Stop returns, any
// handle still sitting in a queue (which can only happen if work was
// submitted concurrently with, or raced, shutdown) is drained and released
// without being executed. Stop is idempotent.
func (p *Pool) Stop() error {
	if !p.started.Load() {
		return ErrNotStarted
	}
	if !p.stopped.CompareAndSwap(false, true) {
		return nil
	}

	n := len(p.workers)
	for i := 0; i < n; i++ {
		p.global.Push(nil)
	}
	for i := 0; i < n; i++ {
		p.waiter.Notify()
	}

	p.wg.Wait()

	for _, h := range p.global.Drain() {
		if h != nil {
			h.Release()
		}
	}
	for _, lq := range p.locals {
		for _, h := range lq.Drain() {
			if h != nil {
				h.Release()
			}
		}
	}

	p.log.Debug("cpu pool stopped")
	return nil
}
