package actor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/wavepool/actorcpu/core/cpu"
)

type (
	OnPanic func(recovered any, stack []byte, msg any)

	Actor interface {
		Send(ctx context.Context, msg Envelope) error
		Pause() error
		Resume() error
		Step() error
		Done() <-chan struct{}
	}
)

// ---- control messages (internal) ----

type ctrlKind int

const (
	ctrlPause ctrlKind = iota
	ctrlResume
	ctrlEnableStep
	ctrlStep
	ctrlStop
)

type ctrlMsg struct {
	kind ctrlKind
}

type Options struct {
	MailboxSize int
	ControlSize int
	Context     context.Context
	Logger      *slog.Logger
	OnPanic     OnPanic
	// MaxConcurrentTasks caps the number of tasks run via HandlerCtx.Schedule.
	// If 0 or negative, it defaults to 32.
	MaxConcurrentTasks int

	// ID names the actor for debug scopes and cpu.Handle.Name. Defaults to a
	// generated nanoid.
	ID string

	// Pool, if set, runs this actor's turns on the shared worker pool instead
	// of a dedicated goroutine: the actor becomes a cpu.Handle that is
	// resubmitted after every batch of work rather than blocking a goroutine
	// of its own for its entire lifetime. Leave nil to keep the legacy
	// one-goroutine-per-actor model.
	Pool *cpu.Pool

	// TurnBudget bounds how many mailbox/control messages a single pool turn
	// processes before yielding the worker back to the pool. Defaults to
	// defaultTurnBudget. Ignored when Pool is nil.
	TurnBudget int
}

type BaseActor struct {
	id  string
	ctx context.Context
	log *slog.Logger

	mailbox chan Envelope
	control chan ctrlMsg

	stop     chan struct{}
	done     chan struct{}
	doneOnce sync.Once

	mu     sync.Mutex
	closed bool

	onPanic OnPanic

	// Pool-mode scheduling state. Unused (zero value) when pool is nil.
	pool       *cpu.Pool
	workerID   int
	turnBudget int
	scheduled  atomic.Bool
	refs       atomic.Int32

	// Turn state, touched only while scheduled == true, which serializes
	// access the same way the single loop() goroutine does in legacy mode.
	paused   bool
	stepMode bool
	permit   int

	hc      HandlerCtx
	handler RawHandler
}

// defaultTurnBudget bounds a single pool turn when Options.TurnBudget is
// unset.
const defaultTurnBudget = 64

func New(opt Options, handler RawHandler) Actor {
	if opt.MailboxSize == 0 {
		opt.MailboxSize = 1024
	}
	if opt.ControlSize == 0 {
		opt.ControlSize = 16
	}
	if opt.Context == nil {
		opt.Context = context.Background()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.MaxConcurrentTasks <= 0 {
		opt.MaxConcurrentTasks = 32
	}
	if opt.OnPanic == nil {
		opt.OnPanic = func(recovered any, stack []byte, msg any) {
			opt.Logger.Error("actor panicked", slog.Any("recovered", recovered), slog.Any("stack", stack), slog.Any("msg", msg))
		}
	}
	if opt.TurnBudget <= 0 {
		opt.TurnBudget = defaultTurnBudget
	}
	if opt.ID == "" {
		if id, err := gonanoid.New(); err == nil {
			opt.ID = id
		} else {
			opt.ID = "actor"
		}
	}

	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}

	ctx := opt.Context
	if ctx == nil {
		ctx = context.Background()
	}

	a := &BaseActor{
		id:         opt.ID,
		ctx:        ctx,
		log:        log,
		mailbox:    make(chan Envelope, opt.MailboxSize),
		control:    make(chan ctrlMsg, opt.ControlSize),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		onPanic:    opt.OnPanic,
		pool:       opt.Pool,
		workerID:   -1,
		turnBudget: opt.TurnBudget,
		permit:     1,
	}

	// Set up scheduler used by handler context

	hCtx := &handlerCtx{
		request: func(ctx context.Context, req any) (any, error) {
			data, err := json.Marshal(req)
			if err != nil {
				return nil, err
			}

			return RawRequest(ctx, a, msgTypeOf(req), data)
		},
		log:     log,
		Context: ctx,
		sched:   NewScheduler(opt.MaxConcurrentTasks, ctx),
	}
	a.hc = hCtx
	a.handler = handler

	if a.pool != nil {
		if err := handler.InitHandler(hCtx); err != nil {
			log.Error("actor init failed", slog.String("actor_id", a.id), slog.Any("error", err))
		}
		return a
	}

	go a.loop(hCtx, handler)
	return a
}

// Name identifies this actor for debug scopes; it satisfies cpu.Handle.
func (a *BaseActor) Name() string { return a.id }

// PendingCount reports the number of envelopes and control messages
// currently queued; it satisfies cpu.Handle.
func (a *BaseActor) PendingCount() int { return len(a.mailbox) + len(a.control) }

// Acquire is debug bookkeeping only: Go's garbage collector owns the actor's
// memory regardless of this count. It satisfies cpu.Handle.
func (a *BaseActor) Acquire() { a.refs.Add(1) }

// Release is the counterpart to Acquire; it satisfies cpu.Handle.
func (a *BaseActor) Release() { a.refs.Add(-1) }

// maybeSchedule submits the actor to its pool if it is not already scheduled
// and pool mode is enabled. A no-op in legacy (dedicated goroutine) mode.
func (a *BaseActor) maybeSchedule() {
	if a.pool == nil {
		return
	}
	if !a.scheduled.CompareAndSwap(false, true) {
		return
	}
	if wid := a.workerID; wid >= 0 {
		if err := a.pool.SubmitLocal(wid, a); err == nil {
			return
		}
	}
	a.pool.SubmitGlobal(a)
}

func (a *BaseActor) finish() {
	a.doneOnce.Do(func() { close(a.done) })
}

// Done is closed when the actor stops.
func (a *BaseActor) Done() <-chan struct{} { return a.done }

// Stop requests shutdown and waits for completion.
func (a *BaseActor) Stop() {
	// idempotent
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	a.mu.Unlock()

	// Try to tell the loop to stop; also close stop to unblock all sends/selects.
	select {
	case a.control <- ctrlMsg{kind: ctrlStop}:
	default:
	}
	close(a.stop)
	a.maybeSchedule() // pool mode: ensure a turn runs to observe a.stop and call finish
	<-a.done
}

// Send enqueues a command (blocking until enqueued, ctx canceled, or actor stopped).
func (a *BaseActor) Send(ctx context.Context, e Envelope) error {
	if a.isClosed() {
		return errors.New("actor stopped")
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("send failed: %w", ctx.Err())
	case <-a.stop:
		return errors.New("actor stopped")
	case a.mailbox <- e:
		a.maybeSchedule()
		return nil
	}
}

// TrySend attempts a non-blocking enqueue.
func (a *BaseActor) TrySend(cmd Envelope) bool {
	if a.isClosed() {
		return false
	}
	select {
	case <-a.stop:
		return false
	case a.mailbox <- cmd:
		a.maybeSchedule()
		return true
	default:
		return false
	}
}

// Pause prevents further processing until Resume or Step.
func (a *BaseActor) Pause() error { return a.sendCtrl(ctrlPause) }

// Resume enables continuous processing (disables step mode).
func (a *BaseActor) Resume() error { return a.sendCtrl(ctrlResume) }

// EnableStepMode makes the actor process only when Step() is called.
func (a *BaseActor) EnableStepMode() error { return a.sendCtrl(ctrlEnableStep) }

// Step permits exactly one message/tick to be processed.
func (a *BaseActor) Step() error { return a.sendCtrl(ctrlStep) }

// ---- internals ----

func (a *BaseActor) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *BaseActor) sendCtrl(k ctrlKind) error {
	if a.isClosed() {
		return errors.New("actor stopped")
	}
	select {
	case <-a.stop:
		return errors.New("actor stopped")
	case a.control <- ctrlMsg{kind: k}:
		a.maybeSchedule()
		return nil
	}
}

func (a *BaseActor) loop(hc HandlerCtx, h RawHandler) {
	defer a.finish()

	// execution state lives only in this goroutine
	paused := false
	stepMode := false
	permit := 1 // when >0, actor may process one message; in run mode we auto-renew

	// helper: call handler with crash containment
	safeHandle := func(mt string, data []byte) (any, error) {
		defer func() {
			if r := recover(); r != nil {
				if a.onPanic != nil {
					a.onPanic(r, debug.Stack(), nil)
				}
				// containment: keep running
			}
		}()
		return h.HandleMessage(hc, mt, data)
	}

	// helper: drain all pending control msgs (priority)
	drainControl := func() bool {
		for {
			select {
			case <-a.stop:
				return false
			case c := <-a.control:
				switch c.kind {
				case ctrlStop:
					return false
				case ctrlPause:
					paused = true
					permit = 0
				case ctrlResume:
					paused = false
					stepMode = false
					if permit == 0 {
						permit = 1
					}
				case ctrlEnableStep:
					stepMode = true
					paused = true
					permit = 0
				case ctrlStep:
					// allow exactly one processing opportunity
					permit++
				}
			default:
				return true
			}
		}
	}

	h.InitHandler(hc)

	for {
		// Always prioritize control.
		if ok := drainControl(); !ok {
			return
		}

		select {
		case <-hc.Done():
			return
		default:
		}

		// If no permit, block until a control message (or stop).
		if permit <= 0 {
			select {
			case <-a.stop:
				return
			case <-hc.Done():
				return
			case c := <-a.control:
				// process single control, then loop (drainControl next)
				switch c.kind {
				case ctrlStop:
					return
				case ctrlPause:
					paused = true
					permit = 0
				case ctrlResume:
					paused = false
					stepMode = false
					if permit == 0 {
						permit = 1
					}
				case ctrlEnableStep:
					stepMode = true
					paused = true
					permit = 0
				case ctrlStep:
					permit++
				}
			}
			continue
		}

		// With a permit, process exactly one unit of work (tick or mailbox),
		// but control can still preempt.
		var handled bool
		select {
		case <-a.stop:
			return
		case <-hc.Done():
			return
		case c := <-a.control:
			// preempt: apply control, do not consume permit yet
			switch c.kind {
			case ctrlStop:
				return
			case ctrlPause:
				paused = true
				permit = 0
			case ctrlResume:
				paused = false
				stepMode = false
				if permit == 0 {
					permit = 1
				}
			case ctrlEnableStep:
				stepMode = true
				paused = true
				permit = 0
			case ctrlStep:
				permit++
			}
			handled = false
		case msg := <-a.mailbox:
			permit--
			res, err := safeHandle(msg.Type, msg.Data)
			msg.Reply <- Reply{
				Result: res,
				Error:  err,
			}
			handled = true
		}

		// Auto-renew permit in continuous mode after successfully handling one message.
		if handled && !paused && !stepMode {
			permit++
		}
	}
}

// turnResult reports what execTurn should cause its caller (the pool
// executor) to do next.
type turnResult int

const (
	turnIdle    turnResult = iota // no more work available right now
	turnMore                     // budget exhausted but work may remain
	turnStopped                  // the actor has been told to stop
)

func (a *BaseActor) safeHandle(mt string, data []byte) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			if a.onPanic != nil {
				a.onPanic(r, debug.Stack(), nil)
			}
			err = fmt.Errorf("actor handler panicked: %v", r)
		}
	}()
	return a.handler.HandleMessage(a.hc, mt, data)
}

// execTurn runs up to budget units of mailbox/control work without blocking,
// mirroring loop()'s control-priority semantics but yielding control back to
// the pool instead of owning a dedicated goroutine. It is only ever called
// while a.scheduled is true, which serializes access to the turn-state
// fields the same way loop()'s single goroutine does in legacy mode.
func (a *BaseActor) execTurn(budget int) turnResult {
	for i := 0; i < budget; i++ {
		select {
		case <-a.stop:
			return turnStopped
		default:
		}

		for drained := false; !drained; {
			select {
			case c := <-a.control:
				switch c.kind {
				case ctrlStop:
					return turnStopped
				case ctrlPause:
					a.paused = true
					a.permit = 0
				case ctrlResume:
					a.paused = false
					a.stepMode = false
					if a.permit == 0 {
						a.permit = 1
					}
				case ctrlEnableStep:
					a.stepMode = true
					a.paused = true
					a.permit = 0
				case ctrlStep:
					a.permit++
				}
			default:
				drained = true
			}
		}

		if a.permit <= 0 {
			return turnIdle
		}

		select {
		case msg := <-a.mailbox:
			a.permit--
			res, err := a.safeHandle(msg.Type, msg.Data)
			msg.Reply <- Reply{Result: res, Error: err}
			if !a.paused && !a.stepMode {
				a.permit++
			}
		default:
			return turnIdle
		}
	}
	return turnMore
}
