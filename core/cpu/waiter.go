package cpu

import (
	"sync/atomic"
	"time"
)

type slotState int32

const (
	stateActive slotState = iota
	statePreSleep
	stateSleeping
)

// defaultParkTimeout bounds how long Wait can block without a Notify. It is
// a liveness safety net only — the CAS protocol below is race-free on its
// own — not a polling interval, so it is set high enough to never show up as
// busy-spin.
const defaultParkTimeout = 2 * time.Second

// Slot is per-worker state owned by exactly one worker goroutine. It must be
// obtained via [MpmcWaiter.InitSlot] before any call to Wait or StopWait.
type Slot struct {
	threadID int
	state    atomic.Int32
	wake     chan struct{}
}

// ThreadID returns the identity this slot was initialized with.
func (s *Slot) ThreadID() int { return s.threadID }

// MpmcWaiter lets any number of idle workers park until a producer makes
// work available, without ever losing a wakeup. It holds one [Slot] per
// worker, fixed at construction.
//
// The protocol is the standard two-phase park: before actually sleeping, a
// slot publishes intent (PreSleep); [MpmcWaiter.Notify] atomically flips any
// PreSleep or Sleeping slot back to Active, so a Notify that happens after a
// slot has published intent but before it has gone to sleep still cancels the
// sleep rather than being missed. Wait's recheck callback covers the other
// half of the window — work that was already available before PreSleep was
// published.
type MpmcWaiter struct {
	slots []*Slot
}

// NewMpmcWaiter creates a waiter with n slots, indexed [0,n).
func NewMpmcWaiter(n int) *MpmcWaiter {
	slots := make([]*Slot, n)
	for i := range slots {
		slots[i] = &Slot{wake: make(chan struct{}, 1)}
	}
	return &MpmcWaiter{slots: slots}
}

// InitSlot associates slot index idx with threadID and returns it. Call once,
// from the worker that will own the slot, before any Wait/StopWait.
func (w *MpmcWaiter) InitSlot(idx int, threadID int) *Slot {
	s := w.slots[idx]
	s.threadID = threadID
	s.state.Store(int32(stateActive))
	return s
}

// Wait blocks the calling goroutine until either some producer calls Notify
// after this call was entered, the slot is observed already cancelled by a
// racing StopWait, or recheck finds work. Wait may return spuriously (the
// caller must re-poll regardless); on return the slot is Active.
//
// recheck is invoked once, after the slot has published PreSleep but before
// it is committed to Sleeping. This closes the window a bare publish-then-CAS
// protocol leaves open: a producer's Push followed by Notify that lands while
// the slot is still Active finds nothing to wake (correctly — the consumer
// hasn't slept yet) and returns, but the consumer's last poll already missed
// that work, so without a second look here it would only be discovered after
// defaultParkTimeout instead of immediately. If recheck reports it found
// something, Wait aborts the sleep and hands the result straight back instead
// of parking. recheck may be nil, in which case Wait behaves as a plain park.
func (w *MpmcWaiter) Wait(slot *Slot, recheck func() (Handle, bool)) (Handle, bool) {
	slot.state.Store(int32(statePreSleep))

	if recheck != nil {
		if h, ok := recheck(); ok {
			w.StopWait(slot)
			return h, true
		}
	}

	if !slot.state.CompareAndSwap(int32(statePreSleep), int32(stateSleeping)) {
		// A Notify or StopWait raced us before we finished arming; the slot
		// is already Active and there is nothing to wait for.
		slot.state.Store(int32(stateActive))
		return nil, false
	}

	select {
	case <-slot.wake:
	case <-time.After(defaultParkTimeout):
	}

	slot.state.Store(int32(stateActive))
	return nil, false
}

// StopWait cancels any pending sleep on slot. Idempotent; safe to call even
// when the slot is already Active.
func (w *MpmcWaiter) StopWait(slot *Slot) {
	for {
		cur := slotState(slot.state.Load())
		if cur == stateActive {
			return
		}
		if slot.state.CompareAndSwap(int32(cur), int32(stateActive)) {
			if cur == stateSleeping {
				select {
				case slot.wake <- struct{}{}:
				default:
				}
			}
			return
		}
	}
}

// Notify releases at least one sleeper, if any slot is PreSleep or Sleeping.
// It is a no-op when every slot is Active. Any producer that just made work
// available should call this after publishing the work.
func (w *MpmcWaiter) Notify() {
	for _, s := range w.slots {
		for {
			cur := slotState(s.state.Load())
			if cur == stateActive {
				break
			}
			if s.state.CompareAndSwap(int32(cur), int32(stateActive)) {
				if cur == stateSleeping {
					select {
					case s.wake <- struct{}{}:
					default:
					}
				}
				return
			}
		}
	}
}

// Sleeping reports how many slots are currently parked (PreSleep or
// Sleeping). Telemetry only.
func (w *MpmcWaiter) Sleeping() int {
	n := 0
	for _, s := range w.slots {
		if slotState(s.state.Load()) != stateActive {
			n++
		}
	}
	return n
}
