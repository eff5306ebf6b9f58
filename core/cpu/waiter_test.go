package cpu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMpmcWaiter_notifyWakesASleeper(t *testing.T) {
	w := NewMpmcWaiter(2)
	slotA := w.InitSlot(0, 100)
	slotB := w.InitSlot(1, 101)

	doneA := make(chan struct{})
	doneB := make(chan struct{})
	go func() { w.Wait(slotA, nil); close(doneA) }()
	go func() { w.Wait(slotB, nil); close(doneB) }()

	// Give both goroutines a chance to reach PreSleep/Sleeping.
	require.Eventually(t, func() bool { return w.Sleeping() == 2 }, time.Second, time.Millisecond)

	w.Notify()

	select {
	case <-doneA:
	case <-doneB:
	case <-time.After(time.Second):
		t.Fatal("notify did not wake any sleeper")
	}
}

func TestMpmcWaiter_earlyNotifyIsNoopAndLaterNotifyWakes(t *testing.T) {
	w := NewMpmcWaiter(1)
	slot := w.InitSlot(0, 7)

	// While the slot is Active, StopWait and Notify are both no-ops and
	// leave nothing behind. Once the slot really sleeps, the next Notify
	// must wake it.
	w.StopWait(slot)

	done := make(chan struct{})
	go func() {
		w.Notify() // no-op: slot is Active
		close(done)
	}()
	<-done

	// Now slot goes to sleep for real; a second Notify must wake it.
	waitDone := make(chan struct{})
	go func() { w.Wait(slot, nil); close(waitDone) }()
	require.Eventually(t, func() bool { return w.Sleeping() == 1 }, time.Second, time.Millisecond)
	w.Notify()

	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatal("lost wakeup")
	}
}

// TestMpmcWaiter_recheckAfterPreSleepCatchesWorkThatArrivedJustBefore
// exercises the race a bare publish-then-CAS protocol cannot close: work
// became available (and its producer's Notify found this slot still Active,
// a correct no-op) before this call published PreSleep. Without a recheck
// step, that work would only surface after defaultParkTimeout; Wait's
// recheck callback must discover it immediately and return it without ever
// transitioning the slot to Sleeping.
func TestMpmcWaiter_recheckAfterPreSleepCatchesWorkThatArrivedJustBefore(t *testing.T) {
	w := NewMpmcWaiter(1)
	slot := w.InitSlot(0, 7)

	already := newTestHandle("already-there")
	h, ok := w.Wait(slot, func() (Handle, bool) { return already, true })

	require.True(t, ok)
	require.Equal(t, already, h)
	require.Equal(t, 0, w.Sleeping())
}

func TestMpmcWaiter_recheckMissFallsThroughToRealSleep(t *testing.T) {
	w := NewMpmcWaiter(1)
	slot := w.InitSlot(0, 7)

	waitDone := make(chan struct{})
	go func() {
		_, ok := w.Wait(slot, func() (Handle, bool) { return nil, false })
		require.False(t, ok)
		close(waitDone)
	}()

	require.Eventually(t, func() bool { return w.Sleeping() == 1 }, time.Second, time.Millisecond)
	w.Notify()

	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatal("recheck miss did not fall through to a real, wakeable sleep")
	}
}

func TestMpmcWaiter_stopWaitCancelsPendingSleep(t *testing.T) {
	w := NewMpmcWaiter(1)
	slot := w.InitSlot(0, 7)

	waitDone := make(chan struct{})
	go func() { w.Wait(slot, nil); close(waitDone) }()

	require.Eventually(t, func() bool { return w.Sleeping() == 1 }, time.Second, time.Millisecond)
	w.StopWait(slot)

	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatal("stop_wait did not cancel the pending sleep")
	}
	require.Equal(t, 0, w.Sleeping())
}

func TestMpmcWaiter_notifyNoopWhenAllActive(t *testing.T) {
	w := NewMpmcWaiter(3)
	w.InitSlot(0, 1)
	w.InitSlot(1, 2)
	w.InitSlot(2, 3)

	require.Equal(t, 0, w.Sleeping())
	w.Notify() // must not panic or block
	require.Equal(t, 0, w.Sleeping())
}

func TestMpmcWaiter_stopWaitIdempotent(t *testing.T) {
	w := NewMpmcWaiter(1)
	slot := w.InitSlot(0, 1)
	w.StopWait(slot)
	w.StopWait(slot)
	require.Equal(t, 0, w.Sleeping())
}
