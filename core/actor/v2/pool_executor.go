package actor

import "github.com/wavepool/actorcpu/core/cpu"

// PoolExecutor drives BaseActor turns for a cpu.Pool. Pass it as
// PoolOptions.Executor when the pool is shared by actors created with
// Options.Pool set.
type PoolExecutor struct{}

// NewPoolExecutor returns the cpu.Executor actors created in pool mode
// require.
func NewPoolExecutor() cpu.Executor { return PoolExecutor{} }

// Execute runs one bounded turn of the actor behind h, then either
// reschedules it (more work fit the budget, or fresh work raced the turn's
// end), lets it go idle, or finalizes it on a stop.
func (PoolExecutor) Execute(ctx cpu.ExecContext, h cpu.Handle) {
	a, ok := h.(*BaseActor)
	if !ok {
		return
	}

	a.workerID = ctx.WorkerID

	budget := a.turnBudget
	if budget <= 0 {
		budget = defaultTurnBudget
	}

	switch a.execTurn(budget) {
	case turnStopped:
		a.finish()
		// Deliberately do not clear scheduled or reschedule: the actor is
		// done and must never run another turn.

	case turnMore:
		a.scheduled.Store(false)
		a.maybeSchedule()

	case turnIdle:
		a.scheduled.Store(false)
		// Re-check for work that arrived between execTurn's last empty poll
		// and the store above; if any raced in, either this goroutine or the
		// sender's maybeSchedule call (whichever CAS wins) will resubmit.
		if a.PendingCount() > 0 {
			a.maybeSchedule()
		}
	}
}
