package cpu

import "github.com/wavepool/actorcpu/core/metrics"

// CPUMetrics is the telemetry interface for the scheduler pillar, mirroring
// how core/actor/v2.ActorMetrics is structured. All methods must be safe for
// concurrent use.
type CPUMetrics interface {
	// TurnDuration times one Executor.Execute call.
	TurnDuration() metrics.Timer
	// TurnCompleted records whether a turn finished without panicking.
	TurnCompleted(success bool)

	// PollHit records a successful dequeue, tagged by source.
	PollHit(source string)
	// PollMiss records an unsuccessful full poll (local+global+steal all
	// missed), just before the worker parks.
	PollMiss()

	// StealAttempt records a steal attempt outcome.
	StealAttempt(success bool)

	// ParkEnter/ParkExit bracket a worker's time spent inside Waiter.Wait.
	ParkEnter(workerID int)
	ParkExit(workerID int)

	// QueueDepth reports a worker's local queue depth after each poll.
	QueueDepth(workerID int, depth int)
	// GlobalQueueDepth reports the global queue's total depth.
	GlobalQueueDepth(depth int)
}

type nopCPUMetrics struct{}

func (nopCPUMetrics) TurnDuration() metrics.Timer { return metrics.NopTimer() }
func (nopCPUMetrics) TurnCompleted(bool)          {}
func (nopCPUMetrics) PollHit(string)              {}
func (nopCPUMetrics) PollMiss()                   {}
func (nopCPUMetrics) StealAttempt(bool)           {}
func (nopCPUMetrics) ParkEnter(int)               {}
func (nopCPUMetrics) ParkExit(int)                {}
func (nopCPUMetrics) QueueDepth(int, int)         {}
func (nopCPUMetrics) GlobalQueueDepth(int)        {}

// NopCPUMetrics returns a no-op CPUMetrics implementation.
func NopCPUMetrics() CPUMetrics { return nopCPUMetrics{} }
