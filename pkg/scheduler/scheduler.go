package scheduler

import "time"

// TickFunc is invoked with the time of the tick.
type TickFunc func(now time.Time)

// Handle identifies a scheduled tick. The zero Handle is never issued.
type Handle uint64

// Scheduler schedules one-shot tick callbacks.
type Scheduler interface {
	// ScheduleNextTick arranges for fn to run once on the next tick.
	ScheduleNextTick(fn TickFunc) Handle

	// Cancel prevents a pending tick from running. Cancelling a tick that
	// already ran, or an unknown handle, is a no-op.
	Cancel(h Handle)
}

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = time.Second / 60
