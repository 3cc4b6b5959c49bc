package scheduler

import (
	"sync"
	"time"
)

// Frame schedules ticks on wall-clock timers spaced by a fixed interval.
type Frame struct {
	interval time.Duration

	mu      sync.Mutex
	next    Handle
	pending map[Handle]*time.Timer
}

// NewFrame creates a frame scheduler. A non-positive interval selects
// DefaultFrameInterval.
func NewFrame(interval time.Duration) *Frame {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Frame{
		interval: interval,
		pending:  make(map[Handle]*time.Timer),
	}
}

// Interval returns the spacing between ticks.
func (f *Frame) Interval() time.Duration {
	return f.interval
}

// ScheduleNextTick runs fn on its own goroutine after one interval.
func (f *Frame) ScheduleNextTick(fn TickFunc) Handle {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.next++
	h := f.next
	f.pending[h] = time.AfterFunc(f.interval, func() {
		f.mu.Lock()
		_, ok := f.pending[h]
		delete(f.pending, h)
		f.mu.Unlock()
		if ok {
			fn(time.Now())
		}
	})
	return h
}

// Cancel stops a pending tick.
func (f *Frame) Cancel(h Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.pending[h]; ok {
		t.Stop()
		delete(f.pending, h)
	}
}

// Pending returns the number of ticks scheduled but not yet run.
func (f *Frame) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}
