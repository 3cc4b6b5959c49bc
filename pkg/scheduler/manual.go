package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic scheduler. Ticks run only when Step is called,
// and the clock passed to them advances by a fixed step each time.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	step    time.Duration
	next    Handle
	pending map[Handle]TickFunc
}

// NewManual creates a manual scheduler whose clock starts at start and
// advances by step on every Step call.
func NewManual(start time.Time, step time.Duration) *Manual {
	if step <= 0 {
		step = DefaultFrameInterval
	}
	return &Manual{
		now:     start,
		step:    step,
		pending: make(map[Handle]TickFunc),
	}
}

// ScheduleNextTick queues fn for the next Step.
func (m *Manual) ScheduleNextTick(fn TickFunc) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	m.pending[m.next] = fn
	return m.next
}

// Cancel removes a queued tick.
func (m *Manual) Cancel(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, h)
}

// Step advances the clock and runs every tick queued before the call, in
// scheduling order. Ticks scheduled by those callbacks wait for the next
// Step. It returns how many callbacks ran.
func (m *Manual) Step() int {
	m.mu.Lock()
	m.now = m.now.Add(m.step)
	now := m.now
	handles := make([]Handle, 0, len(m.pending))
	for h := range m.pending {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	m.mu.Unlock()

	ran := 0
	for _, h := range handles {
		m.mu.Lock()
		fn, ok := m.pending[h]
		delete(m.pending, h)
		m.mu.Unlock()
		if !ok {
			// Cancelled by an earlier callback in this step.
			continue
		}
		fn(now)
		ran++
	}
	return ran
}

// StepN calls Step n times and returns the total number of callbacks run.
func (m *Manual) StepN(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += m.Step()
	}
	return total
}

// Now returns the current synthetic time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// StepSize returns how far the clock advances per Step.
func (m *Manual) StepSize() time.Duration {
	return m.step
}

// Pending returns the number of queued ticks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
