package observer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/timelinewatch/pkg/log"
	"github.com/bft-labs/timelinewatch/pkg/scheduler"
	"github.com/bft-labs/timelinewatch/pkg/timeline"
)

// entry is one watched timeline.
type entry struct {
	key       string
	subject   timeline.Subject
	name      string
	callbacks Callbacks
	tracker   timeline.Tracker
}

// Observer polls watched timelines and fires lifecycle callbacks.
// Use New to create one; all methods are safe for concurrent use and may be
// called from inside callbacks.
type Observer struct {
	id       string
	sched    scheduler.Scheduler
	logger   log.Logger
	recorder Recorder

	mu      sync.Mutex
	entries map[string]*entry
	order   []*entry
	running bool
	handle  scheduler.Handle
	// gen invalidates ticks scheduled before the last start or stop.
	gen uint64
}

// New creates an observer that polls on sched.
func New(sched scheduler.Scheduler, opts ...Option) *Observer {
	o := options{
		logger:   log.NewNoopLogger(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}

	return &Observer{
		id:       o.id,
		sched:    sched,
		logger:   o.logger,
		recorder: o.recorder,
		entries:  make(map[string]*entry),
	}
}

// ID returns the observer's identifier.
func (o *Observer) ID() string {
	return o.id
}

// Watch starts observing the named timeline of subject and returns its key.
// Watching a key again replaces its callbacks and resets its sampling state.
func (o *Observer) Watch(subject timeline.Subject, name string, callbacks Callbacks) string {
	key := timeline.Key(subject, name)
	e := &entry{key: key, subject: subject, name: name, callbacks: callbacks}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.entries[key]; exists {
		// Keep the first evaluation slot.
		for i, old := range o.order {
			if old.key == key {
				o.order[i] = e
				break
			}
		}
		o.logger.Debug("timeline rewatched", log.String("observer", o.id), log.String("key", key))
	} else {
		o.order = append(o.order, e)
		o.logger.Debug("timeline watched", log.String("observer", o.id), log.String("key", key))
	}
	o.entries[key] = e
	o.recorder.WatchesChanged(len(o.entries))

	if !o.running {
		o.startLocked()
	}
	return key
}

// Unwatch stops observing the named timeline. Unknown keys are ignored.
func (o *Observer) Unwatch(subject timeline.Subject, name string) {
	key := timeline.Key(subject, name)

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.entries[key]; !ok {
		return
	}
	delete(o.entries, key)
	for i, e := range o.order {
		if e.key == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	o.logger.Debug("timeline unwatched", log.String("observer", o.id), log.String("key", key))
	o.recorder.WatchesChanged(len(o.entries))

	if len(o.entries) == 0 {
		o.stopLocked()
	}
}

// ClearAll drops every entry and stops the driver. Hosts call it on scene
// boundaries.
func (o *Observer) ClearAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := len(o.entries)
	o.entries = make(map[string]*entry)
	o.order = nil
	o.recorder.WatchesChanged(0)
	o.stopLocked()
	if n > 0 {
		o.logger.Debug("watches cleared", log.String("observer", o.id), log.Int("entries", n))
	}
}

// Close tears the observer down. It is equivalent to ClearAll; the observer
// remains usable afterwards.
func (o *Observer) Close() {
	o.ClearAll()
}

// IsComplete reports whether the named timeline sits at its end.
func (o *Observer) IsComplete(subject timeline.Subject, name string) bool {
	return timeline.IsComplete(subject, name)
}

// Len returns the number of watched timelines.
func (o *Observer) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Keys returns the watched keys in evaluation order.
func (o *Observer) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	keys := make([]string, len(o.order))
	for i, e := range o.order {
		keys[i] = e.key
	}
	return keys
}

// State returns the lifecycle state of a watched timeline.
func (o *Observer) State(subject timeline.Subject, name string) (timeline.State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	e, ok := o.entries[timeline.Key(subject, name)]
	if !ok {
		return timeline.Stopped, false
	}
	return e.tracker.State(), true
}

// Running reports whether the polling driver is active.
func (o *Observer) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Observer) startLocked() {
	o.gen++
	o.running = true
	o.scheduleLocked()
	o.logger.Debug("polling driver started", log.String("observer", o.id))
}

func (o *Observer) stopLocked() {
	if !o.running {
		return
	}
	o.gen++
	o.running = false
	if o.handle != 0 {
		o.sched.Cancel(o.handle)
		o.handle = 0
	}
	o.logger.Debug("polling driver stopped", log.String("observer", o.id))
}

func (o *Observer) scheduleLocked() {
	gen := o.gen
	o.handle = o.sched.ScheduleNextTick(func(now time.Time) {
		o.tick(gen, now)
	})
}

// firing is a transition waiting to be dispatched.
type firing struct {
	entry *entry
	event timeline.Event
}

// tick samples every entry once, dispatches, then reschedules.
func (o *Observer) tick(gen uint64, now time.Time) {
	start := time.Now()

	o.mu.Lock()
	if !o.running || gen != o.gen {
		o.mu.Unlock()
		return
	}
	o.handle = 0

	var fired []firing
	for _, e := range o.order {
		kinds, pos, err := o.sample(e)
		if err != nil {
			o.logger.Warn("timeline sample failed",
				log.String("observer", o.id),
				log.String("key", e.key),
				log.Err(err))
			o.recorder.EntryFailed()
			continue
		}
		for _, k := range kinds {
			fired = append(fired, firing{entry: e, event: o.event(e.subject, e.name, k, pos, now)})
		}
	}
	entries := len(o.order)
	o.mu.Unlock()

	o.recorder.TickObserved(entries, time.Since(start))

	for _, f := range fired {
		o.recorder.EventFired(f.event.Kind)
		o.dispatch(f.entry.subject, f.entry.callbacks.For(f.event.Kind), f.event.Kind.HandlerName(), f.event)
	}

	// The next tick is scheduled only after this one's callbacks returned.
	// A callback that stopped or restarted the driver bumped the generation.
	o.mu.Lock()
	if o.running && gen == o.gen && o.handle == 0 {
		o.scheduleLocked()
	}
	o.mu.Unlock()
}

// sample reads the subject and advances the entry's tracker.
func (o *Observer) sample(e *entry) (kinds []timeline.Kind, pos float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSubjectPanic, r)
		}
	}()

	s := timeline.Sample{
		Position: e.subject.CurrentTime(e.name),
		Duration: e.subject.Duration(e.name),
		Playing:  e.subject.IsPlaying(e.name),
	}
	return e.tracker.Observe(s), timeline.Round(s.Position), nil
}

func (o *Observer) event(subject timeline.Subject, name string, kind timeline.Kind, pos float64, now time.Time) timeline.Event {
	ev := timeline.Event{Kind: kind, TimelineName: name, Position: pos, Time: now}
	if n, ok := subject.(timeline.Nested); ok && n.Parent() != nil {
		ev.Symbol = subject
	}
	return ev
}
