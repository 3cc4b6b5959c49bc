package observer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/timelinewatch/pkg/scheduler"
	"github.com/bft-labs/timelinewatch/pkg/timeline"
)

type fakeElement string

func (e fakeElement) ID() string { return string(e) }

type fakeTimeline struct {
	pos, dur float64
	playing  bool
}

type fakeDoc struct {
	id        string
	scene     fakeElement
	timelines map[string]*fakeTimeline
	functions map[string]timeline.Callback
	handlers  map[string]timeline.Callback
}

func newFakeDoc(id string) *fakeDoc {
	return &fakeDoc{
		id:        id,
		scene:     fakeElement(id + "-scene"),
		timelines: make(map[string]*fakeTimeline),
		functions: make(map[string]timeline.Callback),
		handlers:  make(map[string]timeline.Callback),
	}
}

func (d *fakeDoc) tl(name string) *fakeTimeline {
	t, ok := d.timelines[name]
	if !ok {
		t = &fakeTimeline{}
		d.timelines[name] = t
	}
	return t
}

func (d *fakeDoc) ID() string                      { return d.id }
func (d *fakeDoc) CurrentTime(name string) float64 { return d.tl(name).pos }
func (d *fakeDoc) Duration(name string) float64    { return d.tl(name).dur }
func (d *fakeDoc) IsPlaying(name string) bool      { return d.tl(name).playing }
func (d *fakeDoc) Element() timeline.Element       { return d.scene }

func (d *fakeDoc) Function(name string) (timeline.Callback, bool) {
	fn, ok := d.functions[name]
	return fn, ok
}

func (d *fakeDoc) Handler(name string) (timeline.Callback, bool) {
	fn, ok := d.handlers[name]
	return fn, ok
}

type fakeSymbol struct {
	*fakeDoc
	parent *fakeDoc
}

func (s *fakeSymbol) Parent() timeline.Subject  { return s.parent }
func (s *fakeSymbol) Element() timeline.Element { return fakeElement(s.id) }

// recorder captures fired events as "kind@position".
type recorder struct {
	mu     sync.Mutex
	events []timeline.Event
}

func (r *recorder) cb(doc timeline.Subject, el timeline.Element, ev timeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []timeline.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]timeline.Kind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnTimelineStart:    r.cb,
		OnTimelineProgress: r.cb,
		OnTimelinePause:    r.cb,
		OnTimelineResume:   r.cb,
		OnTimelineComplete: r.cb,
	}
}

func newTestObserver(t *testing.T) (*Observer, *scheduler.Manual) {
	t.Helper()
	sched := scheduler.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 16*time.Millisecond)
	return New(sched, WithID("test")), sched
}

func TestObserver_LifecycleSequence(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")
	main := doc.tl("Main")
	main.dur, main.playing = 1, true

	var rec recorder
	key := obs.Watch(doc, "Main", rec.callbacks())
	assert.Equal(t, "doc:Main", key)
	assert.True(t, obs.Running())

	sched.Step() // start at 0
	main.pos = 0.4
	sched.Step() // progress
	main.playing = false
	sched.Step() // pause
	sched.Step() // nothing
	main.playing, main.pos = true, 0.5
	sched.Step() // resume
	main.pos = 0.8
	sched.Step() // progress
	main.pos, main.playing = 1, false
	sched.Step() // progress + complete
	sched.Step() // nothing

	assert.Equal(t, []timeline.Kind{
		timeline.KindStart,
		timeline.KindProgress,
		timeline.KindPause,
		timeline.KindResume,
		timeline.KindProgress,
		timeline.KindProgress,
		timeline.KindComplete,
	}, rec.kinds())

	st, ok := obs.State(doc, "Main")
	require.True(t, ok)
	assert.Equal(t, timeline.Stopped, st)
	assert.True(t, obs.IsComplete(doc, "Main"))
}

func TestObserver_EventPayload(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")
	doc.tl("Main").dur = 2
	doc.tl("Main").playing = true

	var rec recorder
	obs.Watch(doc, "Main", rec.callbacks())
	sched.Step()
	doc.tl("Main").pos = 0.12345
	sched.Step()

	require.Len(t, rec.events, 2)
	ev := rec.events[1]
	assert.Equal(t, timeline.KindProgress, ev.Kind)
	assert.Equal(t, "Main", ev.TimelineName)
	assert.Equal(t, 0.123, ev.Position)
	assert.Nil(t, ev.Symbol)
	assert.Equal(t, sched.Now(), ev.Time)
}

func TestObserver_ThreeTierDispatch(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")
	doc.tl("Main").dur = 5

	var order []string
	var elements []string
	record := func(tier string) timeline.Callback {
		return func(d timeline.Subject, el timeline.Element, ev timeline.Event) {
			assert.Same(t, doc, d)
			order = append(order, tier)
			elements = append(elements, el.ID())
		}
	}
	doc.functions["onTimelineStart"] = record("function")
	doc.handlers["onTimelineStart"] = record("handler")

	obs.Watch(doc, "Main", Callbacks{OnTimelineStart: record("callback")})
	sched.Step()

	assert.Equal(t, []string{"callback", "function", "handler"}, order)
	assert.Equal(t, []string{"doc-scene", "doc-scene", "doc-scene"}, elements)
}

func TestObserver_AbsentCallbacksAreSkipped(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")
	var got []string
	doc.handlers["onTimelineComplete"] = func(timeline.Subject, timeline.Element, timeline.Event) {
		got = append(got, "complete")
	}

	obs.Watch(doc, "Zero", Callbacks{})
	assert.NotPanics(t, func() { sched.Step() })
	assert.Equal(t, []string{"complete"}, got)
}

func TestObserver_SymbolTimeline(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")
	sym := &fakeSymbol{fakeDoc: newFakeDoc("sym-obj-3"), parent: doc}
	sym.tl("Spin").dur = 1

	var gotDoc timeline.Subject
	var gotEl timeline.Element
	var gotEv timeline.Event
	doc.functions["onTimelineStart"] = func(d timeline.Subject, el timeline.Element, ev timeline.Event) {
		gotDoc, gotEl, gotEv = d, el, ev
	}

	key := obs.Watch(sym, "Spin", Callbacks{})
	assert.Equal(t, "doc:sym-obj-3:Spin", key)
	sched.Step()

	assert.Same(t, doc, gotDoc)
	require.NotNil(t, gotEl)
	assert.Equal(t, "sym-obj-3", gotEl.ID())
	assert.Same(t, sym, gotEv.Symbol)
}

func TestObserver_UnchangedTicksFireNothing(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")
	doc.tl("Main").dur = 10
	doc.tl("Main").playing = true

	var rec recorder
	obs.Watch(doc, "Main", rec.callbacks())
	sched.Step()
	require.Len(t, rec.kinds(), 1)

	sched.StepN(10)
	assert.Len(t, rec.kinds(), 1)
}

func TestObserver_CompleteOncePerPlayThrough(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")
	tl := doc.tl("Main")
	tl.dur, tl.playing = 1, true

	var rec recorder
	obs.Watch(doc, "Main", rec.callbacks())

	for pass := 0; pass < 2; pass++ {
		for _, p := range []float64{0, 0.5, 1, 1, 1} {
			tl.pos = p
			sched.Step()
		}
	}

	var starts, completes int
	for _, k := range rec.kinds() {
		switch k {
		case timeline.KindStart:
			starts++
		case timeline.KindComplete:
			completes++
		}
	}
	assert.Equal(t, 2, starts)
	assert.Equal(t, 2, completes)
}

func TestObserver_RewatchOverwrites(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")
	doc.tl("Main").dur = 5
	doc.tl("Main").playing = true

	var first, second recorder
	obs.Watch(doc, "Other", Callbacks{})
	obs.Watch(doc, "Main", first.callbacks())
	sched.Step()
	require.Equal(t, []timeline.Kind{timeline.KindStart}, first.kinds())

	obs.Watch(doc, "Main", second.callbacks())
	assert.Equal(t, 2, obs.Len())
	assert.Equal(t, []string{"doc:Other", "doc:Main"}, obs.Keys())

	st, _ := obs.State(doc, "Main")
	assert.Equal(t, timeline.Stopped, st)

	// Sampling state was reset, so the unchanged position starts again.
	sched.Step()
	assert.Equal(t, []timeline.Kind{timeline.KindStart}, first.kinds())
	assert.Equal(t, []timeline.Kind{timeline.KindStart}, second.kinds())
}

func TestObserver_UnwatchStopsDriver(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")
	doc.tl("Main").dur = 5

	var rec recorder
	obs.Watch(doc, "Main", rec.callbacks())
	sched.Step()
	require.Equal(t, 1, sched.Pending())

	obs.Unwatch(doc, "Main")
	obs.Unwatch(doc, "Main")
	obs.Unwatch(doc, "Missing")

	assert.False(t, obs.Running())
	assert.Zero(t, sched.Pending())
	assert.Zero(t, obs.Len())

	doc.tl("Main").pos = 3
	assert.Zero(t, sched.StepN(5))
	assert.Len(t, rec.kinds(), 1)
}

func TestObserver_UnwatchKeepsDriverForOthers(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")

	obs.Watch(doc, "A", Callbacks{})
	obs.Watch(doc, "B", Callbacks{})
	obs.Unwatch(doc, "A")

	assert.True(t, obs.Running())
	assert.Equal(t, 1, sched.Step())
}

func TestObserver_ZeroDuration(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")

	var rec recorder
	obs.Watch(doc, "Zero", rec.callbacks())
	sched.Step()

	assert.Equal(t, []timeline.Kind{timeline.KindStart, timeline.KindComplete}, rec.kinds())
}

func TestObserver_ClearAllAndRestart(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")
	doc.tl("Main").dur = 5

	var rec recorder
	obs.Watch(doc, "Main", rec.callbacks())
	obs.Watch(doc, "Other", Callbacks{})
	sched.Step()

	obs.ClearAll()
	assert.False(t, obs.Running())
	assert.Zero(t, obs.Len())
	assert.Zero(t, sched.StepN(3))

	obs.Watch(doc, "Main", rec.callbacks())
	assert.True(t, obs.Running())
	sched.Step()
	assert.Equal(t, []timeline.Kind{timeline.KindStart, timeline.KindStart}, rec.kinds())
}

func TestObserver_CallbackMayUnwatchItself(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")

	var completes int
	obs.Watch(doc, "Zero", Callbacks{
		OnTimelineComplete: func(timeline.Subject, timeline.Element, timeline.Event) {
			completes++
			obs.Unwatch(doc, "Zero")
		},
	})
	sched.Step()

	assert.Equal(t, 1, completes)
	assert.False(t, obs.Running())
	assert.Zero(t, sched.StepN(3))
}

type panickySubject struct{ *fakeDoc }

func (panickySubject) CurrentTime(string) float64 { panic("host exploded") }

func TestObserver_FaultIsolation(t *testing.T) {
	obs, sched := newTestObserver(t)
	good := newFakeDoc("good")
	bad := panickySubject{newFakeDoc("bad")}

	var rec recorder
	obs.Watch(bad, "Main", rec.callbacks())
	obs.Watch(good, "Crashy", Callbacks{
		OnTimelineStart: func(timeline.Subject, timeline.Element, timeline.Event) { panic("callback exploded") },
	})
	obs.Watch(good, "Main", rec.callbacks())
	good.tl("Main").dur = 5

	assert.NotPanics(t, func() { sched.Step() })
	assert.Equal(t, []timeline.Kind{timeline.KindStart}, rec.kinds())
	assert.True(t, obs.Running())
	assert.Equal(t, 1, sched.Pending())
}

func TestObserver_Forward(t *testing.T) {
	obs, _ := newTestObserver(t)
	doc := newFakeDoc("doc")
	doc.tl("Main").pos = 2.00004

	var got []timeline.Event
	doc.functions["TimelineComplete"] = func(_ timeline.Subject, _ timeline.Element, ev timeline.Event) {
		got = append(got, ev)
	}

	obs.Forward(doc, "Main", "TimelineComplete")
	require.Len(t, got, 1)
	assert.Equal(t, "Main", got[0].TimelineName)
	assert.Equal(t, 2.0, got[0].Position)
	assert.False(t, obs.Running())
}

func TestObserver_IndependentInstances(t *testing.T) {
	a, schedA := newTestObserver(t)
	b, schedB := newTestObserver(t)
	doc := newFakeDoc("doc")

	a.Watch(doc, "Main", Callbacks{})
	assert.True(t, a.Running())
	assert.False(t, b.Running())
	assert.Equal(t, 1, schedA.Pending())
	assert.Zero(t, schedB.Pending())

	b.Watch(doc, "Main", Callbacks{})
	a.Close()
	assert.True(t, b.Running())
}

func TestObserver_DefaultID(t *testing.T) {
	obs := New(scheduler.NewManual(time.Time{}, 0))
	assert.Len(t, obs.ID(), 36)
}

func TestObserver_FrameScheduler(t *testing.T) {
	obs := New(scheduler.NewFrame(2 * time.Millisecond))
	doc := newFakeDoc("doc")

	done := make(chan struct{})
	var once sync.Once
	obs.Watch(doc, "Zero", Callbacks{
		OnTimelineComplete: func(timeline.Subject, timeline.Element, timeline.Event) {
			once.Do(func() { close(done) })
		},
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("complete never fired")
	}
	obs.Close()
	assert.False(t, obs.Running())
}

// movingDoc is safe for use from frame timer goroutines.
type movingDoc struct {
	mu  sync.Mutex
	pos float64
}

func (d *movingDoc) ID() string { return "moving" }

func (d *movingDoc) CurrentTime(string) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *movingDoc) Duration(string) float64 { return 1 }
func (d *movingDoc) IsPlaying(string) bool   { return true }

func (d *movingDoc) step() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pos < 1 {
		d.pos += 0.125
	}
}

func TestObserver_FrameTicksDoNotOverlapCallbacks(t *testing.T) {
	obs := New(scheduler.NewFrame(time.Millisecond))
	doc := &movingDoc{}

	var inFlight, maxInFlight atomic.Int32
	var mu sync.Mutex
	var positions []float64
	completed := make(chan struct{})

	slow := func(_ timeline.Subject, _ timeline.Element, ev timeline.Event) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		mu.Lock()
		positions = append(positions, ev.Position)
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)
		doc.step()
	}
	obs.Watch(doc, "Main", Callbacks{
		OnTimelineStart:    slow,
		OnTimelineProgress: slow,
		OnTimelineComplete: func(timeline.Subject, timeline.Element, timeline.Event) { close(completed) },
	})
	defer obs.Close()

	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("complete never fired")
	}

	assert.Equal(t, int32(1), maxInFlight.Load())
	mu.Lock()
	defer mu.Unlock()
	assert.IsNonDecreasing(t, positions)
}

func TestObserver_NextTickScheduledAfterDispatch(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")

	var pendingDuringCallback []int
	obs.Watch(doc, "Main", Callbacks{
		OnTimelineStart: func(timeline.Subject, timeline.Element, timeline.Event) {
			pendingDuringCallback = append(pendingDuringCallback, sched.Pending())
		},
	})

	sched.Step()
	assert.Equal(t, []int{0}, pendingDuringCallback)
	assert.Equal(t, 1, sched.Pending())
}

func TestObserver_RestartFromCallbackSchedulesOnce(t *testing.T) {
	obs, sched := newTestObserver(t)
	doc := newFakeDoc("doc")

	obs.Watch(doc, "Main", Callbacks{
		OnTimelineStart: func(subject timeline.Subject, _ timeline.Element, _ timeline.Event) {
			obs.ClearAll()
			obs.Watch(subject, "Other", Callbacks{})
		},
	})

	sched.Step()
	assert.True(t, obs.Running())
	assert.Equal(t, []string{"doc:Other"}, obs.Keys())
	assert.Equal(t, 1, sched.Pending())
}
