package simhost

import (
	"errors"
	"sort"
	"sync"

	"github.com/bft-labs/timelinewatch/pkg/host"
	"github.com/bft-labs/timelinewatch/pkg/timeline"
)

// Element is a scene-graph element identified by its id.
type Element string

// ID returns the element id.
func (e Element) ID() string { return string(e) }

// Track is the playback state of one timeline.
type Track struct {
	Duration float64
	Position float64
	Playing  bool
}

// completion is a track that reached its end during Advance.
type completion struct {
	element timeline.Element
	name    string
}

// tracks is a set of named timelines guarded by the owning document's lock.
type tracks map[string]*Track

func (t tracks) get(name string) Track {
	if tr, ok := t[name]; ok {
		return *tr
	}
	return Track{}
}

// advance moves playing tracks by dt seconds and returns the names of those
// that reached their end.
func (t tracks) advance(dt float64) []string {
	var done []string
	for name, tr := range t {
		if !tr.Playing {
			continue
		}
		tr.Position += dt
		if tr.Position >= tr.Duration {
			tr.Position = tr.Duration
			tr.Playing = false
			done = append(done, name)
		}
	}
	sort.Strings(done)
	return done
}

// Document is a simulated host document.
type Document struct {
	id string

	mu        sync.RWMutex
	scene     Element
	tracks    tracks
	symbols   map[string]*Symbol
	symOrder  []string
	functions map[string]timeline.Callback
	handlers  map[string]timeline.Callback
	listeners *host.Listeners
}

// NewDocument creates a document showing scene.
func NewDocument(id, scene string) *Document {
	return &Document{
		id:        id,
		scene:     Element(scene),
		tracks:    make(tracks),
		symbols:   make(map[string]*Symbol),
		functions: make(map[string]timeline.Callback),
		handlers:  make(map[string]timeline.Callback),
	}
}

func (d *Document) ID() string { return d.id }

func (d *Document) CurrentTime(name string) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tracks.get(name).Position
}

func (d *Document) Duration(name string) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tracks.get(name).Duration
}

func (d *Document) IsPlaying(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tracks.get(name).Playing
}

// Element returns the current scene's element.
func (d *Document) Element() timeline.Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scene
}

// Scene returns the current scene name.
func (d *Document) Scene() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return string(d.scene)
}

// SymbolInstanceByID looks up a symbol by its element id.
func (d *Document) SymbolInstanceByID(elementID string) (host.Symbol, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.symbols[elementID]
	if !ok {
		return nil, false
	}
	return s, true
}

// Symbol returns the concrete symbol with the given element id.
func (d *Document) Symbol(elementID string) (*Symbol, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.symbols[elementID]
	return s, ok
}

func (d *Document) Function(name string) (timeline.Callback, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn, ok := d.functions[name]
	return fn, ok
}

func (d *Document) Handler(name string) (timeline.Callback, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn, ok := d.handlers[name]
	return fn, ok
}

// SetFunction registers a scene function.
func (d *Document) SetFunction(name string, fn timeline.Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.functions[name] = fn
}

// SetHandler registers a top-level handler.
func (d *Document) SetHandler(name string, fn timeline.Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = fn
}

// AddTimeline declares a stopped timeline at position zero.
func (d *Document) AddTimeline(name string, duration float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracks[name] = &Track{Duration: duration}
}

// AddSymbol places a symbol instance with the given element id.
func (d *Document) AddSymbol(elementID string) *Symbol {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.symbols[elementID]; ok {
		return s
	}
	s := &Symbol{doc: d, element: Element(elementID), tracks: make(tracks)}
	d.symbols[elementID] = s
	d.symOrder = append(d.symOrder, elementID)
	return s
}

// Play starts or continues a timeline. A timeline parked at its end restarts
// from zero.
func (d *Document) Play(name string) { d.update(d.tracks, name, play) }

// Pause halts a timeline where it is.
func (d *Document) Pause(name string) { d.update(d.tracks, name, pause) }

// GoTo moves a timeline's playhead, clamped to its duration.
func (d *Document) GoTo(name string, pos float64) {
	d.update(d.tracks, name, func(t *Track) { seek(t, pos) })
}

func play(t *Track) {
	if t.Position >= t.Duration {
		t.Position = 0
	}
	t.Playing = true
}

func pause(t *Track) { t.Playing = false }

func seek(t *Track, pos float64) {
	switch {
	case pos < 0:
		t.Position = 0
	case pos > t.Duration:
		t.Position = t.Duration
	default:
		t.Position = pos
	}
}

func (d *Document) update(set tracks, name string, fn func(*Track)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := set[name]; ok {
		fn(t)
	}
}

// Attach makes the document emit its lifecycle events on l.
func (d *Document) Attach(l *host.Listeners) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = l
}

func (d *Document) emit(element timeline.Element, ev host.Event) error {
	d.mu.RLock()
	l := d.listeners
	d.mu.RUnlock()
	if l == nil {
		return nil
	}
	return l.Dispatch(d, element, ev)
}

// Load announces the document and then each of its symbols.
func (d *Document) Load() error {
	errs := []error{d.emit(nil, host.Event{Type: host.EventDocumentLoad})}

	d.mu.RLock()
	ids := append([]string(nil), d.symOrder...)
	d.mu.RUnlock()
	for _, id := range ids {
		errs = append(errs, d.emit(Element(id), host.Event{Type: host.EventSymbolLoad}))
	}
	return errors.Join(errs...)
}

// ChangeScene unloads the current scene, switches, and prepares the new one
// for display.
func (d *Document) ChangeScene(scene string) error {
	unload := d.emit(d.Element(), host.Event{Type: host.EventSceneUnload})

	d.mu.Lock()
	d.scene = Element(scene)
	d.mu.Unlock()

	prepare := d.emit(d.Element(), host.Event{Type: host.EventScenePrepareForDisplay})
	return errors.Join(unload, prepare)
}

// Advance moves every playing timeline of the document and its symbols by dt
// seconds. Timelines reaching their end stop there, and the host's
// timeline-complete notification is emitted for each.
func (d *Document) Advance(dt float64) error {
	var done []completion

	d.mu.Lock()
	for _, name := range d.tracks.advance(dt) {
		done = append(done, completion{element: d.scene, name: name})
	}
	for _, id := range d.symOrder {
		for _, name := range d.symbols[id].tracks.advance(dt) {
			done = append(done, completion{element: Element(id), name: name})
		}
	}
	d.mu.Unlock()

	var errs []error
	for _, c := range done {
		errs = append(errs, d.emit(c.element, host.Event{Type: host.EventTimelineComplete, TimelineName: c.name}))
	}
	return errors.Join(errs...)
}

// Symbol is a simulated symbol instance.
type Symbol struct {
	doc     *Document
	element Element
	tracks  tracks
}

func (s *Symbol) ID() string                { return string(s.element) }
func (s *Symbol) Parent() timeline.Subject  { return s.doc }
func (s *Symbol) Element() timeline.Element { return s.element }

func (s *Symbol) CurrentTime(name string) float64 {
	s.doc.mu.RLock()
	defer s.doc.mu.RUnlock()
	return s.tracks.get(name).Position
}

func (s *Symbol) Duration(name string) float64 {
	s.doc.mu.RLock()
	defer s.doc.mu.RUnlock()
	return s.tracks.get(name).Duration
}

func (s *Symbol) IsPlaying(name string) bool {
	s.doc.mu.RLock()
	defer s.doc.mu.RUnlock()
	return s.tracks.get(name).Playing
}

// AddTimeline declares a stopped timeline on the symbol.
func (s *Symbol) AddTimeline(name string, duration float64) {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()
	s.tracks[name] = &Track{Duration: duration}
}

func (s *Symbol) Play(name string)  { s.doc.update(s.tracks, name, play) }
func (s *Symbol) Pause(name string) { s.doc.update(s.tracks, name, pause) }

func (s *Symbol) GoTo(name string, pos float64) {
	s.doc.update(s.tracks, name, func(t *Track) { seek(t, pos) })
}

var (
	_ host.Document          = (*Document)(nil)
	_ host.Symbol            = (*Symbol)(nil)
	_ timeline.FunctionTable = (*Document)(nil)
	_ timeline.HandlerTable  = (*Document)(nil)
)
