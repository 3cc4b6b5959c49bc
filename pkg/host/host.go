package host

import (
	"errors"
	"sync"

	"github.com/bft-labs/timelinewatch/pkg/timeline"
)

// ErrSymbolNotFound is returned when a symbol event names an element the
// document does not know.
var ErrSymbolNotFound = errors.New("host: symbol instance not found")

// Document is a host document.
type Document interface {
	timeline.Subject
	// Element returns the element of the current scene.
	timeline.ElementSource
	SymbolInstanceByID(elementID string) (Symbol, bool)
}

// Symbol is a symbol instance placed on a scene of a document.
type Symbol interface {
	timeline.Nested
	timeline.ElementSource
}

// EventType names a host lifecycle notification.
type EventType string

const (
	EventDocumentLoad           EventType = "DocumentLoad"
	EventSymbolLoad             EventType = "SymbolLoad"
	EventTimelineComplete       EventType = "TimelineComplete"
	EventScenePrepareForDisplay EventType = "ScenePrepareForDisplay"
	EventSceneUnload            EventType = "SceneUnload"
)

// Event is a host lifecycle notification.
type Event struct {
	Type EventType
	// TimelineName is set for EventTimelineComplete.
	TimelineName string
}

// ListenerFunc handles a host notification. element is the element the
// notification concerns; it may be nil for document-level events.
type ListenerFunc func(doc Document, element timeline.Element, ev Event) error

// Plugin is an extension that installs listeners.
type Plugin interface {
	Name() string
	Register(l *Listeners)
}

type listener struct {
	typ EventType
	fn  ListenerFunc
}

// Listeners is the host's ordered list of lifecycle listeners.
type Listeners struct {
	mu   sync.RWMutex
	list []listener
}

// NewListeners creates an empty listener list.
func NewListeners() *Listeners {
	return &Listeners{}
}

// Push appends a listener for events of type t.
func (l *Listeners) Push(t EventType, fn ListenerFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.list = append(l.list, listener{typ: t, fn: fn})
}

// Install registers each plugin.
func (l *Listeners) Install(plugins ...Plugin) {
	for _, p := range plugins {
		p.Register(l)
	}
}

// Dispatch calls every listener of ev.Type in registration order. All
// listeners run; their errors are joined.
func (l *Listeners) Dispatch(doc Document, element timeline.Element, ev Event) error {
	l.mu.RLock()
	matched := make([]ListenerFunc, 0, len(l.list))
	for _, ln := range l.list {
		if ln.typ == ev.Type {
			matched = append(matched, ln.fn)
		}
	}
	l.mu.RUnlock()

	var errs []error
	for _, fn := range matched {
		if err := fn(doc, element, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of registered listeners.
func (l *Listeners) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.list)
}
