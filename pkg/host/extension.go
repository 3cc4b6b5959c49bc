package host

import (
	"fmt"
	"sync"

	"github.com/bft-labs/timelinewatch/pkg/log"
	"github.com/bft-labs/timelinewatch/pkg/observer"
	"github.com/bft-labs/timelinewatch/pkg/timeline"
)

// HostCompleteHandler is the handler name the host's own timeline-complete
// notification is forwarded to. It carries the host event's name.
const HostCompleteHandler = string(EventTimelineComplete)

// Options are the callbacks accepted by WatchTimelineByName.
type Options = observer.Callbacks

// Controls is the timeline surface handed to the host application for one
// document or symbol instance.
type Controls struct {
	obs     *observer.Observer
	subject timeline.Subject
}

// Subject returns the document or symbol the controls act on.
func (c *Controls) Subject() timeline.Subject {
	return c.subject
}

// WatchTimelineByName starts watching a timeline of the subject.
func (c *Controls) WatchTimelineByName(name string, opts Options) {
	c.obs.Watch(c.subject, name, opts)
}

// UnwatchTimelineByName stops watching a timeline of the subject.
func (c *Controls) UnwatchTimelineByName(name string) {
	c.obs.Unwatch(c.subject, name)
}

// IsTimelineComplete reports whether the timeline's playhead is at its end.
func (c *Controls) IsTimelineComplete(name string) bool {
	return c.obs.IsComplete(c.subject, name)
}

// Extension wires an observer into a host's lifecycle listeners.
type Extension struct {
	obs    *observer.Observer
	logger log.Logger

	mu       sync.RWMutex
	controls map[string]*Controls
}

// ExtensionOption configures an Extension.
type ExtensionOption func(*Extension)

// WithExtensionLogger sets the extension's logger.
func WithExtensionLogger(logger log.Logger) ExtensionOption {
	return func(e *Extension) {
		e.logger = logger
	}
}

// NewExtension creates an extension driving obs.
func NewExtension(obs *observer.Observer, opts ...ExtensionOption) *Extension {
	e := &Extension{
		obs:      obs,
		logger:   log.NewNoopLogger(),
		controls: make(map[string]*Controls),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the plugin identifier.
func (e *Extension) Name() string {
	return "timelinewatch"
}

// Register installs the extension's listeners.
func (e *Extension) Register(l *Listeners) {
	l.Push(EventDocumentLoad, e.onDocumentLoad)
	l.Push(EventSymbolLoad, e.onSymbolLoad)
	l.Push(EventTimelineComplete, e.onTimelineComplete)
	l.Push(EventScenePrepareForDisplay, e.onSceneBoundary)
	l.Push(EventSceneUnload, e.onSceneBoundary)
}

// Controls returns the controls created for subject by a load event.
func (e *Extension) Controls(subject timeline.Subject) (*Controls, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.controls[timeline.SubjectKey(subject)]
	return c, ok
}

func (e *Extension) install(subject timeline.Subject) *Controls {
	c := &Controls{obs: e.obs, subject: subject}
	key := timeline.SubjectKey(subject)

	e.mu.Lock()
	e.controls[key] = c
	e.mu.Unlock()

	e.logger.Debug("timeline controls installed", log.String("subject", key))
	return c
}

func (e *Extension) onDocumentLoad(doc Document, _ timeline.Element, _ Event) error {
	e.install(doc)
	return nil
}

func (e *Extension) onSymbolLoad(doc Document, element timeline.Element, _ Event) error {
	sym, err := symbolFor(doc, element)
	if err != nil {
		return err
	}
	if sym == nil {
		return fmt.Errorf("symbol load without element: %w", ErrSymbolNotFound)
	}
	e.install(sym)
	return nil
}

func (e *Extension) onTimelineComplete(doc Document, element timeline.Element, ev Event) error {
	var subject timeline.Subject = doc
	// Document timelines report their scene element, which is not a symbol.
	if sym, err := symbolFor(doc, element); err == nil && sym != nil {
		subject = sym
	}
	e.obs.Forward(subject, ev.TimelineName, HostCompleteHandler)
	return nil
}

func (e *Extension) onSceneBoundary(_ Document, _ timeline.Element, ev Event) error {
	e.logger.Debug("scene boundary, clearing watches", log.String("event", string(ev.Type)))
	e.obs.ClearAll()
	return nil
}

// symbolFor resolves element to a symbol instance of doc. A nil element
// yields a nil symbol.
func symbolFor(doc Document, element timeline.Element) (Symbol, error) {
	if element == nil {
		return nil, nil
	}
	sym, ok := doc.SymbolInstanceByID(element.ID())
	if !ok {
		return nil, fmt.Errorf("element %q: %w", element.ID(), ErrSymbolNotFound)
	}
	return sym, nil
}

var _ Plugin = (*Extension)(nil)
