package timeline

// Subject is anything that owns named timelines: a document or a symbol
// instance placed on a scene.
type Subject interface {
	// ID is a stable identifier. Documents return their document id, symbol
	// instances the id of their element.
	ID() string
	CurrentTime(timeline string) float64
	Duration(timeline string) float64
	IsPlaying(timeline string) bool
}

// Nested is implemented by subjects that live inside another subject, such
// as symbol instances inside a document.
type Nested interface {
	Subject
	Parent() Subject
}

// Element is a node of the host scene graph.
type Element interface {
	ID() string
}

// ElementSource reports the element lifecycle events originate from. A symbol
// returns its own element, a document the element of its current scene.
type ElementSource interface {
	Element() Element
}

// Root returns the outermost subject that owns s.
func Root(s Subject) Subject {
	for {
		n, ok := s.(Nested)
		if !ok || n.Parent() == nil {
			return s
		}
		s = n.Parent()
	}
}

// SubjectKey identifies a subject: "doc" for documents, "doc:element" for
// symbol instances.
func SubjectKey(s Subject) string {
	if n, ok := s.(Nested); ok && n.Parent() != nil {
		return Root(s).ID() + ":" + s.ID()
	}
	return s.ID()
}

// Key identifies a timeline of a subject. Document timelines are keyed
// "doc:name", symbol timelines "doc:element:name".
func Key(s Subject, timeline string) string {
	return SubjectKey(s) + ":" + timeline
}

// IsComplete reports whether the timeline's playhead sits at its end.
func IsComplete(s Subject, timeline string) bool {
	return Round(s.CurrentTime(timeline)) == Round(s.Duration(timeline))
}
