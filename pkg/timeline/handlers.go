package timeline

// Callback handles a lifecycle event. doc is the document owning the
// timeline even when the timeline belongs to a symbol instance; the symbol is
// carried in ev.Symbol.
type Callback func(doc Subject, element Element, ev Event)

// FunctionTable is implemented by documents that expose named scene
// functions.
type FunctionTable interface {
	Function(name string) (Callback, bool)
}

// HandlerTable is implemented by documents that expose named top-level
// handlers.
type HandlerTable interface {
	Handler(name string) (Callback, bool)
}
