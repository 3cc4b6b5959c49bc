// Package observer implements the timeline observer: a registry of watched
// timelines polled once per scheduler tick, with lifecycle callbacks
// synthesized from how the playhead moves.
//
// # Usage
//
//	obs := observer.New(scheduler.NewFrame(0), observer.WithLogger(logger))
//	defer obs.Close()
//
//	obs.Watch(doc, "Main Timeline", observer.Callbacks{
//	    OnTimelineComplete: func(doc timeline.Subject, el timeline.Element, ev timeline.Event) {
//	        fmt.Println(ev.TimelineName, "finished")
//	    },
//	})
//
// The polling driver starts with the first Watch and stops by itself once
// the registry is empty.
//
// # Dispatch
//
// Every transition is delivered, in order, to the callback given to Watch,
// then to the document's scene function with the conventional name (see
// [timeline.Kind.HandlerName]) if the document implements
// [timeline.FunctionTable], then to its top-level handler of the same name if
// it implements [timeline.HandlerTable]. A panic in any of them, or in the
// subject while it is sampled, is recovered and logged; the other entries keep
// being observed.
package observer
