// Package host connects the observer to a host runtime's lifecycle
// notifications.
//
// The host announces documents, symbol instances and scene changes through a
// [Listeners] list. An [Extension] registers itself on that list and, for
// every document or symbol the host announces, creates [Controls]: the
// watch / unwatch / is-complete surface the host application uses instead of
// methods bolted onto host objects.
//
//	listeners := host.NewListeners()
//	ext := host.NewExtension(obs)
//	ext.Register(listeners)
//
//	// later, from the host:
//	_ = listeners.Dispatch(doc, nil, host.Event{Type: host.EventDocumentLoad})
//	ctl, _ := ext.Controls(doc)
//	ctl.WatchTimelineByName("Main Timeline", host.Options{OnTimelineComplete: done})
//
// Scene transitions (ScenePrepareForDisplay, SceneUnload) clear every watch.
package host
