// Package timelinewatch synthesizes lifecycle events for the timelines of an
// animation document by polling their playhead positions.
//
// Example usage:
//
//	obs := timelinewatch.New()
//	defer obs.Close()
//	obs.Watch(doc, "Main", timelinewatch.Callbacks{
//	    OnTimelineComplete: func(doc timelinewatch.Subject, el timelinewatch.Element, ev timelinewatch.Event) {
//	        fmt.Println(ev.TimelineName, "done")
//	    },
//	})
package timelinewatch

import (
	"github.com/bft-labs/timelinewatch/pkg/host"
	"github.com/bft-labs/timelinewatch/pkg/observer"
	"github.com/bft-labs/timelinewatch/pkg/scheduler"
	"github.com/bft-labs/timelinewatch/pkg/timeline"
)

// Observer watches timelines and fires their lifecycle callbacks.
type Observer = observer.Observer

// Callbacks are the optional per-watch lifecycle callbacks.
type Callbacks = observer.Callbacks

// Option configures an Observer.
type Option = observer.Option

// Subject is anything with named timelines.
type Subject = timeline.Subject

// Element is a host element a callback is told about.
type Element = timeline.Element

// Event is the payload passed to callbacks.
type Event = timeline.Event

// Kind is a lifecycle transition.
type Kind = timeline.Kind

// New creates an observer polling at the default frame rate.
func New(opts ...Option) *Observer {
	return observer.New(scheduler.NewFrame(scheduler.DefaultFrameInterval), opts...)
}

// NewWithScheduler creates an observer driven by sched.
func NewWithScheduler(sched scheduler.Scheduler, opts ...Option) *Observer {
	return observer.New(sched, opts...)
}

// NewExtension creates a host extension around obs. Install it on the host's
// listeners to get per-document and per-symbol Controls.
func NewExtension(obs *Observer, opts ...host.ExtensionOption) *host.Extension {
	return host.NewExtension(obs, opts...)
}
