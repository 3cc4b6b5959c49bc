package observer

import (
	"time"

	"github.com/bft-labs/timelinewatch/pkg/log"
	"github.com/bft-labs/timelinewatch/pkg/timeline"
)

// Callbacks are the optional per-watch lifecycle handlers.
type Callbacks struct {
	OnTimelineStart    timeline.Callback
	OnTimelineProgress timeline.Callback
	OnTimelinePause    timeline.Callback
	OnTimelineResume   timeline.Callback
	OnTimelineComplete timeline.Callback
}

// For returns the callback registered for k, or nil.
func (c Callbacks) For(k timeline.Kind) timeline.Callback {
	switch k {
	case timeline.KindStart:
		return c.OnTimelineStart
	case timeline.KindProgress:
		return c.OnTimelineProgress
	case timeline.KindPause:
		return c.OnTimelinePause
	case timeline.KindResume:
		return c.OnTimelineResume
	case timeline.KindComplete:
		return c.OnTimelineComplete
	default:
		return nil
	}
}

// Recorder receives observer measurements. See package metrics for a
// prometheus implementation.
type Recorder interface {
	EventFired(kind timeline.Kind)
	EntryFailed()
	CallbackFailed(kind timeline.Kind)
	TickObserved(entries int, elapsed time.Duration)
	WatchesChanged(n int)
}

// Option configures an Observer.
type Option func(*options)

type options struct {
	id       string
	logger   log.Logger
	recorder Recorder
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRecorder sets the measurement sink. Defaults to discarding.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithID sets the identifier attached to log entries. Defaults to a random
// UUID.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

type noopRecorder struct{}

func (noopRecorder) EventFired(timeline.Kind)        {}
func (noopRecorder) EntryFailed()                    {}
func (noopRecorder) CallbackFailed(timeline.Kind)    {}
func (noopRecorder) TickObserved(int, time.Duration) {}
func (noopRecorder) WatchesChanged(int)              {}
