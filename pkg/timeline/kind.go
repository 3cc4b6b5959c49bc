package timeline

import "time"

// Kind is a lifecycle transition reported to callbacks.
type Kind int

const (
	KindStart Kind = iota
	KindProgress
	KindPause
	KindResume
	KindComplete
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindProgress:
		return "progress"
	case KindPause:
		return "pause"
	case KindResume:
		return "resume"
	case KindComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// HandlerName is the conventional name documents use for handlers of k.
func (k Kind) HandlerName() string {
	switch k {
	case KindStart:
		return "onTimelineStart"
	case KindProgress:
		return "onTimelineProgress"
	case KindPause:
		return "onTimelinePause"
	case KindResume:
		return "onTimelineResume"
	case KindComplete:
		return "onTimelineComplete"
	default:
		return ""
	}
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindStart, KindProgress, KindPause, KindResume, KindComplete}
}

// Event is the payload handed to lifecycle callbacks.
type Event struct {
	Kind         Kind
	TimelineName string
	// Symbol is the symbol instance owning the timeline, nil for document
	// timelines.
	Symbol Subject
	// Position is the rounded playhead position at the tick the event fired.
	Position float64
	Time     time.Time
}
