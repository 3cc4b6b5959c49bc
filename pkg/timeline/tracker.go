package timeline

// State is the lifecycle state a Tracker believes its timeline is in.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Sample is one reading of a timeline taken on a tick.
type Sample struct {
	Position float64
	Duration float64
	Playing  bool
}

// Tracker classifies successive samples of one timeline. The zero value is a
// stopped, never sampled tracker.
type Tracker struct {
	last    float64
	sampled bool
	state   State
}

// State returns the current lifecycle state.
func (t *Tracker) State() State { return t.state }

// LastPosition returns the last rounded position and whether any sample has
// been observed.
func (t *Tracker) LastPosition() (float64, bool) { return t.last, t.sampled }

// Reset returns the tracker to its zero value.
func (t *Tracker) Reset() { *t = Tracker{} }

// Observe feeds a sample and returns the transitions it caused, in firing
// order. Progress is evaluated before Start, Start before Complete, Complete
// before Resume.
func (t *Tracker) Observe(s Sample) []Kind {
	pos := Round(s.Position)
	progressed := !t.sampled || pos != t.last

	var fired []Kind
	if !progressed {
		if !s.Playing && t.state == Playing {
			fired = append(fired, KindPause)
			t.state = Paused
		}
		return fired
	}

	t.last = pos
	t.sampled = true
	if t.state == Playing {
		fired = append(fired, KindProgress)
	}
	if t.state == Stopped {
		fired = append(fired, KindStart)
		t.state = Playing
	}
	if pos == Round(s.Duration) {
		fired = append(fired, KindComplete)
		t.state = Stopped
	}
	if s.Playing && t.state == Paused {
		fired = append(fired, KindResume)
		t.state = Playing
	}
	return fired
}
