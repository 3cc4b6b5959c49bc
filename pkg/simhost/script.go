package simhost

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScript is returned when a script fails validation.
var ErrInvalidScript = errors.New("simhost: invalid script")

// Action operations.
const (
	OpPlay  = "play"
	OpPause = "pause"
	OpGoTo  = "goto"
	OpScene = "scene"
)

// Script describes a simulated document and what happens to it over time.
// Times are in seconds of simulated playback.
type Script struct {
	Document  string        `toml:"document" yaml:"document"`
	Scene     string        `toml:"scene" yaml:"scene"`
	Length    float64       `toml:"length" yaml:"length"`
	Timelines []TimelineDef `toml:"timeline" yaml:"timelines"`
	Actions   []Action      `toml:"action" yaml:"actions"`
}

// TimelineDef declares a timeline, on the document or on a symbol.
type TimelineDef struct {
	Name     string  `toml:"name" yaml:"name"`
	Symbol   string  `toml:"symbol" yaml:"symbol"`
	Duration float64 `toml:"duration" yaml:"duration"`
	Autoplay bool    `toml:"autoplay" yaml:"autoplay"`
}

// Action is a playback command applied at a point in simulated time.
type Action struct {
	At       float64 `toml:"at" yaml:"at"`
	Op       string  `toml:"op" yaml:"op"`
	Timeline string  `toml:"timeline" yaml:"timeline"`
	Symbol   string  `toml:"symbol" yaml:"symbol"`
	Position float64 `toml:"position" yaml:"position"`
	Scene    string  `toml:"scene" yaml:"scene"`
}

// LoadScript reads a script, picking the format from the file extension
// (.toml, .yaml or .yml).
func LoadScript(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	s, err := ParseScript(b, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScript decodes a script in the given format ("toml" or "yaml") and
// validates it.
func ParseScript(data []byte, format string) (*Script, error) {
	var s Script
	switch format {
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidScript, format)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the script and fills defaults. Actions are sorted by time,
// keeping the written order for actions at the same time.
func (s *Script) Validate() error {
	if s.Document == "" {
		s.Document = "document"
	}
	if s.Scene == "" {
		s.Scene = "scene-1"
	}
	if s.Length <= 0 {
		return fmt.Errorf("%w: length must be positive", ErrInvalidScript)
	}
	if len(s.Timelines) == 0 {
		return fmt.Errorf("%w: no timelines declared", ErrInvalidScript)
	}

	declared := make(map[string]bool, len(s.Timelines))
	for i, tl := range s.Timelines {
		if tl.Name == "" {
			return fmt.Errorf("%w: timeline %d has no name", ErrInvalidScript, i)
		}
		if tl.Duration < 0 {
			return fmt.Errorf("%w: timeline %q has negative duration", ErrInvalidScript, tl.Name)
		}
		id := tl.Symbol + "/" + tl.Name
		if declared[id] {
			return fmt.Errorf("%w: timeline %q declared twice", ErrInvalidScript, tl.Name)
		}
		declared[id] = true
	}

	for i, a := range s.Actions {
		if a.At < 0 {
			return fmt.Errorf("%w: action %d at negative time", ErrInvalidScript, i)
		}
		switch a.Op {
		case OpPlay, OpPause, OpGoTo:
			if !declared[a.Symbol+"/"+a.Timeline] {
				return fmt.Errorf("%w: action %d targets undeclared timeline %q", ErrInvalidScript, i, a.Timeline)
			}
		case OpScene:
			if a.Scene == "" {
				return fmt.Errorf("%w: action %d changes to an unnamed scene", ErrInvalidScript, i)
			}
		default:
			return fmt.Errorf("%w: action %d has unknown op %q", ErrInvalidScript, i, a.Op)
		}
	}
	sort.SliceStable(s.Actions, func(i, j int) bool { return s.Actions[i].At < s.Actions[j].At })
	return nil
}

// Build creates the document the script describes, with autoplay timelines
// already playing.
func (s *Script) Build() *Document {
	doc := NewDocument(s.Document, s.Scene)
	for _, tl := range s.Timelines {
		if tl.Symbol == "" {
			doc.AddTimeline(tl.Name, tl.Duration)
			if tl.Autoplay {
				doc.Play(tl.Name)
			}
			continue
		}
		sym := doc.AddSymbol(tl.Symbol)
		sym.AddTimeline(tl.Name, tl.Duration)
		if tl.Autoplay {
			sym.Play(tl.Name)
		}
	}
	return doc
}

// Apply performs a on doc.
func (a Action) Apply(doc *Document) error {
	if a.Op == OpScene {
		return doc.ChangeScene(a.Scene)
	}

	type player interface {
		Play(string)
		Pause(string)
		GoTo(string, float64)
	}
	var target player = doc
	if a.Symbol != "" {
		sym, ok := doc.Symbol(a.Symbol)
		if !ok {
			return fmt.Errorf("%w: symbol %q", ErrInvalidScript, a.Symbol)
		}
		target = sym
	}

	switch a.Op {
	case OpPlay:
		target.Play(a.Timeline)
	case OpPause:
		target.Pause(a.Timeline)
	case OpGoTo:
		target.GoTo(a.Timeline, a.Position)
	}
	return nil
}
