package simhost

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/timelinewatch/pkg/host"
	"github.com/bft-labs/timelinewatch/pkg/log"
	"github.com/bft-labs/timelinewatch/pkg/observer"
	"github.com/bft-labs/timelinewatch/pkg/scheduler"
	"github.com/bft-labs/timelinewatch/pkg/timeline"
)

// Record is one lifecycle event observed during a run.
type Record struct {
	// At is the simulated time in seconds.
	At       float64
	Key      string
	Kind     timeline.Kind
	Position float64
}

// Summary is the outcome of a run.
type Summary struct {
	Frames  int
	Records []Record
}

// Count returns how many records of kind k were observed.
func (s Summary) Count(k timeline.Kind) int {
	n := 0
	for _, r := range s.Records {
		if r.Kind == k {
			n++
		}
	}
	return n
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Frame is the polling interval and simulation step.
	Frame time.Duration
	// Realtime paces the run on the wall clock with a frame scheduler.
	// Otherwise frames are stepped as fast as possible on a manual
	// scheduler, which makes runs reproducible.
	Realtime bool
	Logger   log.Logger
	Recorder observer.Recorder
	// OnRecord, if set, is called for every record as it happens.
	OnRecord func(Record)
}

// Runner plays a Script through an observer attached via the host extension.
type Runner struct {
	script *Script
	cfg    RunnerConfig

	mu      sync.Mutex
	start   time.Time
	records []Record
}

// NewRunner creates a runner for script.
func NewRunner(script *Script, cfg RunnerConfig) *Runner {
	if cfg.Frame <= 0 {
		cfg.Frame = scheduler.DefaultFrameInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	return &Runner{script: script, cfg: cfg}
}

// Run plays the script to its length or until ctx is done.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()

	var sched scheduler.Scheduler
	var manual *scheduler.Manual
	if r.cfg.Realtime {
		sched = scheduler.NewFrame(r.cfg.Frame)
		r.start = time.Now()
	} else {
		r.start = time.Unix(0, 0).UTC()
		manual = scheduler.NewManual(r.start, r.cfg.Frame)
		sched = manual
	}

	opts := []observer.Option{observer.WithLogger(r.cfg.Logger)}
	if r.cfg.Recorder != nil {
		opts = append(opts, observer.WithRecorder(r.cfg.Recorder))
	}
	obs := observer.New(sched, opts...)
	defer obs.Close()

	doc := r.script.Build()
	listeners := host.NewListeners()
	ext := host.NewExtension(obs, host.WithExtensionLogger(r.cfg.Logger))
	listeners.Install(ext)
	// Runs after the extension cleared the previous scene's watches.
	listeners.Push(host.EventScenePrepareForDisplay, func(host.Document, timeline.Element, host.Event) error {
		return r.watchAll(ext, doc)
	})
	doc.Attach(listeners)

	if err := doc.Load(); err != nil {
		return Summary{}, fmt.Errorf("load document: %w", err)
	}
	if err := r.watchAll(ext, doc); err != nil {
		return Summary{}, err
	}

	r.cfg.Logger.Info("simulation started",
		log.String("document", doc.ID()),
		log.String("scene", doc.Scene()),
		log.Int("timelines", obs.Len()),
		log.Bool("realtime", r.cfg.Realtime))

	var frames int
	var err error
	if manual != nil {
		frames, err = r.runStepped(ctx, doc, manual)
	} else {
		frames, err = r.runRealtime(ctx, doc)
	}

	r.mu.Lock()
	sum := Summary{Frames: frames, Records: append([]Record(nil), r.records...)}
	r.mu.Unlock()

	r.cfg.Logger.Info("simulation finished",
		log.Int("frames", frames),
		log.Int("events", len(sum.Records)))
	return sum, err
}

func (r *Runner) runStepped(ctx context.Context, doc *Document, sched *scheduler.Manual) (int, error) {
	dt := r.cfg.Frame.Seconds()
	pending := r.script.Actions
	frames := 0

	for elapsed := 0.0; elapsed < r.script.Length; elapsed = float64(frames) * dt {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		var err error
		if pending, err = applyDue(doc, pending, elapsed); err != nil {
			return frames, err
		}
		if err := doc.Advance(dt); err != nil {
			return frames, err
		}
		sched.Step()
		frames++
	}
	return frames, nil
}

func (r *Runner) runRealtime(ctx context.Context, doc *Document) (int, error) {
	ticker := time.NewTicker(r.cfg.Frame)
	defer ticker.Stop()

	pending := r.script.Actions
	last := r.start
	frames := 0
	for {
		select {
		case <-ctx.Done():
			return frames, ctx.Err()
		case now := <-ticker.C:
			elapsed := now.Sub(r.start).Seconds()
			if elapsed >= r.script.Length {
				return frames, nil
			}
			var err error
			if pending, err = applyDue(doc, pending, elapsed); err != nil {
				return frames, err
			}
			if err := doc.Advance(now.Sub(last).Seconds()); err != nil {
				return frames, err
			}
			last = now
			frames++
		}
	}
}

// applyDue applies the actions due at or before elapsed and returns the rest.
func applyDue(doc *Document, actions []Action, elapsed float64) ([]Action, error) {
	for len(actions) > 0 && actions[0].At <= elapsed {
		if err := actions[0].Apply(doc); err != nil {
			return actions, fmt.Errorf("action %q at %.3fs: %w", actions[0].Op, actions[0].At, err)
		}
		actions = actions[1:]
	}
	return actions, nil
}

// watchAll watches every scripted timeline through the extension's controls.
func (r *Runner) watchAll(ext *host.Extension, doc *Document) error {
	opts := host.Options{
		OnTimelineStart:    r.record,
		OnTimelineProgress: r.record,
		OnTimelinePause:    r.record,
		OnTimelineResume:   r.record,
		OnTimelineComplete: r.record,
	}
	for _, tl := range r.script.Timelines {
		var subject timeline.Subject = doc
		if tl.Symbol != "" {
			sym, ok := doc.Symbol(tl.Symbol)
			if !ok {
				return fmt.Errorf("symbol %q: %w", tl.Symbol, host.ErrSymbolNotFound)
			}
			subject = sym
		}
		ctl, ok := ext.Controls(subject)
		if !ok {
			return fmt.Errorf("no controls for %q", timeline.SubjectKey(subject))
		}
		ctl.WatchTimelineByName(tl.Name, opts)
	}
	return nil
}

func (r *Runner) record(doc timeline.Subject, _ timeline.Element, ev timeline.Event) {
	subject := doc
	if ev.Symbol != nil {
		subject = ev.Symbol
	}
	rec := Record{
		At:       ev.Time.Sub(r.start).Seconds(),
		Key:      timeline.Key(subject, ev.TimelineName),
		Kind:     ev.Kind,
		Position: ev.Position,
	}

	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()

	r.cfg.Logger.Info("timeline event",
		log.String("key", rec.Key),
		log.String("kind", rec.Kind.String()),
		log.Float64("position", rec.Position),
		log.Float64("at", timeline.Round(rec.At)))
	if r.cfg.OnRecord != nil {
		r.cfg.OnRecord(rec)
	}
}
