// Package metrics exposes observer measurements as prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/timelinewatch/pkg/observer"
	"github.com/bft-labs/timelinewatch/pkg/timeline"
)

const namespace = "timelinewatch"

// Collector implements observer.Recorder with prometheus metrics.
type Collector struct {
	events          *prometheus.CounterVec
	callbackFailure *prometheus.CounterVec
	entryFailures   prometheus.Counter
	watches         prometheus.Gauge
	ticks           prometheus.Counter
	tickDuration    prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Lifecycle events fired, by kind.",
		}, []string{"kind"}),
		callbackFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_failures_total",
			Help:      "Lifecycle callbacks that panicked, by kind.",
		}, []string{"kind"}),
		entryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_failures_total",
			Help:      "Timeline samples that failed.",
		}),
		watches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watched_timelines",
			Help:      "Timelines currently watched.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Polling ticks evaluated.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent sampling all entries in one tick.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}),
	}

	for _, col := range []prometheus.Collector{
		c.events, c.callbackFailure, c.entryFailures, c.watches, c.ticks, c.tickDuration,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	// Expose every kind from the start.
	for _, k := range timeline.Kinds() {
		c.events.WithLabelValues(k.String())
	}
	return c, nil
}

func (c *Collector) EventFired(kind timeline.Kind) {
	c.events.WithLabelValues(kind.String()).Inc()
}

func (c *Collector) EntryFailed() {
	c.entryFailures.Inc()
}

func (c *Collector) CallbackFailed(kind timeline.Kind) {
	c.callbackFailure.WithLabelValues(kind.String()).Inc()
}

func (c *Collector) TickObserved(_ int, elapsed time.Duration) {
	c.ticks.Inc()
	c.tickDuration.Observe(elapsed.Seconds())
}

func (c *Collector) WatchesChanged(n int) {
	c.watches.Set(float64(n))
}

var _ observer.Recorder = (*Collector)(nil)
