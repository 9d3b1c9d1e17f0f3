// Package metrics records chart and pipeline counters on Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "astro"

// Recorder implements the domain Metrics port.
type Recorder struct {
	charts  *prometheus.CounterVec
	aspects *prometheus.CounterVec
	events  *prometheus.CounterVec
	dropped *prometheus.CounterVec
	errors  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// New registers on the default registry. Call it once per process.
func New() *Recorder { return NewWithRegisterer(prometheus.DefaultRegisterer) }

func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	counter := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		}, labels)
	}
	return &Recorder{
		charts:  counter("chart", "computed_total", "Charts assembled, by kind.", "kind"),
		aspects: counter("chart", "aspects_total", "Aspects matched across assembled charts.", "aspect"),
		events:  counter("events", "sent_total", "Chart events handed to a backend.", "backend", "kind"),
		dropped: counter("events", "dropped_total", "Chart events never delivered, by reason.", "reason"),
		errors:  counter("", "errors_total", "Errors by source.", "type"),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_seconds",
			Help:      "Operation latency.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordChartComputed(kind string) { r.charts.WithLabelValues(kind).Inc() }

func (r *Recorder) RecordAspect(aspect string) { r.aspects.WithLabelValues(aspect).Inc() }

func (r *Recorder) RecordEventSent(backend, kind string) {
	r.events.WithLabelValues(backend, kind).Inc()
}

// RecordEventDropped counts an event given up on: throttled, buffer full or out of retries.
func (r *Recorder) RecordEventDropped(reason string) { r.dropped.WithLabelValues(reason).Inc() }

func (r *Recorder) RecordError(kind string) { r.errors.WithLabelValues(kind).Inc() }

// RecordLatency observes seconds for op.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
