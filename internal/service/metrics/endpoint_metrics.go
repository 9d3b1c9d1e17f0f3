// Package metrics holds per-endpoint instrumentation for the API handlers.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "astro",
		Subsystem: "endpoint",
		Name:      "latency_seconds",
		Help:      "Latency of chart and extraction endpoints.",
		Buckets:   []float64{.025, .05, .1, .25, .5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	EndpointErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "astro",
		Subsystem: "endpoint",
		Name:      "errors_total",
		Help:      "Errors by endpoint and status class.",
	}, []string{"endpoint", "class"})
)

// Register is safe to call from every router build; tests build many.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors)
	})
}
