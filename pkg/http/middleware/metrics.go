package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "astro",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status class.",
	}, []string{"route", "method", "class"})

	latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "astro",
		Subsystem: "http",
		Name:      "request_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"route", "method"})

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "astro",
		Subsystem: "http",
		Name:      "in_flight",
		Help:      "Requests being served.",
	})

	responseBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "astro",
		Subsystem: "http",
		Name:      "response_bytes",
		Help:      "Response body size.",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"route"})
)

// Metrics labels by route template so path parameters stay out of the labels.
// Errors are resolved here so the recorded status is the one sent.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			inFlight.Inc()
			defer inFlight.Dec()
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			requests.WithLabelValues(route, method, statusClass(c.Response().Status)).Inc()
			latency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			responseBytes.WithLabelValues(route).Observe(float64(c.Response().Size))
			return nil
		}
	}
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}
