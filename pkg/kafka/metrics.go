package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	producerMessages *prometheus.CounterVec
	producerBytes    *prometheus.CounterVec
	producerLatency  *prometheus.HistogramVec

	consumerMessages *prometheus.CounterVec
	consumerLatency  *prometheus.HistogramVec
	consumerDepth    *prometheus.GaugeVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		producerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astro", Subsystem: "kafka_producer", Name: "messages_total",
			Help: "Messages published, by result.",
		}, []string{"topic", "result"})
		producerBytes = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astro", Subsystem: "kafka_producer", Name: "bytes_total",
			Help: "Payload bytes published.",
		}, []string{"topic"})
		producerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "astro", Subsystem: "kafka_producer", Name: "publish_seconds",
			Help: "Publish latency.", Buckets: prometheus.DefBuckets,
		}, []string{"topic"})

		consumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "astro", Subsystem: "kafka_consumer", Name: "messages_total",
			Help: "Messages handled, by outcome (ok, dlq, dropped).",
		}, []string{"topic", "outcome"})
		consumerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "astro", Subsystem: "kafka_consumer", Name: "handle_seconds",
			Help: "Handling time per message including retries.", Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
		consumerDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "astro", Subsystem: "kafka_consumer", Name: "queue_depth",
			Help: "Messages waiting in a worker queue.",
		}, []string{"worker"})
	})
}

func observePublish(topic string, bytes, count int, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMessages.WithLabelValues(topic, result).Add(float64(count))
	producerBytes.WithLabelValues(topic).Add(float64(bytes))
	producerLatency.WithLabelValues(topic).Observe(took.Seconds())
}
