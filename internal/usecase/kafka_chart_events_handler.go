package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
	pkgkafka "AstroPull/pkg/kafka"
)

// KafkaChartEventsHandler consumes chart events and writes them to storage.
type KafkaChartEventsHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaChartEventsHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaChartEventsHandler {
	return &KafkaChartEventsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaChartEventsHandler) Topic() string { return h.topic }

func (h *KafkaChartEventsHandler) Handle(ctx context.Context, b []byte) error {
	var e models.ChartEvent
	if err := json.Unmarshal(b, &e); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if e.EventID == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("chart event without id")
	}
	if !e.Timestamp.IsZero() {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(e.Timestamp).Seconds())
	}

	start := time.Now()
	err := h.storage.Store(ctx, &e)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordEventSent(BackendClickHouse, e.Kind)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaChartEventsHandler)(nil)
