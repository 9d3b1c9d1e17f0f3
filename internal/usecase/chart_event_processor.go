package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AstroPull/internal/domain/models"
	drepo "AstroPull/internal/domain/repository"
)

// Event backends.
const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
	BackendNone       = "none"
)

var (
	errNoPublisher = errors.New("kafka publisher not configured")
	errNoStorage   = errors.New("clickhouse storage not configured")
)

// ChartEventProcessor routes chart events to the configured backend.
type ChartEventProcessor struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
}

func NewChartEventProcessor(
	pub drepo.Publisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	backend string,
) *ChartEventProcessor {
	return &ChartEventProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Process sends one event. Backend "none" drops it.
func (p *ChartEventProcessor) Process(ctx context.Context, e *models.ChartEvent) error {
	if e == nil {
		return fmt.Errorf("event is nil")
	}
	return p.ProcessBatch(ctx, []*models.ChartEvent{e})
}

// ProcessBatch sends events in one round trip. A single event goes through
// the single-message path of the backend.
func (p *ChartEventProcessor) ProcessBatch(ctx context.Context, events []*models.ChartEvent) error {
	if len(events) == 0 || p.backend == BackendNone || p.backend == "" {
		return nil
	}
	op := "process"
	if len(events) > 1 {
		op = "process_batch"
	}

	start := time.Now()
	if err := p.send(ctx, events); err != nil {
		p.metrics.RecordError(op)
		return fmt.Errorf("%s chart events: %w", op, err)
	}
	for _, e := range events {
		p.metrics.RecordEventSent(p.backend, e.Kind)
	}
	p.metrics.RecordLatency(op, time.Since(start).Seconds())
	return nil
}

func (p *ChartEventProcessor) send(ctx context.Context, events []*models.ChartEvent) error {
	switch p.backend {
	case BackendKafka:
		if p.pub == nil {
			return errNoPublisher
		}
		if len(events) == 1 {
			return p.pub.Publish(ctx, events[0])
		}
		return p.pub.PublishBatch(ctx, events)
	case BackendClickHouse:
		if p.store == nil {
			return errNoStorage
		}
		if len(events) == 1 {
			return p.store.Store(ctx, events[0])
		}
		return p.store.StoreBatch(ctx, events)
	}
	return fmt.Errorf("unknown backend: %s", p.backend)
}

// Close closes underlying resources if available.
func (p *ChartEventProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
