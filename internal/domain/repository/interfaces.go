package repository

import (
	"context"
	"errors"

	"AstroPull/internal/domain/models"
)

// ErrRecordNotFound is returned when a birth record id does not exist.
var ErrRecordNotFound = errors.New("record not found")

// BirthRecordRepository persists birth records.
type BirthRecordRepository interface {
	Create(ctx context.Context, r *models.BirthRecord) error
	Get(ctx context.Context, id int64) (*models.BirthRecord, error)
	List(ctx context.Context) ([]*models.BirthRecord, error)
	Update(ctx context.Context, r *models.BirthRecord) error
	Delete(ctx context.Context, id int64) error
}

// Publisher ships chart events to the stream backend.
type Publisher interface {
	Publish(ctx context.Context, e *models.ChartEvent) error
	PublishBatch(ctx context.Context, events []*models.ChartEvent) error
	Close() error
}

// Storage writes chart events to the analytics store.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, e *models.ChartEvent) error
	StoreBatch(ctx context.Context, events []*models.ChartEvent) error
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordChartComputed(kind string)
	RecordAspect(aspect string)
	RecordEventSent(backend, kind string)
	RecordEventDropped(reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
