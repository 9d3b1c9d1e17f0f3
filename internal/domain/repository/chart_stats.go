package repository

import (
	"context"
	"time"

	"AstroPull/internal/domain/models"
)

// ChartStatsReader provides read-only aggregates over stored chart events.
type ChartStatsReader interface {
	AspectFrequencies(ctx context.Context, from, to time.Time, kind string, limit int) ([]models.AspectFrequency, error)
	ElementAverages(ctx context.Context, from, to time.Time, kind string) (models.ElementAverages, error)
}
