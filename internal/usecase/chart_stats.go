package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
	"AstroPull/pkg/util"
)

// ErrStatsUnavailable is returned when no analytics store is configured.
var ErrStatsUnavailable = errors.New("chart statistics unavailable")

const defaultStatsWindow = 7 * 24 * time.Hour

// AspectStats is the response of the aspect frequency query.
type AspectStats struct {
	From    time.Time                `json:"from"`
	To      time.Time                `json:"to"`
	Kind    string                   `json:"kind,omitempty"`
	Aspects []models.AspectFrequency `json:"aspects"`
}

// ElementStats is the response of the element averages query.
type ElementStats struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Kind string    `json:"kind,omitempty"`
	models.ElementAverages
}

// ChartStatsUseCase answers aggregate queries over stored chart events.
type ChartStatsUseCase struct {
	reader domrepo.ChartStatsReader
	now    func() time.Time
}

// NewChartStatsUseCase accepts a nil reader; queries then fail with ErrStatsUnavailable.
func NewChartStatsUseCase(reader domrepo.ChartStatsReader) *ChartStatsUseCase {
	return &ChartStatsUseCase{reader: reader, now: time.Now}
}

func (uc *ChartStatsUseCase) Aspects(ctx context.Context, req models.StatsRequest) (*AspectStats, error) {
	if uc.reader == nil {
		return nil, ErrStatsUnavailable
	}
	from, to := util.ResolveRange(req.From, req.To, uc.now().UTC(), defaultStatsWindow)
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := uc.reader.AspectFrequencies(ctx, from, to, req.Kind, limit)
	if err != nil {
		return nil, fmt.Errorf("aspect frequencies: %w", err)
	}
	if rows == nil {
		rows = []models.AspectFrequency{}
	}
	return &AspectStats{From: from, To: to, Kind: req.Kind, Aspects: rows}, nil
}

func (uc *ChartStatsUseCase) Elements(ctx context.Context, req models.StatsRequest) (*ElementStats, error) {
	if uc.reader == nil {
		return nil, ErrStatsUnavailable
	}
	from, to := util.ResolveRange(req.From, req.To, uc.now().UTC(), defaultStatsWindow)
	avg, err := uc.reader.ElementAverages(ctx, from, to, req.Kind)
	if err != nil {
		return nil, fmt.Errorf("element averages: %w", err)
	}
	return &ElementStats{From: from, To: to, Kind: req.Kind, ElementAverages: avg}, nil
}
