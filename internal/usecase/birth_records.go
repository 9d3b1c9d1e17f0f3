package usecase

import (
	"context"
	"fmt"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
	"AstroPull/internal/domain/service"
	"AstroPull/pkg/util"
)

// BirthRecordUseCase manages stored birth records.
type BirthRecordUseCase struct {
	repo   domrepo.BirthRecordRepository
	charts *ChartUseCase
}

func NewBirthRecordUseCase(repo domrepo.BirthRecordRepository, charts *ChartUseCase) *BirthRecordUseCase {
	return &BirthRecordUseCase{repo: repo, charts: charts}
}

func (uc *BirthRecordUseCase) Create(ctx context.Context, req models.BirthRecordRequest) (*models.BirthRecord, error) {
	r, err := recordFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create birth record: %w", err)
	}
	return r, nil
}

func (uc *BirthRecordUseCase) Get(ctx context.Context, id int64) (*models.BirthRecord, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *BirthRecordUseCase) List(ctx context.Context) ([]*models.BirthRecord, error) {
	return uc.repo.List(ctx)
}

// Update replaces every field of record id.
func (uc *BirthRecordUseCase) Update(ctx context.Context, id int64, req models.BirthRecordRequest) (*models.BirthRecord, error) {
	r, err := recordFromRequest(req)
	if err != nil {
		return nil, err
	}
	r.ID = id
	if err := uc.repo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (uc *BirthRecordUseCase) Delete(ctx context.Context, id int64) error {
	return uc.repo.Delete(ctx, id)
}

// Chart casts the chart of record id.
func (uc *BirthRecordUseCase) Chart(ctx context.Context, id int64) (*models.ChartResult, error) {
	r, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.charts.ChartForRecord(ctx, r)
}

func recordFromRequest(req models.BirthRecordRequest) (*models.BirthRecord, error) {
	y, mo, d, err := util.ParseBirthdate(req.Birthdate)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, service.ErrInvalidBirthData)
	}
	h, mi, err := util.ParseBirthtime(req.Birthtime)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, service.ErrInvalidBirthData)
	}
	return &models.BirthRecord{
		Name:   req.Name,
		Year:   y,
		Month:  mo,
		Day:    d,
		Hour:   h,
		Minute: mi,
		Lat:    req.Lat,
		Lng:    req.Lng,
		City:   req.City,
		TZStr:  req.TZStr,
	}, nil
}
