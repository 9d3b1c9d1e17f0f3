package usecase

import (
	"context"
	"testing"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
	"AstroPull/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordRequest() models.BirthRecordRequest {
	return models.BirthRecordRequest{
		Name:      "Ada",
		Birthdate: "1990-07-04",
		Birthtime: "14:30",
		Lat:       35.6892,
		Lng:       51.389,
		City:      "Tehran",
		TZStr:     "Asia/Tehran",
	}
}

func TestBirthRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRecords()
	uc := NewBirthRecordUseCase(repo, newChartUC(&fakeProvider{raw: sampleRaw()}, nil, newFakeMetrics()))

	created, err := uc.Create(ctx, recordRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, 1990, created.Year)
	assert.Equal(t, 30, created.Minute)
	assert.Equal(t, "1990-07-04", created.Birthdate())

	req := recordRequest()
	req.Birthtime = "06:05"
	updated, err := uc.Update(ctx, created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "06:05", updated.Birthtime())

	got, err := uc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Hour)

	all, err := uc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	chart, err := uc.Chart(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, chart.Bodies, 2)

	require.NoError(t, uc.Delete(ctx, created.ID))
	_, err = uc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domrepo.ErrRecordNotFound)
}

func TestBirthRecordMissing(t *testing.T) {
	ctx := context.Background()
	uc := NewBirthRecordUseCase(newFakeRecords(), newChartUC(&fakeProvider{}, nil, newFakeMetrics()))

	_, err := uc.Update(ctx, 42, recordRequest())
	assert.ErrorIs(t, err, domrepo.ErrRecordNotFound)
	assert.ErrorIs(t, uc.Delete(ctx, 42), domrepo.ErrRecordNotFound)
	_, err = uc.Chart(ctx, 42)
	assert.ErrorIs(t, err, domrepo.ErrRecordNotFound)
}

func TestBirthRecordRejectsBadDate(t *testing.T) {
	uc := NewBirthRecordUseCase(newFakeRecords(), nil)

	req := recordRequest()
	req.Birthdate = "1990-02-30"
	_, err := uc.Create(context.Background(), req)
	assert.ErrorIs(t, err, service.ErrInvalidBirthData)

	req = recordRequest()
	req.Birthtime = "25:00"
	_, err = uc.Create(context.Background(), req)
	assert.ErrorIs(t, err, service.ErrInvalidBirthData)
}
