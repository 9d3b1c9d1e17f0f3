package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"AstroPull/internal/domain/models"
	"AstroPull/internal/domain/service"
	"AstroPull/pkg/cache"
	"AstroPull/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	data  *models.BirthData
	err   error
	texts []string
}

func (f *fakeExtractor) Extract(_ context.Context, text string) (*models.BirthData, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	d := *f.data
	return &d, nil
}

type fakeQueue struct {
	types    []string
	payloads []interface{}
	err      error
}

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payload)
	return nil
}

func newExtractionUC(ex *fakeExtractor, repo *fakeRecords, q *fakeQueue) (*ExtractionUseCase, *cache.MemoryCache) {
	mc := cache.NewMemoryCache()
	return NewExtractionUseCase(ex, repo, mc, q, time.Hour, logger.NewNop()), mc
}

func TestExtractInline(t *testing.T) {
	d := sampleBirth()
	ex := &fakeExtractor{data: &d}
	repo := newFakeRecords()
	uc, mc := newExtractionUC(ex, repo, &fakeQueue{})
	defer mc.Close()

	res, err := uc.Extract(context.Background(), "  Ada born in Tehran  ", false)
	require.NoError(t, err)
	assert.Equal(t, "Ada", res.Data.Name)
	assert.Nil(t, res.Record)
	assert.Equal(t, []string{"Ada born in Tehran"}, ex.texts)

	res, err = uc.Extract(context.Background(), "Ada", true)
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.Equal(t, int64(1), res.Record.ID)
}

func TestExtractInlineFailure(t *testing.T) {
	uc, mc := newExtractionUC(&fakeExtractor{err: service.ErrExtractionFailed}, newFakeRecords(), &fakeQueue{})
	defer mc.Close()

	_, err := uc.Extract(context.Background(), "gibberish", true)
	assert.ErrorIs(t, err, service.ErrExtractionFailed)
}

func TestSubmitAndRunJob(t *testing.T) {
	ctx := context.Background()
	d := sampleBirth()
	repo := newFakeRecords()
	q := &fakeQueue{}
	uc, mc := newExtractionUC(&fakeExtractor{data: &d}, repo, q)
	defer mc.Close()

	job, err := uc.Submit(ctx, "Ada born in Tehran", true)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, job.Status)
	require.Equal(t, []string{JobTypeBirthExtraction}, q.types)

	st, err := uc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, st.Status)

	// Run through the queue job the way a worker would.
	require.NoError(t, NewBirthExtractionJob(uc).Handle(ctx, q.payloads[0]))

	st, err = uc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusSucceeded, st.Status)
	require.NotNil(t, st.Result)
	assert.Equal(t, "Ada", st.Result.Name)
	assert.Equal(t, int64(1), st.RecordID)
}

func TestRunJobExtractionFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	q := &fakeQueue{}
	uc, mc := newExtractionUC(&fakeExtractor{err: fmt.Errorf("no city: %w", service.ErrExtractionFailed)}, newFakeRecords(), q)
	defer mc.Close()

	job, err := uc.Submit(ctx, "text", false)
	require.NoError(t, err)

	p := models.ExtractionJobPayload{JobID: job.ID, Text: "text"}
	assert.NoError(t, uc.RunJob(ctx, p))

	st, err := uc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, st.Status)
	assert.Contains(t, st.Error, "no city")
}

func TestRunJobTransientFailureRetries(t *testing.T) {
	ctx := context.Background()
	uc, mc := newExtractionUC(&fakeExtractor{err: errors.New("llm timeout")}, newFakeRecords(), &fakeQueue{})
	defer mc.Close()

	job, err := uc.Submit(ctx, "text", false)
	require.NoError(t, err)

	err = uc.RunJob(ctx, models.ExtractionJobPayload{JobID: job.ID, Text: "text"})
	assert.Error(t, err)

	st, err := uc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRetrying, st.Status)
}

func TestSubmitEnqueueFailure(t *testing.T) {
	uc, mc := newExtractionUC(&fakeExtractor{}, newFakeRecords(), &fakeQueue{err: errors.New("redis down")})
	defer mc.Close()

	_, err := uc.Submit(context.Background(), "text", false)
	assert.Error(t, err)
}

func TestStatusUnknownJob(t *testing.T) {
	uc, mc := newExtractionUC(&fakeExtractor{}, newFakeRecords(), &fakeQueue{})
	defer mc.Close()

	_, err := uc.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestBirthExtractionJobRejectsPayload(t *testing.T) {
	uc, mc := newExtractionUC(&fakeExtractor{}, newFakeRecords(), &fakeQueue{})
	defer mc.Close()

	j := NewBirthExtractionJob(uc)
	assert.Equal(t, JobTypeBirthExtraction, j.Type())
	assert.Error(t, j.Handle(context.Background(), 42))
	assert.Error(t, j.Handle(context.Background(), map[string]interface{}{"text": "x"}))
}

func TestSubmitWithoutQueue(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	uc := NewExtractionUseCase(&fakeExtractor{}, newFakeRecords(), mc, nil, time.Hour, logger.NewNop())

	_, err := uc.Submit(context.Background(), "text", false)
	assert.ErrorIs(t, err, ErrJobsUnavailable)
}

func TestBirthExtractionJobExhaustedMarksFailed(t *testing.T) {
	ctx := context.Background()
	uc, mc := newExtractionUC(&fakeExtractor{err: errors.New("llm timeout")}, newFakeRecords(), &fakeQueue{})
	defer mc.Close()

	job, err := uc.Submit(ctx, "text", false)
	require.NoError(t, err)
	require.Error(t, uc.RunJob(ctx, models.ExtractionJobPayload{JobID: job.ID, Text: "text"}))

	raw := []byte(fmt.Sprintf(`{"job_id":%q,"text":"text"}`, job.ID))
	NewBirthExtractionJob(uc).Exhausted(ctx, raw, errors.New("llm timeout"))

	st, err := uc.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, st.Status)
	assert.Equal(t, "llm timeout", st.Error)
}
