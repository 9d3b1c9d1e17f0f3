package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
	"AstroPull/internal/domain/service"
	"AstroPull/pkg/cache"
	"AstroPull/pkg/logger"
	"AstroPull/pkg/queue"

	"github.com/google/uuid"
)

// JobTypeBirthExtraction is the queue message type of async extractions.
const JobTypeBirthExtraction = "birth_extraction"

var (
	// ErrJobNotFound is returned for unknown or expired extraction job ids.
	ErrJobNotFound = errors.New("extraction job not found")
	// ErrJobsUnavailable is returned by Submit when no job queue is configured.
	ErrJobsUnavailable = errors.New("extraction jobs unavailable")
)

// ExtractionResult is the outcome of a synchronous extraction.
type ExtractionResult struct {
	Data   *models.BirthData   `json:"data"`
	Record *models.BirthRecord `json:"-"`
}

// ExtractionUseCase turns free text into birth data, inline or through the job queue.
type ExtractionUseCase struct {
	extractor service.FieldExtractor
	records   domrepo.BirthRecordRepository
	jobs      cache.Service
	queue     queue.QueueService
	jobTTL    time.Duration
	l         *logger.Logger
	now       func() time.Time
}

func NewExtractionUseCase(
	extractor service.FieldExtractor,
	records domrepo.BirthRecordRepository,
	jobs cache.Service,
	q queue.QueueService,
	jobTTL time.Duration,
	l *logger.Logger,
) *ExtractionUseCase {
	if jobTTL <= 0 {
		jobTTL = 24 * time.Hour
	}
	return &ExtractionUseCase{
		extractor: extractor,
		records:   records,
		jobs:      jobs,
		queue:     q,
		jobTTL:    jobTTL,
		l:         l,
		now:       time.Now,
	}
}

// Extract runs the extractor inline and optionally stores the record.
func (uc *ExtractionUseCase) Extract(ctx context.Context, text string, save bool) (*ExtractionResult, error) {
	d, err := uc.extractor.Extract(ctx, strings.TrimSpace(text))
	if err != nil {
		return nil, err
	}
	res := &ExtractionResult{Data: d}
	if save {
		r := models.NewBirthRecord(*d)
		if err := uc.records.Create(ctx, r); err != nil {
			return nil, fmt.Errorf("save extracted record: %w", err)
		}
		res.Record = r
	}
	return res, nil
}

// Submit records a queued job and hands the text to the worker queue.
func (uc *ExtractionUseCase) Submit(ctx context.Context, text string, save bool) (*models.ExtractionJob, error) {
	if uc.queue == nil {
		return nil, ErrJobsUnavailable
	}
	now := uc.now().UTC()
	job := &models.ExtractionJob{
		ID:        uuid.NewString(),
		Status:    models.JobStatusQueued,
		Save:      save,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.putJob(ctx, job); err != nil {
		return nil, err
	}

	payload := models.ExtractionJobPayload{JobID: job.ID, Text: text, Save: save}
	if err := uc.queue.PublishMessage(ctx, JobTypeBirthExtraction, payload); err != nil {
		job.Status = models.JobStatusFailed
		job.Error = "could not enqueue"
		_ = uc.putJob(ctx, job)
		return nil, fmt.Errorf("enqueue extraction: %w", err)
	}
	return job, nil
}

// Status returns the current state of job id.
func (uc *ExtractionUseCase) Status(ctx context.Context, id string) (*models.ExtractionJob, error) {
	var job models.ExtractionJob
	if err := uc.jobs.Get(ctx, jobKey(id), &job); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return &job, nil
}

// RunJob executes a queued extraction. Extraction failures are terminal and
// return nil; anything else is returned so the queue retries it.
func (uc *ExtractionUseCase) RunJob(ctx context.Context, p models.ExtractionJobPayload) error {
	job, err := uc.Status(ctx, p.JobID)
	if errors.Is(err, ErrJobNotFound) {
		// Expired while queued; recreate so the result is still visible.
		job = &models.ExtractionJob{ID: p.JobID, Save: p.Save, CreatedAt: uc.now().UTC()}
	} else if err != nil {
		return err
	}

	res, err := uc.Extract(ctx, p.Text, p.Save)
	job.UpdatedAt = uc.now().UTC()
	switch {
	case errors.Is(err, service.ErrExtractionFailed):
		job.Status = models.JobStatusFailed
		job.Error = err.Error()
		uc.l.Info("extraction job rejected", logger.String("job_id", job.ID), logger.Error(err))
		return uc.putJob(ctx, job)
	case err != nil:
		job.Status = models.JobStatusRetrying
		job.Error = err.Error()
		if perr := uc.putJob(ctx, job); perr != nil {
			uc.l.Error("store job status", logger.String("job_id", job.ID), logger.Error(perr))
		}
		return err
	}

	job.Status = models.JobStatusSucceeded
	job.Error = ""
	job.Result = res.Data
	if res.Record != nil {
		job.RecordID = res.Record.ID
	}
	return uc.putJob(ctx, job)
}

// FailJob marks a job failed once the queue gives up on it.
func (uc *ExtractionUseCase) FailJob(ctx context.Context, id string, cause error) error {
	job, err := uc.Status(ctx, id)
	if errors.Is(err, ErrJobNotFound) {
		job = &models.ExtractionJob{ID: id, CreatedAt: uc.now().UTC()}
	} else if err != nil {
		return err
	}
	job.Status = models.JobStatusFailed
	job.Error = cause.Error()
	job.UpdatedAt = uc.now().UTC()
	return uc.putJob(ctx, job)
}

func (uc *ExtractionUseCase) putJob(ctx context.Context, job *models.ExtractionJob) error {
	if err := uc.jobs.Set(ctx, jobKey(job.ID), job, uc.jobTTL); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

func jobKey(id string) string { return cache.Key("extract:job", id) }

// BirthExtractionJob runs queued extractions.
type BirthExtractionJob struct {
	uc *ExtractionUseCase
}

func NewBirthExtractionJob(uc *ExtractionUseCase) *BirthExtractionJob {
	return &BirthExtractionJob{uc: uc}
}

func (j *BirthExtractionJob) Name() string { return "birth-extraction" }

func (j *BirthExtractionJob) Type() string { return JobTypeBirthExtraction }

func (j *BirthExtractionJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[models.ExtractionJobPayload](payload)
	if err != nil {
		return err
	}
	if p.JobID == "" {
		return fmt.Errorf("extraction payload without job id")
	}
	return j.uc.RunJob(ctx, *p)
}

// Exhausted records the final failure after the queue dead-letters the message.
func (j *BirthExtractionJob) Exhausted(ctx context.Context, payload interface{}, err error) {
	p, perr := queue.ParsePayload[models.ExtractionJobPayload](payload)
	if perr != nil || p.JobID == "" {
		return
	}
	if ferr := j.uc.FailJob(ctx, p.JobID, err); ferr != nil {
		j.uc.l.Error("mark job failed", logger.String("job_id", p.JobID), logger.Error(ferr))
	}
}
