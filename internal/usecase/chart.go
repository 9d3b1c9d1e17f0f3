package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
	"AstroPull/internal/domain/service"
	"AstroPull/internal/services/astro"
	"AstroPull/pkg/logger"

	"github.com/google/uuid"
)

// EventSink receives a chart event after every assembled chart.
type EventSink interface {
	Process(ctx context.Context, e *models.ChartEvent) error
}

// TodayLocation is the place the current sky is cast for.
type TodayLocation struct {
	Name  string
	City  string
	Lat   float64
	Lng   float64
	TZStr string
}

// ChartUseCase casts charts through the ephemeris provider and assembles them.
type ChartUseCase struct {
	provider service.EphemerisProvider
	sink     EventSink
	metrics  domrepo.Metrics
	l        *logger.Logger
	today    TodayLocation
	now      func() time.Time
	emitWait time.Duration
}

func NewChartUseCase(
	provider service.EphemerisProvider,
	sink EventSink,
	metrics domrepo.Metrics,
	l *logger.Logger,
	today TodayLocation,
) *ChartUseCase {
	return &ChartUseCase{
		provider: provider,
		sink:     sink,
		metrics:  metrics,
		l:        l,
		today:    today,
		now:      time.Now,
		emitWait: 2 * time.Second,
	}
}

// NatalChart casts and assembles the chart for d.
func (uc *ChartUseCase) NatalChart(ctx context.Context, d models.BirthData) (*models.ChartResult, error) {
	return uc.cast(ctx, d, models.ChartKindNatal)
}

// ChartForRecord casts the chart of a stored birth record.
func (uc *ChartUseCase) ChartForRecord(ctx context.Context, r *models.BirthRecord) (*models.ChartResult, error) {
	return uc.cast(ctx, r.BirthData(), models.ChartKindStored)
}

// Today casts the current sky at the configured location.
func (uc *ChartUseCase) Today(ctx context.Context) (*models.ChartResult, error) {
	d, err := uc.TodaySubject()
	if err != nil {
		return nil, err
	}
	return uc.cast(ctx, d, models.ChartKindToday)
}

// TodaySubject is the birth data of the present moment at the configured location.
func (uc *ChartUseCase) TodaySubject() (models.BirthData, error) {
	loc, err := time.LoadLocation(uc.today.TZStr)
	if err != nil {
		return models.BirthData{}, fmt.Errorf("today location %q: %w", uc.today.TZStr, err)
	}
	now := uc.now().In(loc)
	return models.BirthData{
		Name:         uc.today.Name,
		Year:         now.Year(),
		Month:        int(now.Month()),
		Day:          now.Day(),
		Hour:         now.Hour(),
		Minute:       now.Minute(),
		Lat:          uc.today.Lat,
		Lng:          uc.today.Lng,
		City:         uc.today.City,
		TZStr:        uc.today.TZStr,
		HousesSystem: string(domrepo.DefaultHouseSystem()),
		ZodiacType:   string(domrepo.ZodiacTropic),
	}, nil
}

func (uc *ChartUseCase) ChartSVG(ctx context.Context, d models.BirthData) ([]byte, error) {
	defer uc.observe("chart_svg", time.Now())
	svg, err := uc.provider.ChartSVG(ctx, d)
	if err != nil {
		uc.metrics.RecordError("ephemeris_svg")
		return nil, fmt.Errorf("chart svg: %w", err)
	}
	return svg, nil
}

func (uc *ChartUseCase) Report(ctx context.Context, d models.BirthData) (string, error) {
	defer uc.observe("report", time.Now())
	rep, err := uc.provider.Report(ctx, d)
	if err != nil {
		uc.metrics.RecordError("ephemeris_report")
		return "", fmt.Errorf("report: %w", err)
	}
	return rep, nil
}

func (uc *ChartUseCase) Synastry(ctx context.Context, p models.PairInput) (json.RawMessage, error) {
	defer uc.observe("synastry", time.Now())
	out, err := uc.provider.Synastry(ctx, p.Person1, p.Person2)
	if err != nil {
		uc.metrics.RecordError("ephemeris_synastry")
		return nil, fmt.Errorf("synastry: %w", err)
	}
	return out, nil
}

func (uc *ChartUseCase) RelationshipScore(ctx context.Context, p models.PairInput) (json.RawMessage, error) {
	defer uc.observe("relationship_score", time.Now())
	out, err := uc.provider.RelationshipScore(ctx, p.Person1, p.Person2)
	if err != nil {
		uc.metrics.RecordError("ephemeris_score")
		return nil, fmt.Errorf("relationship score: %w", err)
	}
	return out, nil
}

func (uc *ChartUseCase) Composite(ctx context.Context, p models.PairInput) (json.RawMessage, error) {
	defer uc.observe("composite", time.Now())
	out, err := uc.provider.Composite(ctx, p.Person1, p.Person2)
	if err != nil {
		uc.metrics.RecordError("ephemeris_composite")
		return nil, fmt.Errorf("composite: %w", err)
	}
	return out, nil
}

func (uc *ChartUseCase) cast(ctx context.Context, d models.BirthData, kind string) (*models.ChartResult, error) {
	defer uc.observe("chart_"+kind, time.Now())

	raw, err := uc.provider.Subject(ctx, d)
	if err != nil {
		uc.metrics.RecordError("ephemeris_subject")
		return nil, fmt.Errorf("subject: %w", err)
	}

	// Malformed body payloads are an upstream fault, not a client one.
	res, err := astro.Assemble(raw)
	if err != nil {
		uc.metrics.RecordError("assemble")
		return nil, fmt.Errorf("assemble chart: %w: %w", err, service.ErrProviderUnavailable)
	}

	uc.metrics.RecordChartComputed(kind)
	for _, a := range res.Aspects {
		uc.metrics.RecordAspect(a.Aspect)
	}
	uc.emit(ctx, kind, d, res)
	return res, nil
}

// emit never fails the request; the pipeline buffers what the backend refuses.
func (uc *ChartUseCase) emit(ctx context.Context, kind string, d models.BirthData, res *models.ChartResult) {
	if uc.sink == nil {
		return
	}
	ev := &models.ChartEvent{
		EventID:   uuid.NewString(),
		Kind:      kind,
		Subject:   d.Name,
		City:      d.City,
		Timestamp: uc.now().UTC(),
		BodyCount: len(res.Bodies),
		Elements:  res.Elements,
		Aspects:   res.Aspects,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.emitWait)
	defer cancel()
	if err := uc.sink.Process(ctx, ev); err != nil {
		uc.l.Warn("chart event not delivered",
			logger.String("event_id", ev.EventID),
			logger.String("kind", kind),
			logger.Error(err))
	}
}

func (uc *ChartUseCase) observe(op string, start time.Time) {
	uc.metrics.RecordLatency(op, time.Since(start).Seconds())
}
