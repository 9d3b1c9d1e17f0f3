package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
)

type fakeMetrics struct {
	mu      sync.Mutex
	charts  map[string]int
	aspects map[string]int
	errors  map[string]int
	sent    map[string]int
	dropped map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		charts:  map[string]int{},
		aspects: map[string]int{},
		errors:  map[string]int{},
		sent:    map[string]int{},
		dropped: map[string]int{},
	}
}

func (m *fakeMetrics) RecordChartComputed(kind string)      { m.inc(m.charts, kind) }
func (m *fakeMetrics) RecordAspect(aspect string)           { m.inc(m.aspects, aspect) }
func (m *fakeMetrics) RecordEventSent(backend, kind string) { m.inc(m.sent, backend+"/"+kind) }
func (m *fakeMetrics) RecordEventDropped(reason string)     { m.inc(m.dropped, reason) }
func (m *fakeMetrics) RecordError(kind string)              { m.inc(m.errors, kind) }
func (m *fakeMetrics) RecordLatency(string, float64)        {}

func (m *fakeMetrics) inc(dst map[string]int, key string) {
	m.mu.Lock()
	dst[key]++
	m.mu.Unlock()
}

func (m *fakeMetrics) count(dst map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return dst[key]
}

func rawBody(absPos float64, sign string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"name":"x","abs_pos":%v,"sign":%q}`, absPos, sign))
}

type fakeProvider struct {
	raw      models.RawChart
	err      error
	subjects []models.BirthData
}

func (p *fakeProvider) Subject(_ context.Context, d models.BirthData) (models.RawChart, error) {
	p.subjects = append(p.subjects, d)
	return p.raw, p.err
}
func (p *fakeProvider) ChartSVG(context.Context, models.BirthData) ([]byte, error) {
	return []byte("<svg/>"), p.err
}
func (p *fakeProvider) Report(context.Context, models.BirthData) (string, error) {
	return "report", p.err
}
func (p *fakeProvider) Synastry(context.Context, models.BirthData, models.BirthData) (json.RawMessage, error) {
	return json.RawMessage(`[]`), p.err
}
func (p *fakeProvider) RelationshipScore(context.Context, models.BirthData, models.BirthData) (json.RawMessage, error) {
	return json.RawMessage(`12`), p.err
}
func (p *fakeProvider) Composite(context.Context, models.BirthData, models.BirthData) (json.RawMessage, error) {
	return json.RawMessage(`{}`), p.err
}
func (p *fakeProvider) Health(context.Context) error { return p.err }

type fakeSink struct {
	events []*models.ChartEvent
	err    error
}

func (s *fakeSink) Process(_ context.Context, e *models.ChartEvent) error {
	s.events = append(s.events, e)
	return s.err
}

type fakeRecords struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.BirthRecord
	err    error
}

func newFakeRecords() *fakeRecords { return &fakeRecords{rows: map[int64]*models.BirthRecord{}} }

func (f *fakeRecords) Create(_ context.Context, r *models.BirthRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	r.ID = f.nextID
	cp := *r
	f.rows[r.ID] = &cp
	return nil
}

func (f *fakeRecords) Get(_ context.Context, id int64) (*models.BirthRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, domrepo.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRecords) List(context.Context) ([]*models.BirthRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.BirthRecord, 0, len(f.rows))
	for id := int64(1); id <= f.nextID; id++ {
		if r, ok := f.rows[id]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRecords) Update(_ context.Context, r *models.BirthRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[r.ID]; !ok {
		return domrepo.ErrRecordNotFound
	}
	cp := *r
	f.rows[r.ID] = &cp
	return nil
}

func (f *fakeRecords) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return domrepo.ErrRecordNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeStorage struct {
	stored []*models.ChartEvent
	err    error
}

func (s *fakeStorage) Init(context.Context) error { return nil }
func (s *fakeStorage) Store(_ context.Context, e *models.ChartEvent) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, e)
	return nil
}
func (s *fakeStorage) StoreBatch(_ context.Context, events []*models.ChartEvent) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, events...)
	return nil
}
func (s *fakeStorage) Health(context.Context) error { return nil }
func (s *fakeStorage) Close() error                 { return nil }

type fakePublisher struct {
	published []*models.ChartEvent
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, e *models.ChartEvent) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, e)
	return nil
}
func (p *fakePublisher) PublishBatch(_ context.Context, events []*models.ChartEvent) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, events...)
	return nil
}
func (p *fakePublisher) Close() error { return nil }

type fakeStats struct {
	from, to time.Time
	kind     string
	limit    int
	rows     []models.AspectFrequency
	avg      models.ElementAverages
	err      error
}

func (s *fakeStats) AspectFrequencies(_ context.Context, from, to time.Time, kind string, limit int) ([]models.AspectFrequency, error) {
	s.from, s.to, s.kind, s.limit = from, to, kind, limit
	return s.rows, s.err
}

func (s *fakeStats) ElementAverages(_ context.Context, from, to time.Time, kind string) (models.ElementAverages, error) {
	s.from, s.to, s.kind = from, to, kind
	return s.avg, s.err
}
