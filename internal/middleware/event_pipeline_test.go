package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"AstroPull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopMetrics struct {
	mu      sync.Mutex
	errors  map[string]int
	dropped map[string]int
}

func newNopMetrics() *nopMetrics {
	return &nopMetrics{errors: map[string]int{}, dropped: map[string]int{}}
}

func (m *nopMetrics) RecordChartComputed(string)     {}
func (m *nopMetrics) RecordAspect(string)            {}
func (m *nopMetrics) RecordEventSent(string, string) {}
func (m *nopMetrics) RecordLatency(string, float64)  {}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}
func (m *nopMetrics) RecordEventDropped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[reason]++
}
func (m *nopMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}
func (m *nopMetrics) drops(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped[reason]
}

type flakyProc struct {
	mu       sync.Mutex
	failures int
	got      []*models.ChartEvent
	batches  []int
}

func (f *flakyProc) Process(ctx context.Context, e *models.ChartEvent) error {
	return f.deliver([]*models.ChartEvent{e}, false)
}

func (f *flakyProc) ProcessBatch(_ context.Context, events []*models.ChartEvent) error {
	return f.deliver(events, true)
}

func (f *flakyProc) deliver(events []*models.ChartEvent, batch bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("backend down")
	}
	f.got = append(f.got, events...)
	if batch {
		f.batches = append(f.batches, len(events))
	}
	return nil
}

func (f *flakyProc) delivered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func event(id, kind string) *models.ChartEvent {
	return &models.ChartEvent{EventID: id, Kind: kind, Timestamp: time.Now()}
}

func TestEventPipelineValidates(t *testing.T) {
	m := newNopMetrics()
	p := NewEventPipeline(&flakyProc{}, m, WithMaxRPS(0))

	assert.Error(t, p.Process(context.Background(), nil))
	assert.Error(t, p.Process(context.Background(), &models.ChartEvent{Kind: "natal", Timestamp: time.Now()}))
	assert.Error(t, p.Process(context.Background(), &models.ChartEvent{EventID: "e", Timestamp: time.Now()}))
	assert.Equal(t, 3, m.count("pipeline_validate"))
}

func TestEventPipelineThrottlesPerKind(t *testing.T) {
	proc := &flakyProc{}
	m := newNopMetrics()
	p := NewEventPipeline(proc, m, WithMaxRPS(1))

	require.NoError(t, p.Process(context.Background(), event("a", models.ChartKindToday)))
	require.NoError(t, p.Process(context.Background(), event("b", models.ChartKindToday)))
	require.NoError(t, p.Process(context.Background(), event("c", models.ChartKindNatal)))

	assert.Equal(t, 2, proc.delivered())
	assert.Equal(t, 1, m.drops(DropThrottled))
	assert.Zero(t, m.count("pipeline_throttle"))
}

func TestEventPipelineBuffersAndRedelivers(t *testing.T) {
	proc := &flakyProc{failures: 2}
	p := NewEventPipeline(proc, newNopMetrics(), WithMaxRPS(0))
	p.sleep = func(time.Duration) {}

	err := p.Process(context.Background(), event("a", models.ChartKindNatal))
	require.Error(t, err)
	assert.Equal(t, 1, p.Buffered())

	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return proc.delivered() == 1 }, time.Second, 5*time.Millisecond)
}

func TestEventPipelineDropsAfterRetries(t *testing.T) {
	proc := &flakyProc{failures: 100}
	m := newNopMetrics()
	p := NewEventPipeline(proc, m, WithMaxRPS(0), WithMaxRetries(2))
	p.sleep = func(time.Duration) {}

	_ = p.Process(context.Background(), event("a", models.ChartKindNatal))
	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return m.drops(DropExhausted) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, proc.delivered())
}

func TestEventPipelineFlushesInBatches(t *testing.T) {
	proc := &flakyProc{failures: 3}
	p := NewEventPipeline(proc, newNopMetrics(), WithMaxRPS(0), WithBatch(2, 0))
	p.sleep = func(time.Duration) {}

	for _, id := range []string{"a", "b", "c"} {
		require.Error(t, p.Process(context.Background(), event(id, models.ChartKindNatal)))
	}
	require.Equal(t, 3, p.Buffered())

	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return proc.delivered() == 3 }, time.Second, 5*time.Millisecond)
	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.Equal(t, []int{2, 1}, proc.batches)
}

func TestEventPipelineRestarts(t *testing.T) {
	proc := &flakyProc{}
	p := NewEventPipeline(proc, newNopMetrics(), WithMaxRPS(0))
	p.sleep = func(time.Duration) {}

	p.Start(context.Background())
	p.Stop()
	p.Stop()

	proc.failures = 1
	require.Error(t, p.Process(context.Background(), event("a", models.ChartKindNatal)))

	assert.NotPanics(t, func() { p.Start(context.Background()) })
	defer p.Stop()
	assert.Eventually(t, func() bool { return proc.delivered() == 1 }, time.Second, 5*time.Millisecond)
}
