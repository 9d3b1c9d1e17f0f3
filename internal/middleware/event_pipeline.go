package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AstroPull/internal/domain/models"
	domrepo "AstroPull/internal/domain/repository"
)

// Drop reasons reported through Metrics.RecordEventDropped.
const (
	DropThrottled  = "throttled"
	DropBufferFull = "buffer_full"
	DropExhausted  = "retries_exhausted"
)

// Proc is what the pipeline delivers to.
type Proc interface {
	Process(ctx context.Context, e *models.ChartEvent) error
	ProcessBatch(ctx context.Context, events []*models.ChartEvent) error
}

type bufferedEvent struct {
	event    *models.ChartEvent
	attempts int
}

// EventPipeline sits between chart computation and the event backend.
// It validates, throttles per chart kind, and buffers events while the
// downstream is failing. The flusher redelivers buffered events in batches,
// each event a bounded number of times.
type EventPipeline struct {
	proc       Proc
	metrics    domrepo.Metrics
	maxRPS     int
	bufSize    int
	maxRetries int
	batchSize  int
	batchWait  time.Duration
	bufCh      chan bufferedEvent
	sleep      func(time.Duration)

	mu       sync.Mutex
	started  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	lastSeen map[string]time.Time // per kind, last accepted
}

type PipelineOption func(*EventPipeline)

// WithMaxRPS sets the max events per second per chart kind. Zero disables throttling.
func WithMaxRPS(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n >= 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets how many failed events wait for redelivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithMaxRetries bounds how often a buffered event is retried before it is dropped.
func WithMaxRetries(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// WithBatch caps a redelivery batch at size events, waiting up to wait for
// it to fill. A zero wait sends whatever is buffered.
func WithBatch(size int, wait time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if size > 0 {
			p.batchSize = size
		}
		if wait >= 0 {
			p.batchWait = wait
		}
	}
}

func NewEventPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		proc:       proc,
		metrics:    metrics,
		maxRPS:     50,
		bufSize:    1000,
		maxRetries: 5,
		batchSize:  100,
		lastSeen:   make(map[string]time.Time),
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan bufferedEvent, p.bufSize)
	return p
}

// Start launches the flusher. It may be called again after Stop.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	go p.flush(ctx, p.stopCh, p.doneCh)
}

// Stop halts the flusher and waits for it. Buffered events stay buffered.
func (p *EventPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stop)
	<-done
}

// Buffered reports how many events wait for redelivery.
func (p *EventPipeline) Buffered() int {
	return len(p.bufCh)
}

func (p *EventPipeline) flush(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	backoff := 50 * time.Millisecond
	for {
		var first bufferedEvent
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case first = <-p.bufCh:
		}

		batch := p.collect(first, stop)
		events := make([]*models.ChartEvent, len(batch))
		for i, b := range batch {
			events[i] = b.event
		}
		if err := p.proc.ProcessBatch(ctx, events); err != nil {
			p.metrics.RecordError("pipeline_flush")
			p.sleep(backoff)
			if backoff < 2*time.Second {
				backoff *= 2
			}
			p.requeue(batch)
			continue
		}
		backoff = 50 * time.Millisecond
	}
}

// collect gathers up to batchSize buffered events starting with first.
func (p *EventPipeline) collect(first bufferedEvent, stop <-chan struct{}) []bufferedEvent {
	batch := []bufferedEvent{first}
	if p.batchWait <= 0 {
		for len(batch) < p.batchSize {
			select {
			case b := <-p.bufCh:
				batch = append(batch, b)
			default:
				return batch
			}
		}
		return batch
	}

	timer := time.NewTimer(p.batchWait)
	defer timer.Stop()
	for len(batch) < p.batchSize {
		select {
		case b := <-p.bufCh:
			batch = append(batch, b)
		case <-timer.C:
			return batch
		case <-stop:
			return batch
		}
	}
	return batch
}

func (p *EventPipeline) requeue(batch []bufferedEvent) {
	for _, b := range batch {
		b.attempts++
		if b.attempts >= p.maxRetries {
			p.metrics.RecordEventDropped(DropExhausted)
			continue
		}
		select {
		case p.bufCh <- b:
		default:
			p.metrics.RecordEventDropped(DropBufferFull)
		}
	}
}

// Process validates, throttles and forwards an event, buffering it when
// the downstream fails. Throttled events are dropped without error.
func (p *EventPipeline) Process(ctx context.Context, e *models.ChartEvent) error {
	start := time.Now()
	if err := validateEvent(e); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(e.Kind, start) {
		p.metrics.RecordEventDropped(DropThrottled)
		return nil
	}

	if err := p.proc.Process(ctx, e); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- bufferedEvent{event: e}:
		default:
			p.metrics.RecordEventDropped(DropBufferFull)
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateEvent(e *models.ChartEvent) error {
	if e == nil {
		return fmt.Errorf("event nil")
	}
	if e.EventID == "" {
		return fmt.Errorf("event id empty")
	}
	if e.Kind == "" {
		return fmt.Errorf("kind empty")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	// Unknown signs only count in the denominator, so the sum may be below 100.
	if total := e.Elements.Total(); total < 0 || total > 100.05 {
		return fmt.Errorf("element percentages sum to %.2f", total)
	}
	return nil
}

func (p *EventPipeline) allow(kind string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[kind]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[kind] = now
	return true
}
