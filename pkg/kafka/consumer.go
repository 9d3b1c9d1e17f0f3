package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	applogger "AstroPull/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const (
	firstOffset = kafka.FirstOffset
	lastOffset  = kafka.LastOffset
)

// MessageHandler handles messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(ctx context.Context, value []byte) error
}

type committer interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type delivery struct {
	km     kafka.Message
	reader committer
}

// Consumer reads registered topics in a consumer group. Messages of one
// partition always go to the same worker, so they are handled in order.
// Offsets are committed after success, or after a DLQ write when a DLQ is set.
type Consumer struct {
	cfg      *ConsumerConfig
	handlers map[string]MessageHandler
	readers  []*kafka.Reader
	queues   []chan delivery
	dlq      messageWriter
	hook     ConsumerHook
	l        *applogger.Logger
	sleep    func(context.Context, time.Duration) bool

	stop      chan struct{}
	stopOnce  sync.Once
	readersWG sync.WaitGroup
	workersWG sync.WaitGroup
}

func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka consumer: no brokers")
	}

	c := newConsumer(cfg)
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.Hash{}}
	}
	return c, nil
}

func newConsumer(cfg *ConsumerConfig) *Consumer {
	initMetrics()
	return &Consumer{
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
		hook:     NoopHook{},
		l:        applogger.NewNop(),
		sleep:    sleepCtx,
		stop:     make(chan struct{}),
	}
}

// WithConsumerHook replaces the handling hook.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// WithLogger sets the consumer logger.
func (c *Consumer) WithLogger(l *applogger.Logger) {
	if l != nil {
		c.l = l
	}
}

// RegisterHandler adds a handler. Must be called before Start; a second handler
// for the same topic is ignored.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, ok := c.handlers[h.Topic()]; ok {
		c.l.Warn("kafka handler already registered", applogger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

// Start launches the workers and one reader per registered topic.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}

	c.queues = make([]chan delivery, c.cfg.WorkerCount)
	for i := range c.queues {
		c.queues[i] = make(chan delivery, c.cfg.BufferSize)
		c.workersWG.Add(1)
		go c.work(i)
	}

	for topic := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			StartOffset: c.cfg.StartOffset,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
		})
		c.readers = append(c.readers, r)
		c.readersWG.Add(1)
		go c.read(topic, r)
	}

	// Queues close once every reader is gone, which lets workers drain and exit.
	go func() {
		c.readersWG.Wait()
		for _, q := range c.queues {
			close(q)
		}
	}()

	c.l.Info("kafka consumer started",
		applogger.Int("workers", c.cfg.WorkerCount),
		applogger.String("group", c.cfg.GroupID))
	return nil
}

// Stop halts reading, waits for in-flight messages, then closes the readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stop)

		done := make(chan struct{})
		go func() {
			c.readersWG.Wait()
			c.workersWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka consumer stop: %w", ctx.Err())
		}

		for _, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.l.Warn("kafka reader close", applogger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.l.Warn("kafka dlq close", applogger.Error(cerr))
			}
		}
	})
	return err
}

func (c *Consumer) read(topic string, r *kafka.Reader) {
	defer c.readersWG.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		km, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.l.Warn("kafka fetch", applogger.String("topic", topic), applogger.Error(err))
			if !c.sleep(ctx, c.cfg.BackoffMin) {
				return
			}
			continue
		}

		w := workerFor(km.Partition, len(c.queues))
		select {
		case c.queues[w] <- delivery{km: km, reader: r}:
			consumerDepth.WithLabelValues(strconv.Itoa(w)).Set(float64(len(c.queues[w])))
		case <-c.stop:
			return
		}
	}
}

func (c *Consumer) work(i int) {
	defer c.workersWG.Done()
	for d := range c.queues[i] {
		c.handle(d)
	}
}

// handle runs the handler with retries, then dead-letters and commits as configured.
func (c *Consumer) handle(d delivery) {
	start := time.Now()
	topic := d.km.Topic
	h, ok := c.handlers[topic]
	if !ok {
		return
	}

	ctx := context.Background()
	attempts, err := c.run(ctx, h, d.km)
	c.hook.After(ctx, d.km, attempts, err)

	outcome := "ok"
	commit := err == nil
	if err != nil {
		outcome = "dropped"
		if c.dlq != nil {
			if derr := c.deadLetter(ctx, d.km, err); derr != nil {
				c.l.Error("kafka dlq write", applogger.String("topic", topic), applogger.Error(derr))
			} else {
				outcome = "dlq"
				commit = true
			}
		}
	}
	if commit {
		c.commit(d)
	}
	consumerMessages.WithLabelValues(topic, outcome).Inc()
	consumerLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) run(ctx context.Context, h MessageHandler, km kafka.Message) (int, error) {
	for attempt := 1; ; attempt++ {
		err := c.call(ctx, h, km)
		if err == nil || attempt > c.cfg.RetryMax {
			return attempt, err
		}
		select {
		case <-c.stop:
			return attempt, err
		default:
		}
		if !c.sleep(ctx, backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return attempt, err
		}
	}
}

// call invokes the hook and handler, turning a handler panic into an error.
func (c *Consumer) call(ctx context.Context, h MessageHandler, km kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	hctx, err := c.hook.Before(ctx, km)
	if err != nil {
		return err
	}
	return h.Handle(hctx, km.Value)
}

func (c *Consumer) deadLetter(ctx context.Context, km kafka.Message, cause error) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   km.Key,
		Value: km.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(km.Topic)},
			{Key: "source_offset", Value: []byte(strconv.FormatInt(km.Offset, 10))},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
}

func (c *Consumer) commit(d delivery) {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = d.reader.CommitMessages(ctx, d.km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoff(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.l.Error("kafka commit failed",
		applogger.String("topic", d.km.Topic),
		applogger.Int64("offset", d.km.Offset),
		applogger.Error(err))
}

func workerFor(partition, workers int) int {
	if workers <= 1 || partition < 0 {
		return 0
	}
	return partition % workers
}

// backoff doubles from min per attempt, capped at max, minus up to half as jitter.
func backoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := max
	if attempt < 32 {
		if exp := min << uint(attempt-1); exp > 0 && exp < max {
			d = exp
		}
	}
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int63n(half))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
