package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"AstroPull/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// QueueMode selects which side of the queue runs in this process.
type QueueMode int

const (
	ModeProducerConsumer QueueMode = iota
	ModeProducerOnly
	ModeConsumerOnly
)

func (m QueueMode) String() string {
	switch m {
	case ModeProducerOnly:
		return "producer-only"
	case ModeConsumerOnly:
		return "consumer-only"
	default:
		return "producer-consumer"
	}
}

// store is the list/zset plumbing under the queue.
type store interface {
	push(ctx context.Context, data []byte) error
	pop(ctx context.Context, wait time.Duration) ([]byte, error) // nil, nil on timeout
	retryAt(ctx context.Context, data []byte, at time.Time) error
	deadLetter(ctx context.Context, data []byte) error
	promote(ctx context.Context, now time.Time, limit int) (int, error)
	ping(ctx context.Context) error
}

// RedisQueue is a work queue on a Redis list, with delayed retries in a
// sorted set and a dead-letter list.
type RedisQueue struct {
	l      *logger.Logger
	cfg    QueueConfig
	mode   QueueMode
	st     store
	prefix string
	now    func() time.Time

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets the key namespace. Default "astro:queue".
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) { r.prefix = prefix }
}

func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, mode QueueMode, opts ...RedisQueueOption) *RedisQueue {
	r := newQueue(lgr, config, mode)
	for _, opt := range opts {
		opt(r)
	}
	r.st = &redisStore{client: client, prefix: r.prefix}
	return r
}

func newQueue(lgr *logger.Logger, config *QueueConfig, mode QueueMode) *RedisQueue {
	cfg := QueueConfig{}
	if config != nil {
		cfg = *config
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	if lgr == nil {
		lgr = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisQueue{
		l:      lgr,
		cfg:    cfg,
		mode:   mode,
		prefix: "astro:queue",
		now:    time.Now,
		jobs:   make(map[string]Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// RegisterJob adds a handler for job.Type(). Ignored in producer-only mode.
func (r *RedisQueue) RegisterJob(job Job) {
	if r.mode == ModeProducerOnly {
		r.l.Warn("job registration ignored in producer-only mode", logger.String("job", job.Name()))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Type()]; ok {
		r.l.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.l.Info("job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

func (r *RedisQueue) RegisterJobs(jobs []Job) {
	for _, j := range jobs {
		r.RegisterJob(j)
	}
}

// Start pings Redis and, unless producer-only, launches workers and the retry promoter.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}

	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()
	if err := r.st.ping(ctx); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	r.running = true

	if r.mode != ModeProducerOnly {
		for i := 0; i < r.cfg.Workers; i++ {
			r.wg.Add(1)
			go r.worker()
		}
		r.wg.Add(1)
		go r.promoter()
	}
	r.l.Info("redis queue started",
		logger.String("mode", r.mode.String()),
		logger.Int("workers", r.cfg.Workers),
		logger.String("prefix", r.prefix))
	return nil
}

// Stop cancels workers and waits for in-flight jobs or ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.l.Info("redis queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue stop: %w", ctx.Err())
	}
}

// PublishMessage enqueues payload as JSON under msgType.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.RUnlock()

	if !running {
		return fmt.Errorf("queue not running")
	}
	if r.mode != ModeProducerOnly && !known {
		return fmt.Errorf("no job registered for type %q", msgType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	data, err := json.Marshal(Message{
		ID:         uuid.NewString(),
		Type:       msgType,
		Payload:    raw,
		EnqueuedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.st.push(ctx, data); err != nil {
		return fmt.Errorf("enqueue %s: %w", msgType, err)
	}
	return nil
}

func (r *RedisQueue) worker() {
	defer r.wg.Done()
	for r.ctx.Err() == nil {
		data, err := r.st.pop(r.ctx, time.Second)
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.l.Error("queue pop", logger.Error(err))
			sleep(r.ctx, time.Second)
			continue
		}
		if data == nil {
			continue
		}
		r.process(data)
	}
}

// process runs one stored message and reschedules or dead-letters it on failure.
func (r *RedisQueue) process(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		r.l.Error("queue message undecodable", logger.Error(err))
		_ = r.st.deadLetter(context.Background(), data)
		return
	}

	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.l.Error("no job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		_ = r.st.deadLetter(context.Background(), data)
		return
	}

	start := r.now()
	err := r.handle(job, msg.Payload)
	if err == nil {
		r.l.Debug("job done",
			logger.String("job", job.Name()),
			logger.String("id", msg.ID),
			logger.Duration("took", time.Since(start)))
		return
	}
	if errors.Is(err, context.Canceled) && r.ctx.Err() != nil {
		// Shutting down: put it back untouched.
		_ = r.st.push(context.Background(), data)
		return
	}
	r.fail(job, msg, err)
}

func (r *RedisQueue) handle(job Job, payload json.RawMessage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panic: %v", rec)
		}
	}()
	return job.Handle(r.ctx, payload)
}

func (r *RedisQueue) fail(job Job, msg Message, cause error) {
	msg.Attempts++
	msg.LastError = cause.Error()
	data, err := json.Marshal(msg)
	if err != nil {
		r.l.Error("marshal failed message", logger.Error(err))
		return
	}

	ctx := context.Background()
	if msg.Attempts <= r.cfg.RetryLimit {
		at := r.now().Add(r.cfg.RetryDelay)
		if err := r.st.retryAt(ctx, data, at); err != nil {
			r.l.Error("schedule retry", logger.String("id", msg.ID), logger.Error(err))
			return
		}
		r.l.Warn("job failed, retry scheduled",
			logger.String("job", job.Name()),
			logger.String("id", msg.ID),
			logger.Int("attempt", msg.Attempts),
			logger.Error(cause))
		return
	}

	r.l.Error("job retries exhausted",
		logger.String("job", job.Name()),
		logger.String("id", msg.ID),
		logger.Int("attempts", msg.Attempts),
		logger.Error(cause))
	if err := r.st.deadLetter(ctx, data); err != nil {
		r.l.Error("dead-letter", logger.String("id", msg.ID), logger.Error(err))
	}
	if ej, ok := job.(ExhaustedJob); ok {
		ej.Exhausted(ctx, msg.Payload, cause)
	}
}

func (r *RedisQueue) promoter() {
	defer r.wg.Done()
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-t.C:
			n, err := r.st.promote(r.ctx, r.now(), 100)
			if err != nil && r.ctx.Err() == nil {
				r.l.Error("promote retries", logger.Error(err))
			} else if n > 0 {
				r.l.Debug("retries promoted", logger.Int("count", n))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// promoteScript moves due retries back onto the work list atomically.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, m in ipairs(due) do
  redis.call('ZREM', KEYS[1], m)
  redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

type redisStore struct {
	client *redis.Client
	prefix string
}

func (s *redisStore) key(suffix string) string { return s.prefix + ":" + suffix }

func (s *redisStore) push(ctx context.Context, data []byte) error {
	return s.client.LPush(ctx, s.key("messages"), data).Err()
}

func (s *redisStore) pop(ctx context.Context, wait time.Duration) ([]byte, error) {
	res, err := s.client.BRPop(ctx, wait, s.key("messages")).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

func (s *redisStore) retryAt(ctx context.Context, data []byte, at time.Time) error {
	return s.client.ZAdd(ctx, s.key("retry"), redis.Z{Score: float64(at.Unix()), Member: data}).Err()
}

func (s *redisStore) deadLetter(ctx context.Context, data []byte) error {
	return s.client.LPush(ctx, s.key("dlq"), data).Err()
}

func (s *redisStore) promote(ctx context.Context, now time.Time, limit int) (int, error) {
	return promoteScript.Run(ctx, s.client,
		[]string{s.key("retry"), s.key("messages")},
		strconv.FormatInt(now.Unix(), 10), limit,
	).Int()
}

func (s *redisStore) ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
