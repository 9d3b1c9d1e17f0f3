package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeCommitter struct {
	committed []int64
}

func (c *fakeCommitter) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		c.committed = append(c.committed, m.Offset)
	}
	return nil
}

type scriptedHandler struct {
	topic string
	errs  []error
	calls int
	panic bool
}

func (h *scriptedHandler) Topic() string { return h.topic }

func (h *scriptedHandler) Handle(_ context.Context, _ []byte) error {
	h.calls++
	if h.panic {
		panic("boom")
	}
	if h.calls <= len(h.errs) {
		return h.errs[h.calls-1]
	}
	return nil
}

type rejectHook struct{ NoopHook }

func (rejectHook) Before(ctx context.Context, _ kafka.Message) (context.Context, error) {
	return ctx, errors.New("rejected")
}

func testConsumer(retries int, dlq *fakeWriter) *Consumer {
	c := newConsumer(&ConsumerConfig{
		GroupID:     "test",
		WorkerCount: 1,
		RetryMax:    retries,
		BackoffMin:  time.Millisecond,
		BackoffMax:  time.Millisecond,
		DLQTopic:    "chart-events.dlq",
	})
	c.sleep = func(context.Context, time.Duration) bool { return true }
	if dlq != nil {
		c.dlq = dlq
	}
	return c
}

func msg(offset int64) kafka.Message {
	return kafka.Message{Topic: "chart-events", Partition: 0, Offset: offset, Value: []byte(`{"event_id":"e1"}`)}
}

func TestProducerEncodesAndKeys(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w)

	require.NoError(t, p.Publish(context.Background(), "chart-events", []byte("Ada"), map[string]int{"n": 1}))
	require.NoError(t, p.PublishMessage(context.Background(), "logs", "plain"))
	require.NoError(t, p.PublishBatch(context.Background(), "chart-events", nil))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "chart-events", w.msgs[0].Topic)
	assert.Equal(t, []byte("Ada"), w.msgs[0].Key)
	assert.JSONEq(t, `{"n":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "plain", string(w.msgs[1].Value))
	assert.Nil(t, w.msgs[1].Key)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerWrapsWriteErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newProducer(w)
	err := p.PublishBatch(context.Background(), "chart-events", []Message{{Value: "a"}, {Value: "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish 2 message(s) to chart-events")
}

func TestConsumerCommitsOnSuccess(t *testing.T) {
	c := testConsumer(2, nil)
	h := &scriptedHandler{topic: "chart-events", errs: []error{errors.New("clickhouse busy")}}
	c.RegisterHandler(h)

	cm := &fakeCommitter{}
	c.handle(delivery{km: msg(7), reader: cm})

	assert.Equal(t, 2, h.calls)
	assert.Equal(t, []int64{7}, cm.committed)
}

func TestConsumerDeadLettersAfterRetries(t *testing.T) {
	dlq := &fakeWriter{}
	c := testConsumer(2, dlq)
	h := &scriptedHandler{topic: "chart-events", errs: []error{errors.New("a"), errors.New("b"), errors.New("bad payload")}}
	c.RegisterHandler(h)

	cm := &fakeCommitter{}
	c.handle(delivery{km: msg(9), reader: cm})

	assert.Equal(t, 3, h.calls)
	require.Len(t, dlq.msgs, 1)
	dead := dlq.msgs[0]
	assert.Equal(t, "chart-events.dlq", dead.Topic)
	headers := map[string]string{}
	for _, hd := range dead.Headers {
		headers[hd.Key] = string(hd.Value)
	}
	assert.Equal(t, "chart-events", headers["source_topic"])
	assert.Equal(t, "9", headers["source_offset"])
	assert.Equal(t, "bad payload", headers["error"])
	assert.Equal(t, []int64{9}, cm.committed)
}

func TestConsumerLeavesOffsetWithoutDLQ(t *testing.T) {
	c := testConsumer(0, nil)
	c.dlq = nil
	h := &scriptedHandler{topic: "chart-events", errs: []error{errors.New("down")}}
	c.RegisterHandler(h)

	cm := &fakeCommitter{}
	c.handle(delivery{km: msg(3), reader: cm})

	assert.Equal(t, 1, h.calls)
	assert.Empty(t, cm.committed)
}

func TestConsumerRecoversHandlerPanic(t *testing.T) {
	dlq := &fakeWriter{}
	c := testConsumer(1, dlq)
	h := &scriptedHandler{topic: "chart-events", panic: true}
	c.RegisterHandler(h)

	c.handle(delivery{km: msg(1), reader: &fakeCommitter{}})

	assert.Equal(t, 2, h.calls)
	require.Len(t, dlq.msgs, 1)
}

func TestConsumerHookRejectsBeforeHandler(t *testing.T) {
	dlq := &fakeWriter{}
	c := testConsumer(0, dlq)
	c.WithConsumerHook(rejectHook{})
	h := &scriptedHandler{topic: "chart-events"}
	c.RegisterHandler(h)

	c.handle(delivery{km: msg(1), reader: &fakeCommitter{}})

	assert.Zero(t, h.calls)
	assert.Len(t, dlq.msgs, 1)
}

func TestRegisterHandlerKeepsFirst(t *testing.T) {
	c := testConsumer(0, nil)
	first := &scriptedHandler{topic: "t"}
	c.RegisterHandler(first)
	c.RegisterHandler(&scriptedHandler{topic: "t"})
	assert.Same(t, first, c.handlers["t"])
}

func TestStartWithoutHandlers(t *testing.T) {
	assert.Error(t, testConsumer(0, nil).Start())
}

func TestWorkerFor(t *testing.T) {
	assert.Equal(t, 0, workerFor(5, 1))
	assert.Equal(t, 1, workerFor(5, 4))
	assert.Equal(t, workerFor(6, 4), workerFor(6, 4))
	assert.Equal(t, 0, workerFor(-1, 4))
}

func TestBackoffBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoff(min, max, attempt)
		assert.LessOrEqual(t, d, max)
		assert.Greater(t, d, time.Duration(0))
	}
	d := backoff(min, max, 1)
	assert.GreaterOrEqual(t, d, min/2)
	assert.LessOrEqual(t, d, min)
}

func TestProducerConfigKeepsDefaultsForZeroValues(t *testing.T) {
	cfg := defaultProducerConfig()
	for _, opt := range []ProducerOption{
		WithBrokers([]string{"k1:9092"}),
		WithBatchSize(0),
		WithTimeouts(0, 3*time.Second),
		WithCompression("LZ4"),
		WithHashByKey(true),
	} {
		opt(cfg)
	}
	w := cfg.writer()
	assert.Equal(t, 100, w.BatchSize)
	assert.Equal(t, 10*time.Second, w.WriteTimeout)
	assert.Equal(t, 3*time.Second, w.ReadTimeout)
	assert.Equal(t, kafka.Lz4, w.Compression)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, kafka.Gzip, compressionCodec("brotli"))
}

func TestConsumerStartOffset(t *testing.T) {
	cfg := defaultConsumerConfig()
	WithConsumerStartOffset("latest")(cfg)
	assert.Equal(t, int64(kafka.LastOffset), cfg.StartOffset)
	WithConsumerStartOffset("earliest")(cfg)
	assert.Equal(t, int64(kafka.FirstOffset), cfg.StartOffset)

	_, err := NewConsumer()
	assert.Error(t, err)
	_, err = NewProducer()
	assert.Error(t, err)
}
