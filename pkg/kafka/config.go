package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig is the writer shape NewProducer builds.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration
	Async        bool
	HashByKey    bool
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "gzip",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: time.Second,
	}
}

// writer maps the config onto a kafka-go writer. Keyed messages keep their
// partition only when HashByKey is set.
func (c *ProducerConfig) writer() *kafka.Writer {
	var bal kafka.Balancer = &kafka.LeastBytes{}
	if c.HashByKey {
		bal = &kafka.Hash{}
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Balancer:     bal,
		RequiredAcks: kafka.RequiredAcks(c.RequiredAcks),
		Compression:  compressionCodec(c.Compression),
		MaxAttempts:  c.MaxAttempts,
		WriteTimeout: c.WriteTimeout,
		ReadTimeout:  c.ReadTimeout,
		BatchSize:    c.BatchSize,
		BatchBytes:   int64(c.BatchBytes),
		BatchTimeout: c.BatchTimeout,
		Async:        c.Async,
	}
}

// compressionCodec falls back to gzip for unknown names.
func compressionCodec(name string) kafka.Compression {
	switch strings.ToLower(name) {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	}
	return kafka.Gzip
}

// ConsumerConfig is the reader and worker shape NewConsumer builds.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	StartOffset int64
	WorkerCount int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	MinBytes    int
	MaxBytes    int
}

func defaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		GroupID:     "astro",
		StartOffset: firstOffset,
		WorkerCount: 1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	}
}

// positive overwrites dst only with values above zero, so zero-valued YAML
// fields keep the package defaults.
func positive[T int | time.Duration](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

type (
	ProducerOption func(*ProducerConfig)
	ConsumerOption func(*ConsumerConfig)
)

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithCompression takes gzip, snappy, lz4 or zstd.
func WithCompression(name string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = name }
}

// WithRequiredAcks: -1 waits for all replicas, 1 for the leader, 0 for nobody.
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) { positive(&c.MaxAttempts, n) }
}

func WithBatchSize(n int) ProducerOption {
	return func(c *ProducerConfig) { positive(&c.BatchSize, n) }
}

func WithBatchBytes(n int) ProducerOption {
	return func(c *ProducerConfig) { positive(&c.BatchBytes, n) }
}

// WithBatchTimeout is the linger before a partial batch goes out.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(c *ProducerConfig) { positive(&c.BatchTimeout, d) }
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		positive(&c.WriteTimeout, write)
		positive(&c.ReadTimeout, read)
	}
}

func WithAsync(on bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = on }
}

func WithHashByKey(on bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = on }
}

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

func WithConsumerGroupID(id string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if id != "" {
			c.GroupID = id
		}
	}
}

// WithConsumerStartOffset picks where a group with no commits begins.
// Only "latest" skips the backlog.
func WithConsumerStartOffset(where string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.StartOffset = firstOffset
		if where == "latest" {
			c.StartOffset = lastOffset
		}
	}
}

// WithConsumerWorkers sets the worker count. A partition always lands on the same worker.
func WithConsumerWorkers(n int) ConsumerOption {
	return func(c *ConsumerConfig) { positive(&c.WorkerCount, n) }
}

// WithConsumerBufferSize is the queue length in front of each worker.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) { positive(&c.BufferSize, n) }
}

// WithConsumerRetry bounds handler retries; backoff doubles from min to max.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		if max >= 0 {
			c.RetryMax = max
		}
		positive(&c.BackoffMin, backoffMin)
		positive(&c.BackoffMax, backoffMax)
	}
}

// WithConsumerDLQ names the topic for messages that ran out of retries.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		positive(&c.MinBytes, minBytes)
		positive(&c.MaxBytes, maxBytes)
	}
}
