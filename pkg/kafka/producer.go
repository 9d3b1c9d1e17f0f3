package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is what the producer and the consumer DLQ need from *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes JSON-encoded values to any topic through one writer.
type Producer struct {
	writer messageWriter
	now    func() time.Time
}

// Message pairs a partition key with a value to encode.
type Message struct {
	Key   []byte
	Value interface{}
}

func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka producer: no brokers")
	}
	return newProducer(cfg.writer()), nil
}

func newProducer(w messageWriter) *Producer {
	initMetrics()
	return &Producer{writer: w, now: time.Now}
}

func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishMessage writes value without a key. The log collector sinks through it.
func (p *Producer) PublishMessage(ctx context.Context, topic string, value interface{}) error {
	return p.Publish(ctx, topic, nil, value)
}

// PublishBatch encodes every message first and writes nothing if one fails.
func (p *Producer) PublishBatch(ctx context.Context, topic string, batch []Message) error {
	if len(batch) == 0 {
		return nil
	}
	at := p.now()
	out := make([]kafka.Message, 0, len(batch))
	bytes := 0
	for _, m := range batch {
		v, err := encode(m.Value)
		if err != nil {
			return err
		}
		bytes += len(v)
		out = append(out, kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: at})
	}

	err := p.writer.WriteMessages(ctx, out...)
	observePublish(topic, bytes, len(out), time.Since(at), err)
	if err != nil {
		return fmt.Errorf("publish %d message(s) to %s: %w", len(out), topic, err)
	}
	return nil
}

// Close flushes pending async batches.
func (p *Producer) Close() error { return p.writer.Close() }

// encode passes raw bytes and strings through and marshals the rest.
func encode(v interface{}) ([]byte, error) {
	switch raw := v.(type) {
	case []byte:
		return raw, nil
	case string:
		return []byte(raw), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode kafka value: %w", err)
	}
	return b, nil
}
