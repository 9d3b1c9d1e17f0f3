package repository

import (
	"context"

	"AstroPull/internal/domain/models"
	"AstroPull/internal/domain/repository"
	pkgkafka "AstroPull/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Events are keyed by subject
// so one person's charts stay on one partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e *models.ChartEvent) error {
	return p.producer.Publish(ctx, p.topic, eventKey(e), e)
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, events []*models.ChartEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: eventKey(e), Value: e})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	return nil // producer owned by DI, shared with the log collector
}

func eventKey(e *models.ChartEvent) []byte {
	if e.Subject != "" {
		return []byte(e.Subject)
	}
	return []byte(e.EventID)
}
