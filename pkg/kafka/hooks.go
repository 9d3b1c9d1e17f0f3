package kafka

import (
	"context"

	applogger "AstroPull/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook observes message handling. A Before error skips the handler
// and sends the message straight to failure handling.
type ConsumerHook interface {
	Before(ctx context.Context, km kafka.Message) (context.Context, error)
	After(ctx context.Context, km kafka.Message, attempts int, err error)
}

// NoopHook does nothing.
type NoopHook struct{}

func (NoopHook) Before(ctx context.Context, _ kafka.Message) (context.Context, error) { return ctx, nil }

func (NoopHook) After(context.Context, kafka.Message, int, error) {}

// LogHook logs messages that needed retries or failed outright.
type LogHook struct {
	L *applogger.Logger
}

func (h LogHook) Before(ctx context.Context, _ kafka.Message) (context.Context, error) { return ctx, nil }

func (h LogHook) After(_ context.Context, km kafka.Message, attempts int, err error) {
	fields := []applogger.Field{
		applogger.String("topic", km.Topic),
		applogger.Int("partition", km.Partition),
		applogger.Int64("offset", km.Offset),
		applogger.Int("attempts", attempts),
	}
	switch {
	case err != nil:
		h.L.Warn("kafka message failed", append(fields, applogger.Error(err))...)
	case attempts > 1:
		h.L.Info("kafka message succeeded after retry", fields...)
	}
}
