package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueueService enqueues typed messages.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Job handles one message type.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}

// ExhaustedJob is implemented by jobs that want to hear when a message
// runs out of retries and is moved to the dead-letter list.
type ExhaustedJob interface {
	Job
	Exhausted(ctx context.Context, payload interface{}, err error)
}

// QueueConfig tunes workers and retries.
type QueueConfig struct {
	Workers    int
	QueueSize  int           // upper bound on messages a Stop may leave unread; informational
	RetryLimit int           // retries after the first attempt
	RetryDelay time.Duration // delay before each retry
}

// Message is the stored envelope.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// ParsePayload converts what a Job receives into T.
func ParsePayload[T any](payload interface{}) (*T, error) {
	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		return decodePayload[T](p)
	case []byte:
		return decodePayload[T](p)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("re-encode payload: %w", err)
		}
		return decodePayload[T](b)
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}

func decodePayload[T any](b []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &out, nil
}
