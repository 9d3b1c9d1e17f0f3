package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePub struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePub) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestFieldsRenderTyped(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf).With(String("component", "ephemeris"))

	l.Warn("slow upstream",
		Int("attempt", 2),
		Duration("took", 1500*time.Millisecond),
		Bool("cached", false),
		Strings("bodies", []string{"Sun", "Moon"}),
		Error(errors.New("timeout")))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "slow upstream", got["message"])
	assert.Equal(t, "ephemeris", got["component"])
	assert.Equal(t, float64(2), got["attempt"])
	assert.Equal(t, float64(1500), got["took"])
	assert.Equal(t, false, got["cached"])
	assert.Equal(t, []interface{}{"Sun", "Moon"}, got["bodies"])
	assert.Equal(t, "timeout", got["error"])
}

func TestLevelFilters(t *testing.T) {
	l, err := New(&Config{Level: "warn", Output: "stderr"})
	require.NoError(t, err)
	assert.Nil(t, l.zl.Info())

	_, err = New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestCollectorAggregatesRepeatedErrors(t *testing.T) {
	pub := &capturePub{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{Topic: "astro.logs", Publisher: pub, FlushEvery: time.Hour})

	for i := 0; i < 3; i++ {
		l.Error("chart failed", String("subject", "abc"))
	}
	l.Error("chart failed", String("subject", "xyz"))
	l.Info("ignored")
	l.Warn("below threshold")
	l.RemoveCollector()

	require.Len(t, pub.batches, 1)
	assert.Equal(t, "astro.logs", pub.topic)
	batch := pub.batches[0]
	require.Len(t, batch, 2)
	counts := map[interface{}]int{}
	for _, e := range batch {
		assert.Equal(t, "error", e.Level)
		assert.Contains(t, e.Caller, "logger_test.go:")
		counts[e.Fields["subject"]] = e.Count
	}
	assert.Equal(t, map[interface{}]int{"abc": 3, "xyz": 1}, counts)
}

func TestCollectorFlushesAtMaxKeys(t *testing.T) {
	pub := &capturePub{}
	c := NewLogCollector(&CollectionConfig{Publisher: pub, MaxKeys: 2, FlushEvery: time.Hour})
	defer c.Close()

	c.Add("error", "a", nil, "x.go:1")
	c.Add("error", "b", nil, "x.go:2")

	assert.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.batches) == 1 && len(pub.batches[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestEntryKeyIgnoresMapOrder(t *testing.T) {
	a := entryKey("error", "m", map[string]interface{}{"x": 1, "y": "z"}, "c")
	b := entryKey("error", "m", map[string]interface{}{"y": "z", "x": 1}, "c")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, entryKey("warn", "m", map[string]interface{}{"x": 1, "y": "z"}, "c"))
}

func TestMinLevelIncludesWarnings(t *testing.T) {
	c := newCollector(&CollectionConfig{MinLevel: "warn"})
	l := NewNop()
	l.sink.collector = c

	l.Warn("ephemeris retry")
	l.Debug("noise")

	batch := c.take()
	require.Len(t, batch, 1)
	assert.Equal(t, "warn", batch[0].Level)
}
