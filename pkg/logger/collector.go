package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Publisher ships a batch of aggregated entries. The Kafka producer satisfies it.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	FlushEvery time.Duration // default 30s
	MaxKeys    int           // distinct entries that force a flush; default 100
	MinLevel   string        // default "error"
	Topic      string
	Publisher  Publisher
}

// AggregatedLogEntry counts identical entries between flushes.
type AggregatedLogEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

type LogCollector struct {
	topic    string
	pub      Publisher
	every    time.Duration
	maxKeys  int
	minLevel zerolog.Level
	now      func() time.Time

	mu      sync.Mutex
	entries map[uint64]*AggregatedLogEntry

	kick      chan struct{}
	stop      chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

func NewLogCollector(cfg *CollectionConfig) *LogCollector {
	c := newCollector(cfg)
	go c.loop()
	return c
}

func newCollector(cfg *CollectionConfig) *LogCollector {
	c := &LogCollector{
		topic:    cfg.Topic,
		pub:      cfg.Publisher,
		every:    cfg.FlushEvery,
		maxKeys:  cfg.MaxKeys,
		minLevel: zerolog.ErrorLevel,
		now:      time.Now,
		entries:  make(map[uint64]*AggregatedLogEntry),
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if c.every <= 0 {
		c.every = 30 * time.Second
	}
	if c.maxKeys <= 0 {
		c.maxKeys = 100
	}
	if lv, err := zerolog.ParseLevel(cfg.MinLevel); err == nil && cfg.MinLevel != "" {
		c.minLevel = lv
	}
	return c
}

// Add counts one entry. Reaching MaxKeys distinct entries wakes the flusher.
func (c *LogCollector) Add(level, message string, fields map[string]interface{}, caller string) {
	now := c.now()
	key := entryKey(level, message, fields, caller)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	full := len(c.entries) >= c.maxKeys
	c.mu.Unlock()

	if full {
		select {
		case c.kick <- struct{}{}:
		default:
		}
	}
}

func entryKey(level, message string, fields map[string]interface{}, caller string) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s\x00%s", level, message, caller)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := json.Marshal(fields[k])
		fmt.Fprintf(h, "\x00%s=%s", k, v)
	}
	return h.Sum64()
}

func (c *LogCollector) loop() {
	defer close(c.done)
	t := time.NewTicker(c.every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.flush()
		case <-c.kick:
			c.flush()
		case <-c.stop:
			c.flush()
			return
		}
	}
}

// take swaps out the current batch, oldest first.
func (c *LogCollector) take() []AggregatedLogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) == 0 {
		return nil
	}
	out := make([]AggregatedLogEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.entries = make(map[uint64]*AggregatedLogEntry)
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	return out
}

func (c *LogCollector) flush() {
	batch := c.take()
	if len(batch) == 0 || c.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.pub.PublishMessage(ctx, c.topic, batch); err != nil {
		// The logger itself may be what feeds us, so report on stderr.
		fmt.Fprintf(os.Stderr, "log collector: publish %d entries: %v\n", len(batch), err)
	}
}

// Close flushes what is pending and stops the flusher. Safe to call twice.
func (c *LogCollector) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
	<-c.done
}
