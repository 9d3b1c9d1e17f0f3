// Package logger wraps zerolog with typed fields and an optional collector
// that aggregates repeated errors and ships them to a topic.
package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl zerolog.Logger

	// shared by children created with With
	sink *sink
}

type sink struct {
	mu        sync.RWMutex
	collector *LogCollector
	closer    io.Closer
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr or a file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		lv, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = lv
	}

	out, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	tf := cfg.TimeFormat
	if tf == "" {
		tf = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = tf

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: tf}
	}

	zl := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(4).
		Logger()
	return &Logger{zl: zl, sink: &sink{closer: closer}}, nil
}

func openOutput(target string) (io.Writer, io.Closer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}
	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, f, nil
}

// NewNop discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop(), sink: &sink{}}
}

// NewWriter logs JSON to w at debug level.
func NewWriter(w io.Writer) *Logger {
	return &Logger{zl: zerolog.New(w).Level(zerolog.DebugLevel), sink: &sink{}}
}

// With returns a child that adds fields to every entry. The child shares
// the parent's collector.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.context(ctx)
	}
	return &Logger{zl: ctx.Logger(), sink: l.sink}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(zerolog.DebugLevel, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(zerolog.InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(zerolog.WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(zerolog.ErrorLevel, msg, fields) }

func (l *Logger) log(level zerolog.Level, msg string, fields []Field) {
	if e := l.zl.WithLevel(level); e != nil {
		for _, f := range fields {
			f.event(e)
		}
		e.Msg(msg)
	}
	l.collect(level, msg, fields)
}

func (l *Logger) collect(level zerolog.Level, msg string, fields []Field) {
	l.sink.mu.RLock()
	c := l.sink.collector
	l.sink.mu.RUnlock()
	if c == nil || level < c.minLevel {
		return
	}
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.plain()
	}
	c.Add(level.String(), msg, m, caller(4))
}

// caller reports file:line relative to the module root.
func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	if i := strings.LastIndex(file, "AstroPull/"); i >= 0 {
		file = file[i+len("AstroPull/"):]
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// AddCollector starts aggregating entries at or above cfg.MinLevel. A
// previous collector is flushed and replaced.
func (l *Logger) AddCollector(cfg *CollectionConfig) {
	c := NewLogCollector(cfg)
	l.sink.mu.Lock()
	old := l.sink.collector
	l.sink.collector = c
	l.sink.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// RemoveCollector flushes and detaches the collector.
func (l *Logger) RemoveCollector() {
	l.sink.mu.Lock()
	c := l.sink.collector
	l.sink.collector = nil
	l.sink.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// Close detaches the collector and closes a file output.
func (l *Logger) Close() error {
	l.RemoveCollector()
	if l.sink.closer != nil {
		return l.sink.closer.Close()
	}
	return nil
}
