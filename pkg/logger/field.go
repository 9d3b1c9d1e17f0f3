package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is one typed key/value on a log entry.
type Field struct {
	Key   string
	Value interface{}
}

func (f Field) event(e *zerolog.Event) {
	switch v := f.Value.(type) {
	case string:
		e.Str(f.Key, v)
	case int:
		e.Int(f.Key, v)
	case int64:
		e.Int64(f.Key, v)
	case float64:
		e.Float64(f.Key, v)
	case bool:
		e.Bool(f.Key, v)
	case time.Duration:
		e.Dur(f.Key, v)
	case []string:
		e.Strs(f.Key, v)
	case error:
		e.AnErr(f.Key, v)
	default:
		e.Interface(f.Key, v)
	}
}

func (f Field) context(c zerolog.Context) zerolog.Context {
	switch v := f.Value.(type) {
	case string:
		return c.Str(f.Key, v)
	case int:
		return c.Int(f.Key, v)
	case error:
		return c.AnErr(f.Key, v)
	default:
		return c.Interface(f.Key, v)
	}
}

// plain is the JSON-safe value used by the collector.
func (f Field) plain() interface{} {
	switch v := f.Value.(type) {
	case error:
		if v == nil {
			return nil
		}
		return v.Error()
	case time.Duration:
		return v.Milliseconds()
	case []string:
		return strings.Join(v, ",")
	default:
		return v
	}
}

func String(key, value string) Field { return Field{key, value} }

func Strings(key string, value []string) Field { return Field{key, value} }

func Int(key string, value int) Field { return Field{key, value} }

func Int64(key string, value int64) Field { return Field{key, value} }

func Float64(key string, value float64) Field { return Field{key, value} }

func Bool(key string, value bool) Field { return Field{key, value} }

// Duration logs milliseconds.
func Duration(key string, value time.Duration) Field { return Field{key, value} }

func Any(key string, value interface{}) Field { return Field{key, value} }

// Error uses the key "error".
func Error(err error) Field { return Field{zerolog.ErrorFieldName, err} }
