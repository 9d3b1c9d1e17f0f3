package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads path, fills defaults and validates.
func Load(path string) (*Config, error) {
	c, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return c, c.Validate()
}

// LoadWithEnv is Load with environment overrides applied before validation.
func LoadWithEnv(path string) (*Config, error) {
	c, err := readFile(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	return c, c.Validate()
}

func readFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the tag defaults. It does not validate, so
// tools that need only a few sections can use partial files.
func Parse(b []byte) (*Config, error) {
	c := new(Config)
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

var envBindings = []struct {
	name string
	set  func(c *Config, v string)
}{
	{"BACKEND", func(c *Config, v string) { c.Backend.Type = v }},
	{"KAFKA_BROKERS", func(c *Config, v string) { c.Kafka.Brokers = splitList(v) }},
	{"KAFKA_TOPIC", func(c *Config, v string) { c.Kafka.Topic = v }},
	{"DATABASE_URL", func(c *Config, v string) { c.Postgres.DSN = v }},
	{"CLICKHOUSE_HOST", func(c *Config, v string) { c.ClickHouse.Host = v }},
	{"REDIS_HOST", func(c *Config, v string) { c.Redis.Host = v }},
	{"REDIS_PASSWORD", func(c *Config, v string) { c.Redis.Password = v }},
	{"EPHEMERIS_URL", func(c *Config, v string) { c.Ephemeris.ServiceURL = v }},
	{"LLM_API_KEY", func(c *Config, v string) { c.LLM.APIKey = v }},
	{"LLM_BASE_URL", func(c *Config, v string) { c.LLM.BaseURL = v }},
	{"CITY_TABLE_PATH", func(c *Config, v string) { c.Extraction.CityTablePath = v }},
	{"LOG_LEVEL", func(c *Config, v string) { c.Log.Level = v }},
}

// ApplyEnv overrides fields from non-empty variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	for _, b := range envBindings {
		if v := strings.TrimSpace(getenv(b.name)); v != "" {
			b.set(c, v)
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	})
	return v
}()

// Validate checks field tags, then the rules that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return fmt.Errorf("validate config: %w", err)
		}
		msgs := make([]string, 0, len(fields))
		for _, fe := range fields {
			msgs = append(msgs, fieldPath(fe)+": "+describe(fe))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return errors.New("invalid config: kafka.brokers cannot be empty when backend.type is kafka")
	}
	if c.Backend.Type == "clickhouse" && c.ClickHouse.Host == "" {
		return errors.New("invalid config: backend.type clickhouse needs clickhouse.host")
	}
	return nil
}

// fieldPath drops the root type name: "Config.backend.type" -> "backend.type".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of %s, got %q", strings.ReplaceAll(fe.Param(), " ", ", "), fmt.Sprint(fe.Value()))
	case "timezone":
		return fmt.Sprintf("unknown time zone %q", fmt.Sprint(fe.Value()))
	case "url":
		return "must be a URL"
	default:
		return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	}
}
