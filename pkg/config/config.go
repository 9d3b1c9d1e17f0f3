// Package config loads the YAML configuration, fills defaults from struct
// tags, applies environment overrides and validates the result.
package config

import "time"

type Config struct {
	Environment string `yaml:"environment" validate:"required"`

	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`

	Log struct {
		Level          string        `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format         string        `yaml:"format" default:"console" validate:"oneof=json console"`
		Output         string        `yaml:"output" default:"stdout"`
		CollectTopic   string        `yaml:"collect_topic"`
		CollectEvery   time.Duration `yaml:"collect_every" default:"30s"`
		CollectMaxKeys int           `yaml:"collect_max_keys" default:"100"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	// Backend picks where chart events go: kafka, clickhouse or none.
	Backend struct {
		Type         string        `yaml:"type" default:"none" validate:"oneof=kafka clickhouse none"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
		BufferSize   int           `yaml:"buffer_size" default:"1000"`
		MaxRPS       int           `yaml:"max_rps"`
	} `yaml:"backend"`

	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"astro.chart-events"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled     bool          `yaml:"enabled"`
			GroupID     string        `yaml:"group_id" default:"astro-chart-events"`
			StartOffset string        `yaml:"start_offset" default:"latest" validate:"oneof=latest earliest"`
			Workers     int           `yaml:"workers" default:"4"`
			BufferSize  int           `yaml:"buffer_size" default:"256"`
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic    string        `yaml:"dlq_topic"`
			MinBytes    int           `yaml:"min_bytes"`
			MaxBytes    int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"astro"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`

	Postgres struct {
		DSN             string        `yaml:"dsn" validate:"required"`
		MaxConns        int32         `yaml:"max_conns" default:"10"`
		MinConns        int32         `yaml:"min_conns"`
		MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" default:"30m"`
		ConnectTimeout  time.Duration `yaml:"connect_timeout" default:"5s"`
	} `yaml:"postgres"`

	Redis struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		Prefix       string        `yaml:"prefix" default:"astro"`
		Layered      bool          `yaml:"layered"`
		PoolSize     int           `yaml:"pool_size"`
		MinIdleConns int           `yaml:"min_idle_conns"`
		PoolTimeout  time.Duration `yaml:"pool_timeout"`
	} `yaml:"redis"`

	Ephemeris struct {
		ServiceURL string        `yaml:"service_url" validate:"required,url"`
		Timeout    time.Duration `yaml:"timeout" default:"10s"`
		Retries    int           `yaml:"retries" default:"2"`
		CacheTTL   time.Duration `yaml:"cache_ttl" default:"24h"`
	} `yaml:"ephemeris"`

	LLM struct {
		BaseURL     string        `yaml:"base_url" default:"https://api.openai.com/v1"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model" default:"gpt-4o-mini"`
		Temperature float64       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"llm"`

	Extraction struct {
		CityTablePath string        `yaml:"city_table_path"`
		CitySheet     string        `yaml:"city_sheet"`
		DefaultTZ     string        `yaml:"default_tz" default:"Asia/Tehran" validate:"timezone"`
		Workers       int           `yaml:"workers" default:"2"`
		RetryLimit    int           `yaml:"retry_limit" default:"3"`
		RetryDelay    time.Duration `yaml:"retry_delay" default:"10s"`
		JobTTL        time.Duration `yaml:"job_ttl" default:"24h"`
	} `yaml:"extraction"`

	// Today is the fixed location of the today chart and stream.
	Today struct {
		Name     string        `yaml:"name" default:"New York"`
		City     string        `yaml:"city" default:"New York"`
		Lat      float64       `yaml:"lat" default:"40.7128" validate:"gte=-90,lte=90"`
		Lng      float64       `yaml:"lng" default:"-74.006" validate:"gte=-180,lte=180"`
		TZStr    string        `yaml:"tz_str" default:"America/New_York" validate:"timezone"`
		Interval time.Duration `yaml:"interval" default:"1m"`
	} `yaml:"today"`

	RateLimit struct {
		Capacity     float64 `yaml:"capacity" default:"5" validate:"gte=0"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"1" validate:"gte=0"`
	} `yaml:"rate_limit"`
}
