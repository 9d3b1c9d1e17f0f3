package clickhouse

import "time"

// Config describes one ClickHouse endpoint and its pool.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string

	HTTP        bool // HTTP protocol instead of native
	Compress    bool // LZ4 on the native protocol
	DialTimeout time.Duration
	ReadTimeout time.Duration

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Query settings sent with every statement.
	AsyncInsert  bool
	WaitForAsync bool
	MaxExecTime  time.Duration
}

type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Port:            9000,
		Database:        "default",
		User:            "default",
		Compress:        true,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     30 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// WithAddr sets host and port. A zero port keeps the protocol default.
func WithAddr(host string, port int) Option {
	return func(c *Config) {
		c.Host = host
		if port > 0 {
			c.Port = port
		}
	}
}

func WithDatabase(db string) Option {
	return func(c *Config) {
		if db != "" {
			c.Database = db
		}
	}
}

func WithCredentials(user, password string) Option {
	return func(c *Config) {
		if user != "" {
			c.User = user
		}
		c.Password = password
	}
}

func WithPool(maxOpen, maxIdle int) Option {
	return func(c *Config) {
		if maxOpen > 0 {
			c.MaxOpenConns = maxOpen
		}
		if maxIdle > 0 {
			c.MaxIdleConns = maxIdle
		}
	}
}

// WithTimeouts sets dial and read timeouts; zero keeps the default.
func WithTimeouts(dial, read time.Duration) Option {
	return func(c *Config) {
		if dial > 0 {
			c.DialTimeout = dial
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithHTTP switches to the HTTP protocol. Compression is native-only here.
func WithHTTP(on bool) Option {
	return func(c *Config) {
		c.HTTP = on
		if on {
			c.Compress = false
		}
	}
}

func WithAsyncInsert(on, wait bool) Option {
	return func(c *Config) {
		c.AsyncInsert = on
		c.WaitForAsync = on && wait
	}
}

func WithMaxExecutionTime(d time.Duration) Option {
	return func(c *Config) { c.MaxExecTime = d }
}
