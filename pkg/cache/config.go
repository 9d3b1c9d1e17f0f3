package cache

import "time"

// RedisOption configures the Redis cache.
type RedisOption func(*RedisConfig)

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
}

func WithRedisHost(host string) RedisOption { return func(c *RedisConfig) { c.Host = host } }

func WithRedisPort(port int) RedisOption { return func(c *RedisConfig) { c.Port = port } }

func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) { c.Password = password }
}

func WithRedisDB(db int) RedisOption { return func(c *RedisConfig) { c.DB = db } }

// WithRedisPool sets connection pool limits. Zero values keep the defaults.
func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		if poolSize > 0 {
			c.PoolSize = poolSize
		}
		if minIdleConns > 0 {
			c.MinIdleConns = minIdleConns
		}
		if timeout > 0 {
			c.PoolTimeout = timeout
		}
	}
}

// WithRedisPrefix namespaces every key written by this cache.
func WithRedisPrefix(prefix string) RedisOption { return func(c *RedisConfig) { c.Prefix = prefix } }

// MemoryOption configures the in-process cache.
type MemoryOption func(*MemoryConfig)

type MemoryConfig struct {
	MaxEntries      int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
}

// WithMemoryMaxEntries bounds the entry count; the least recently used entry goes first.
func WithMemoryMaxEntries(n int) MemoryOption { return func(c *MemoryConfig) { c.MaxEntries = n } }

// WithMemoryDefaultTTL applies to Set calls with a non-positive TTL.
func WithMemoryDefaultTTL(d time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.DefaultTTL = d }
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.CleanupInterval = interval }
}

// LayeredOption configures the two-level cache.
type LayeredOption func(*LayeredConfig)

type LayeredConfig struct {
	MaxEntries int
	// L1TTL caps how long a value lives in process memory, so other
	// instances' writes become visible within that window.
	L1TTL time.Duration
}

func WithLayeredMaxEntries(n int) LayeredOption { return func(c *LayeredConfig) { c.MaxEntries = n } }

func WithLayeredL1TTL(d time.Duration) LayeredOption { return func(c *LayeredConfig) { c.L1TTL = d } }
