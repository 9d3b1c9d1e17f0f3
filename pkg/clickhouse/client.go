// Package clickhouse opens a database/sql pool on clickhouse-go.
package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Client owns a ClickHouse connection pool.
type Client struct {
	db  *sql.DB
	cfg Config
}

// NewClient opens the pool and pings it.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Host == "" {
		return nil, errors.New("clickhouse: host is required")
	}

	db := ch.OpenDB(options(cfg))
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping %s: %w", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), err)
	}
	return &Client{db: db, cfg: cfg}, nil
}

func options(cfg Config) *ch.Options {
	o := &ch.Options{
		Addr:            []string{net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))},
		Auth:            ch.Auth{Database: cfg.Database, Username: cfg.User, Password: cfg.Password},
		Protocol:        ch.Native,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		Settings:        settings(cfg),
	}
	if cfg.HTTP {
		o.Protocol = ch.HTTP
	}
	if cfg.Compress {
		o.Compression = &ch.Compression{Method: ch.CompressionLZ4}
	}
	return o
}

func settings(cfg Config) ch.Settings {
	s := ch.Settings{}
	if cfg.MaxExecTime > 0 {
		s["max_execution_time"] = int(cfg.MaxExecTime / time.Second)
	}
	if cfg.AsyncInsert {
		s["async_insert"] = 1
		if cfg.WaitForAsync {
			s["wait_for_async_insert"] = 1
		}
	}
	return s
}

// DB exposes the pool.
func (c *Client) DB() *sql.DB { return c.db }

// Database is the configured default database.
func (c *Client) Database() string { return c.cfg.Database }

func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// InitSchema runs idempotent DDL in order, stopping at the first failure.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
