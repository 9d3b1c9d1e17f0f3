// Package server runs the HTTP surface and the background workers of the
// app and tears them down in dependency order.
package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "AstroPull/internal/middleware"
	"AstroPull/internal/usecase"
	"AstroPull/pkg/config"
	xhttp "AstroPull/pkg/http"
	pkgkafka "AstroPull/pkg/kafka"
	applogger "AstroPull/pkg/logger"
	"AstroPull/pkg/queue"
)

// Closer releases an infrastructure client on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// Deps are the long-running parts of the application. Nil parts are skipped.
type Deps struct {
	Logger    *applogger.Logger
	Handler   xhttp.Handler
	Pipeline  *mid.EventPipeline
	Processor *usecase.ChartEventProcessor
	Consumer  *pkgkafka.Consumer
	Handlers  []pkgkafka.MessageHandler
	Jobs      *queue.RedisQueue
	Closers   []Closer // closed in order, after everything else stopped
}

type App struct {
	cfg     *config.Config
	deps    Deps
	http    *xhttp.Server
	started chan struct{}
}

func New(cfg *config.Config, deps Deps) *App {
	if deps.Logger == nil {
		deps.Logger = applogger.NewNop()
	}
	return &App{cfg: cfg, deps: deps, started: make(chan struct{})}
}

// Run blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext serves until ctx ends or the HTTP server fails, then shuts down.
func (a *App) RunContext(ctx context.Context) error {
	l := a.deps.Logger
	workCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(workCtx); err != nil {
		a.shutdown()
		return err
	}
	close(a.started)

	var runErr error
	select {
	case <-ctx.Done():
		l.Info("shutdown signal received")
	case err, ok := <-a.http.Err():
		if ok && err != nil {
			l.Error("http server failed", applogger.Error(err))
			runErr = err
		}
	}
	a.shutdown()
	return runErr
}

// Started is closed once every component is running.
func (a *App) Started() <-chan struct{} { return a.started }

// Addr is the HTTP listen address once started.
func (a *App) Addr() string {
	if a.http == nil {
		return ""
	}
	return a.http.Addr()
}

func (a *App) start(ctx context.Context) error {
	l := a.deps.Logger

	if p := a.deps.Pipeline; p != nil {
		p.Start(ctx)
		l.Info("chart event pipeline started", applogger.String("backend", a.cfg.Backend.Type))
	}

	if c := a.deps.Consumer; c != nil && len(a.deps.Handlers) > 0 {
		topics := make([]string, 0, len(a.deps.Handlers))
		for _, h := range a.deps.Handlers {
			c.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := c.Start(); err != nil {
			return errors.Join(errors.New("kafka consumer start"), err)
		}
		l.Info("kafka consumer subscribed", applogger.Strings("topics", topics))
	}

	if q := a.deps.Jobs; q != nil {
		if err := q.Start(); err != nil {
			return errors.Join(errors.New("job queue start"), err)
		}
		l.Info("extraction job queue started")
	}

	a.http = xhttp.NewServer(a.deps.Handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORSOrigins...),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithLogger(l),
	)
	return a.http.Start()
}

// shutdown stops intake first, then drains workers, then closes clients.
func (a *App) shutdown() {
	l := a.deps.Logger
	grace := a.cfg.Server.ShutdownTimeout
	if grace <= 0 {
		grace = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if a.http != nil {
		if err := a.http.Stop(ctx); err != nil {
			l.Error("http shutdown", applogger.Error(err))
		}
	}
	if a.deps.Jobs != nil {
		if err := a.deps.Jobs.Stop(ctx); err != nil {
			l.Warn("job queue stop", applogger.Error(err))
		}
	}
	if a.deps.Consumer != nil {
		if err := a.deps.Consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop", applogger.Error(err))
		}
	}
	if p := a.deps.Pipeline; p != nil {
		p.Stop()
		if n := p.Buffered(); n > 0 {
			l.Warn("chart events dropped on shutdown", applogger.Int("count", n))
		}
	}

	// Flush aggregated logs while the producer is still open.
	l.RemoveCollector()

	if a.deps.Processor != nil {
		a.deps.Processor.Close()
	}
	for _, c := range a.deps.Closers {
		if err := c.Close(); err != nil {
			l.Warn(c.Name+" close", applogger.Error(err))
		}
	}
	l.Info("shutdown complete")
}
