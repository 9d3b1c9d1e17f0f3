package di

import (
	"context"
	"fmt"
	"time"

	"AstroPull/internal/domain/repository"
	"AstroPull/internal/domain/service"
	"AstroPull/internal/handler/api"
	mid "AstroPull/internal/middleware"
	internalrepo "AstroPull/internal/repository"
	"AstroPull/internal/service/ratelimit"
	"AstroPull/internal/services/ephemeris"
	"AstroPull/internal/services/extraction"
	"AstroPull/internal/usecase"
	"AstroPull/pkg/cache"
	pkgch "AstroPull/pkg/clickhouse"
	"AstroPull/pkg/config"
	pkgkafka "AstroPull/pkg/kafka"
	applogger "AstroPull/pkg/logger"
	"AstroPull/pkg/metrics"
	pkgpg "AstroPull/pkg/postgres"
	"AstroPull/pkg/queue"
	"AstroPull/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer. Nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the app logger and, when a collect topic is set,
// ships aggregated error logs through the Kafka producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Log.CollectTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			FlushEvery: cfg.Log.CollectEvery,
			MaxKeys:    cfg.Log.CollectMaxKeys,
			Topic:      cfg.Log.CollectTopic,
			Publisher:  producer,
		})
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client. Nil when no host is configured.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ClickHouse.Host == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideChartEventStore creates the ClickHouse chart event store and its tables.
func ProvideChartEventStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) (*internalrepo.CHChartEvents, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHChartEvents(ch, cfg.ClickHouse.Database, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvidePostgresClient opens the birth record database and ensures its table.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := pkgpg.NewClient(ctx,
		pkgpg.WithDSN(cfg.Postgres.DSN),
		pkgpg.WithPool(cfg.Postgres.MaxConns, cfg.Postgres.MinConns, cfg.Postgres.MaxConnLifetime),
		pkgpg.WithConnectTimeout(cfg.Postgres.ConnectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.BirthRecordSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache connects to Redis. Nil when redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache picks layered, redis or in-process caching.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	switch {
	case rc == nil:
		return cache.NewMemoryCache()
	case cfg.Redis.Layered:
		return cache.NewLayeredCache(rc)
	default:
		return rc
	}
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideEventProcessor routes chart events to the configured backend.
func ProvideEventProcessor(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	store *internalrepo.CHChartEvents,
	m repository.Metrics,
) *usecase.ChartEventProcessor {
	var (
		pub repository.Publisher
		st  repository.Storage
	)
	if producer != nil {
		pub = internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
	}
	if store != nil {
		st = store
	}
	return usecase.NewChartEventProcessor(pub, st, m, cfg.Backend.Type)
}

// ProvideEventPipeline buffers chart events in front of the processor.
func ProvideEventPipeline(proc *usecase.ChartEventProcessor, m repository.Metrics, cfg *config.Config) *mid.EventPipeline {
	return mid.NewEventPipeline(proc, m,
		mid.WithMaxRPS(cfg.Backend.MaxRPS),
		mid.WithBufferSize(cfg.Backend.BufferSize),
		mid.WithBatch(cfg.Backend.BatchSize, cfg.Backend.BatchTimeout),
	)
}

// ProvideEphemeris creates the HTTP ephemeris provider with a Subject cache.
func ProvideEphemeris(cfg *config.Config, c cache.Service, l *applogger.Logger) service.EphemerisProvider {
	return ephemeris.NewCachedProvider(ephemeris.NewHTTPProvider(cfg), c, cfg.Ephemeris.CacheTTL, l)
}

// ProvideChartUseCase creates the chart usecase emitting into the event pipeline.
func ProvideChartUseCase(
	provider service.EphemerisProvider,
	pipe *mid.EventPipeline,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.ChartUseCase {
	var sink usecase.EventSink
	if cfg.Backend.Type != usecase.BackendNone {
		sink = pipe
	}
	return usecase.NewChartUseCase(provider, sink, m, l, usecase.TodayLocation{
		Name:  cfg.Today.Name,
		City:  cfg.Today.City,
		Lat:   cfg.Today.Lat,
		Lng:   cfg.Today.Lng,
		TZStr: cfg.Today.TZStr,
	})
}

// ProvideBirthRecords creates the Postgres birth record repository.
func ProvideBirthRecords(pg *pkgpg.Client) repository.BirthRecordRepository {
	return internalrepo.NewPGBirthRecords(pg)
}

// ProvideBirthRecordUseCase creates the birth record usecase.
func ProvideBirthRecordUseCase(repo repository.BirthRecordRepository, charts *usecase.ChartUseCase) *usecase.BirthRecordUseCase {
	return usecase.NewBirthRecordUseCase(repo, charts)
}

// ProvideExtractor loads the city table and builds the LLM extractor.
func ProvideExtractor(cfg *config.Config, l *applogger.Logger) (service.FieldExtractor, error) {
	var cities *extraction.CityTable
	if cfg.Extraction.CityTablePath != "" {
		t, err := extraction.LoadCityTable(cfg.Extraction.CityTablePath, cfg.Extraction.CitySheet)
		if err != nil {
			return nil, fmt.Errorf("city table: %w", err)
		}
		cities = t
		l.Info("city table loaded", applogger.String("path", cfg.Extraction.CityTablePath), applogger.Int("cities", t.Len()))
	} else {
		l.Warn("no city table configured; extraction requests will fail")
	}
	return extraction.NewLLMExtractor(extraction.NewChatClient(cfg), cities, cfg.Extraction.DefaultTZ, l), nil
}

// ProvideJobQueue creates the Redis job queue. Nil without Redis.
func ProvideJobQueue(cfg *config.Config, rc *cache.RedisCache, l *applogger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Extraction.Workers,
		QueueSize:  100,
		RetryLimit: cfg.Extraction.RetryLimit,
		RetryDelay: cfg.Extraction.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer)
}

// ProvideExtractionUseCase creates the extraction usecase and registers its queue job.
func ProvideExtractionUseCase(
	extractor service.FieldExtractor,
	repo repository.BirthRecordRepository,
	c cache.Service,
	rc *cache.RedisCache,
	rq *queue.RedisQueue,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ExtractionUseCase {
	var q queue.QueueService
	if rq != nil {
		q = rq
	}
	// Job status is written by workers, so skip the local layer when Redis is up.
	jobs := c
	if rc != nil {
		jobs = rc
	}
	uc := usecase.NewExtractionUseCase(extractor, repo, jobs, q, cfg.Extraction.JobTTL, l)
	if rq != nil {
		rq.RegisterJob(usecase.NewBirthExtractionJob(uc))
	}
	return uc
}

// ProvideChartStatsUseCase serves aggregates when ClickHouse is configured.
func ProvideChartStatsUseCase(store *internalrepo.CHChartEvents) *usecase.ChartStatsUseCase {
	if store == nil {
		return usecase.NewChartStatsUseCase(nil)
	}
	return usecase.NewChartStatsUseCase(store)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML. Nil unless enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled || len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerStartOffset(cfg.Kafka.Consumer.StartOffset),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithLogger(l)
	consumer.WithConsumerHook(pkgkafka.LogHook{L: l})
	return consumer, nil
}

// ProvideKafkaHandlers writes consumed chart events into ClickHouse.
func ProvideKafkaHandlers(cfg *config.Config, store *internalrepo.CHChartEvents, m repository.Metrics) []pkgkafka.MessageHandler {
	if store == nil {
		return nil
	}
	return []pkgkafka.MessageHandler{usecase.NewKafkaChartEventsHandler(cfg.Kafka.Topic, store, m)}
}

// ProvideRouter assembles the HTTP surface.
func ProvideRouter(
	cfg *config.Config,
	l *applogger.Logger,
	charts *usecase.ChartUseCase,
	records *usecase.BirthRecordUseCase,
	extract *usecase.ExtractionUseCase,
	stats *usecase.ChartStatsUseCase,
	provider service.EphemerisProvider,
	pg *pkgpg.Client,
	store *internalrepo.CHChartEvents,
	rc *cache.RedisCache,
) *api.Router {
	checks := []api.Check{
		{Name: "postgres", Probe: pg.Health},
		{Name: "ephemeris", Probe: provider.Health},
	}
	if store != nil {
		checks = append(checks, api.Check{Name: "clickhouse", Probe: store.Health})
	}
	if rc != nil {
		checks = append(checks, api.Check{Name: "redis", Probe: rc.Ping})
	}
	return api.NewRouter(api.RouterDeps{
		Logger:     l,
		Charts:     charts,
		Records:    records,
		Extraction: extract,
		Stats:      stats,
		Limiter:    ratelimit.New(cfg.RateLimit.RefillPerSec, cfg.RateLimit.Capacity),
		RateLimit: api.RateLimit{
			Capacity:     cfg.RateLimit.Capacity,
			RefillPerSec: cfg.RateLimit.RefillPerSec,
		},
		TodayInterval: cfg.Today.Interval,
		Checks:        checks,
	})
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	router *api.Router,
	pipe *mid.EventPipeline,
	proc *usecase.ChartEventProcessor,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	jobs *queue.RedisQueue,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	pg *pkgpg.Client,
	rc *cache.RedisCache,
	c cache.Service,
) *server.App {
	var closers []server.Closer
	if mc, ok := c.(*cache.MemoryCache); ok {
		closers = append(closers, server.Closer{Name: "memory cache", Close: mc.Close})
	}
	if lc, ok := c.(*cache.LayeredCache); ok {
		closers = append(closers, server.Closer{Name: "layered cache", Close: lc.Close})
	} else if rc != nil {
		closers = append(closers, server.Closer{Name: "redis", Close: rc.Close})
	}
	if producer != nil {
		closers = append(closers, server.Closer{Name: "kafka producer", Close: producer.Close})
	}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	closers = append(closers, server.Closer{Name: "postgres", Close: pg.Close})

	return server.New(cfg, server.Deps{
		Logger:    l,
		Handler:   router,
		Pipeline:  pipe,
		Processor: proc,
		Consumer:  consumer,
		Handlers:  handlers,
		Jobs:      jobs,
		Closers:   closers,
	})
}
