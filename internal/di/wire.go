//go:build wireinject
// +build wireinject

package di

import (
	"AstroPull/pkg/config"
	"AstroPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideClickHouseClient,
		ProvidePostgresClient,
		ProvideRedisCache,
		ProvideCache,

		// Repositories
		ProvideChartEventStore,
		ProvideBirthRecords,

		// Services
		ProvideEphemeris,
		ProvideExtractor,
		ProvideJobQueue,

		// Chart events
		ProvideEventProcessor,
		ProvideEventPipeline,
		ProvideKafkaConsumer,
		ProvideKafkaHandlers,

		// Use cases
		ProvideChartUseCase,
		ProvideBirthRecordUseCase,
		ProvideExtractionUseCase,
		ProvideChartStatsUseCase,

		// Application server
		ProvideRouter,
		ProvideApp,
	)
	return &server.App{}, nil
}
