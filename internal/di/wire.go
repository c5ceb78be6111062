//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	domsvc "FinAdvisor/internal/domain/service"
	"FinAdvisor/internal/services/providers"
	"FinAdvisor/pkg/config"
	"FinAdvisor/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,

		// Repositories
		ProvideEventPublisher,
		ProvideArchiver,

		// Market data and signals
		ProvidePriceBook,
		wire.Bind(new(domsvc.MarketData), new(*providers.PriceBook)),
		ProvideSignalProviders,
		ProvideSignalAggregator,

		// Use cases
		ProvideRegistry,
		ProvidePortfolioUseCase,
		ProvideAdvisor,
		ProvidePriceTicksHandler,
		ProvidePriceFeed,
		ProvideScheduler,

		// Transport
		ProvideRateLimiter,
		ProvideHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
