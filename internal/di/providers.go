package di

import (
	"context"
	"fmt"
	"time"

	"FinAdvisor/internal/domain/repository"
	domsvc "FinAdvisor/internal/domain/service"
	"FinAdvisor/internal/handler/api"
	internalrepo "FinAdvisor/internal/repository"
	"FinAdvisor/internal/scheduler"
	"FinAdvisor/internal/service/finnhub"
	svcmetrics "FinAdvisor/internal/service/metrics"
	"FinAdvisor/internal/service/ratelimit"
	"FinAdvisor/internal/services/portfolio"
	"FinAdvisor/internal/services/providers"
	"FinAdvisor/internal/usecase"
	"FinAdvisor/pkg/cache"
	pkgch "FinAdvisor/pkg/clickhouse"
	"FinAdvisor/pkg/config"
	xhttp "FinAdvisor/pkg/http"
	pkgkafka "FinAdvisor/pkg/kafka"
	applogger "FinAdvisor/pkg/logger"
	"FinAdvisor/pkg/metrics"
	"FinAdvisor/pkg/server"
)

// Optional infrastructure providers return nil when the section is disabled;
// consumers treat nil as "not configured".

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New(nil)
}

func ProvideRedisCache(cfg *config.Config, log *applogger.Logger) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	log.Info("redis price cache enabled", applogger.String("addr", cfg.Redis.Addr))
	return cache.NewLayeredCache(rc), nil
}

func ProvidePriceBook(cfg *config.Config, c cache.Service, log *applogger.Logger) *providers.PriceBook {
	opts := []providers.PriceBookOption{providers.WithFallbackPrice(cfg.Advisor.FallbackPrice)}
	if c != nil {
		opts = append(opts, providers.WithPriceCache(c, cfg.Redis.PriceTTL, log))
	}
	return providers.NewPriceBook(opts...)
}

func ProvideSignalProviders(cfg *config.Config) usecase.Providers {
	if cfg.Advisor.Providers == config.ProviderHTTP {
		return usecase.Providers{
			Forecast:  providers.NewHTTPForecastProvider(cfg),
			Sentiment: providers.NewHTTPSentimentProvider(cfg),
			Anomaly:   providers.NewHTTPAnomalyProvider(cfg),
		}
	}
	return usecase.Providers{
		Forecast:  providers.MockForecastProvider{},
		Sentiment: providers.MockSentimentProvider{},
		Anomaly:   providers.MockAnomalyProvider{},
	}
}

func ProvideSignalAggregator(cfg *config.Config) *usecase.SignalAggregator {
	a := cfg.Aggregation
	return usecase.NewSignalAggregator(
		usecase.WithWeights(usecase.AggregationWeights{
			Forecast:       a.ForecastWeight,
			Sentiment:      a.SentimentWeight,
			AnomalyPenalty: a.AnomalyPenaltyWeight,
		}),
		usecase.WithReturnThresholds(a.ReturnBuyThreshold, a.ReturnSellThreshold),
		usecase.WithSentimentThresholds(a.SentimentPosThreshold, a.SentimentNegThreshold),
	)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return repository.NopPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.TradesTopic, cfg.Kafka.DecisionsTopic)
}

// ProvideClickHouseClient connects and creates the archive schema, or
// returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, log *applogger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, false),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := internalrepo.InitArchiveSchema(ctx, client, log); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	log.Info("clickhouse archive ready", applogger.String("database", ch.Database))
	return client, nil
}

func ProvideArchiver(client *pkgch.Client, log *applogger.Logger) *internalrepo.AsyncArchiver {
	if client == nil {
		return nil
	}
	return internalrepo.NewAsyncArchiver(internalrepo.NewClickHouseArchive(client), log, 0)
}

func ProvideRegistry(cfg *config.Config, archiver *internalrepo.AsyncArchiver) *portfolio.Registry {
	opts := []portfolio.RegistryOption{portfolio.WithLedgerHistoryLimit(cfg.Advisor.HistoryLimit)}
	if archiver != nil {
		opts = append(opts, portfolio.WithArchiverFactory(archiver.For))
	}
	return portfolio.NewRegistry(opts...)
}

func ProvidePortfolioUseCase(
	registry *portfolio.Registry,
	market domsvc.MarketData,
	events repository.EventPublisher,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.PortfolioUseCase {
	return usecase.NewPortfolioUseCase(registry, market, events, m, log)
}

func ProvideAdvisor(
	cfg *config.Config,
	agg *usecase.SignalAggregator,
	provs usecase.Providers,
	market domsvc.MarketData,
	registry *portfolio.Registry,
	events repository.EventPublisher,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.Advisor {
	return usecase.NewAdvisor(agg, usecase.NewDecisionEngine(), usecase.NewExplainer(), provs, market, registry, log,
		usecase.WithSignalTimeout(cfg.Advisor.SignalTimeout),
		usecase.WithEventPublisher(events),
		usecase.WithAdvisorMetrics(m),
	)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

func ProvideHandler(
	cfg *config.Config,
	log *applogger.Logger,
	uc *usecase.PortfolioUseCase,
	adv *usecase.Advisor,
	limiter *ratelimit.Limiter,
) *api.AdvisorEchoHandler {
	return api.NewAdvisorEchoHandler(log, uc, adv, limiter, api.CreateDefaults{
		Profile:     cfg.Advisor.DefaultProfile,
		InitialCash: cfg.Advisor.DefaultInitialCash,
	})
}

func ProvideHTTPServer(cfg *config.Config, h *api.AdvisorEchoHandler, log *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, log,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

func ProvidePriceTicksHandler(cfg *config.Config, market domsvc.MarketData, m repository.Metrics) *usecase.PriceTicksHandler {
	return usecase.NewPriceTicksHandler(cfg.Kafka.PricesTopic, market, m)
}

// ProvideKafkaConsumer creates the price-tick consumer, or nil when Kafka is
// disabled or no prices topic is configured.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.PricesTopic == "" {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers),
		pkgkafka.WithConsumerBufferSize(kc.BufferSize),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvidePriceFeed creates the Finnhub price feed, or nil when disabled.
func ProvidePriceFeed(cfg *config.Config, ticks *usecase.PriceTicksHandler, m repository.Metrics, log *applogger.Logger) *usecase.PriceFeed {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	fh := cfg.Finnhub
	stream := finnhub.New(fh.APIKey, fh.WebSocketURL, fh.Symbols, fh.ReconnectDelay, fh.PingInterval, log)
	return usecase.NewPriceFeed(stream, ticks, m, log, fh.MinInterval)
}

// ProvideScheduler creates the mark-to-market scheduler, or nil when disabled.
func ProvideScheduler(cfg *config.Config, uc *usecase.PortfolioUseCase, log *applogger.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	s := scheduler.New(log)
	if err := s.AddJob(cfg.Scheduler.MarkCron, scheduler.NewMarkJob(uc)); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideApp assembles the lifecycle. Optional components that were not
// configured are skipped.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	ticks *usecase.PriceTicksHandler,
	feed *usecase.PriceFeed,
	sched *scheduler.Scheduler,
	producer *pkgkafka.Producer,
	events repository.EventPublisher,
	archiver *internalrepo.AsyncArchiver,
	priceCache cache.Service,
) *server.App {
	if producer != nil && cfg.Kafka.LogsTopic != "" {
		log.AttachDigest(&applogger.DigestConfig{
			Interval: 30 * time.Second,
			Topic:    cfg.Kafka.LogsTopic,
			Sink:     producer,
		})
	}

	opts := []server.Option{
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithConsumer(consumer, ticks),
		// closers run in reverse: archive drains first, the publisher closes the producer last
		server.WithCloser("events", events),
	}
	if feed != nil {
		opts = append(opts, server.WithRunner("price_feed", feed))
	}
	if sched != nil {
		opts = append(opts, server.WithRunner("scheduler", sched))
	}
	if archiver != nil {
		opts = append(opts, server.WithCloser("archive", archiver))
	}
	if priceCache != nil {
		opts = append(opts, server.WithCloser("price_cache", priceCache))
	}
	return server.New(log, httpServer, opts...)
}
