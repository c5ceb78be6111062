package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderMock = "mock"
	ProviderHTTP = "http"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Advisor struct {
		DefaultProfile     string        `yaml:"default_profile"`
		DefaultInitialCash float64       `yaml:"default_initial_cash"`
		FallbackPrice      float64       `yaml:"fallback_price"`
		SignalTimeout      time.Duration `yaml:"signal_timeout"`
		HistoryLimit       int           `yaml:"history_limit"`
		Providers          string        `yaml:"providers"`
	} `yaml:"advisor"`
	Aggregation struct {
		ForecastWeight        float64 `yaml:"forecast_weight"`
		SentimentWeight       float64 `yaml:"sentiment_weight"`
		AnomalyPenaltyWeight  float64 `yaml:"anomaly_penalty_weight"`
		ReturnBuyThreshold    float64 `yaml:"return_buy_threshold"`
		ReturnSellThreshold   float64 `yaml:"return_sell_threshold"`
		SentimentPosThreshold float64 `yaml:"sentiment_pos_threshold"`
		SentimentNegThreshold float64 `yaml:"sentiment_neg_threshold"`
	} `yaml:"aggregation"`
	Analytics struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
		Retries    int           `yaml:"retries"`
	} `yaml:"analytics"`
	Kafka struct {
		Enabled        bool     `yaml:"enabled"`
		Brokers        []string `yaml:"brokers"`
		TradesTopic    string   `yaml:"trades_topic"`
		DecisionsTopic string   `yaml:"decisions_topic"`
		PricesTopic    string   `yaml:"prices_topic"`
		LogsTopic      string   `yaml:"logs_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		PoolSize int           `yaml:"pool_size"`
		Prefix   string        `yaml:"prefix"`
		PriceTTL time.Duration `yaml:"price_ttl"`
	} `yaml:"redis"`
	Finnhub struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MinInterval    time.Duration `yaml:"min_interval"`
	} `yaml:"finnhub"`
	Scheduler struct {
		Enabled  bool   `yaml:"enabled"`
		MarkCron string `yaml:"mark_cron"`
	} `yaml:"scheduler"`
	RateLimit struct {
		Capacity     float64 `yaml:"capacity"`
		RefillPerSec float64 `yaml:"refill_per_sec"`
	} `yaml:"ratelimit"`
}

// Default returns a development configuration: mock providers, in-memory
// price book, no Kafka, ClickHouse or Redis.
func Default() *Config {
	c := &Config{Environment: "development"}

	c.Server.Port = 8080
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 10 * time.Second
	c.Server.ShutdownTimeout = 15 * time.Second

	c.Log.Level = "info"
	c.Log.Format = "json"
	c.Log.Output = "stdout"

	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"

	c.Advisor.DefaultProfile = "moderate"
	c.Advisor.DefaultInitialCash = 10_000
	c.Advisor.FallbackPrice = 10.0
	c.Advisor.SignalTimeout = 5 * time.Second
	c.Advisor.Providers = ProviderMock

	c.Aggregation.ForecastWeight = 0.55
	c.Aggregation.SentimentWeight = 0.35
	c.Aggregation.AnomalyPenaltyWeight = 0.45
	c.Aggregation.ReturnBuyThreshold = 0.01
	c.Aggregation.ReturnSellThreshold = -0.01
	c.Aggregation.SentimentPosThreshold = 0.20
	c.Aggregation.SentimentNegThreshold = -0.20

	c.Analytics.Timeout = 3 * time.Second
	c.Analytics.Retries = 2

	c.Kafka.TradesTopic = "advisor.trades"
	c.Kafka.DecisionsTopic = "advisor.decisions"
	c.Kafka.PricesTopic = "market.prices"
	c.Kafka.LogsTopic = "advisor.logs"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "snappy"
	c.Kafka.Producer.MaxAttempts = 3
	c.Kafka.Producer.Linger = 50 * time.Millisecond
	c.Kafka.Producer.BatchSize = 100
	c.Kafka.Producer.WriteTimeout = 10 * time.Second
	c.Kafka.Consumer.GroupID = "advisor"
	c.Kafka.Consumer.Workers = 2
	c.Kafka.Consumer.BufferSize = 256
	c.Kafka.Consumer.RetryMax = 3
	c.Kafka.Consumer.BackoffMin = 50 * time.Millisecond
	c.Kafka.Consumer.BackoffMax = 2 * time.Second

	c.ClickHouse.Host = "localhost"
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "advisor"
	c.ClickHouse.User = "default"
	c.ClickHouse.DialTimeout = 5 * time.Second
	c.ClickHouse.ReadTimeout = 10 * time.Second
	c.ClickHouse.WriteTimeout = 10 * time.Second

	c.Redis.Addr = "localhost:6379"
	c.Redis.PoolSize = 10
	c.Redis.Prefix = "advisor"
	c.Redis.PriceTTL = 24 * time.Hour

	c.Finnhub.WebSocketURL = "wss://ws.finnhub.io"
	c.Finnhub.ReconnectDelay = 5 * time.Second
	c.Finnhub.PingInterval = 30 * time.Second

	c.Scheduler.MarkCron = "@every 1m"

	c.RateLimit.Capacity = 10
	c.RateLimit.RefillPerSec = 1
	return c
}

// Load reads a YAML configuration file over the defaults. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads a .env file if present, then the YAML file, then applies
// environment overrides before validating.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := read(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ADVISOR_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("ADVISOR_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ADVISOR_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ANALYTICS_URL"); v != "" {
		c.Analytics.ServiceURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TRADES_TOPIC"); v != "" {
		c.Kafka.TradesTopic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Finnhub.Symbols = splitList(v)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
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

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Advisor.Providers {
	case ProviderMock:
	case ProviderHTTP:
		if c.Analytics.ServiceURL == "" {
			return fmt.Errorf("analytics.service_url is required when advisor.providers is '%s'", ProviderHTTP)
		}
	default:
		return fmt.Errorf("advisor.providers must be '%s' or '%s', got '%s'", ProviderMock, ProviderHTTP, c.Advisor.Providers)
	}
	if !(c.Advisor.FallbackPrice > 0) {
		return fmt.Errorf("advisor.fallback_price must be > 0")
	}
	if !(c.Advisor.DefaultInitialCash > 0) {
		return fmt.Errorf("advisor.default_initial_cash must be > 0")
	}
	if c.Aggregation.ForecastWeight < 0 || c.Aggregation.SentimentWeight < 0 || c.Aggregation.AnomalyPenaltyWeight < 0 {
		return fmt.Errorf("aggregation weights must be non-negative")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Finnhub.Enabled {
		if c.Finnhub.APIKey == "" {
			return fmt.Errorf("finnhub.api_key is required")
		}
		if len(c.Finnhub.Symbols) == 0 {
			return errors.New("finnhub.symbols cannot be empty")
		}
	}
	return nil
}
