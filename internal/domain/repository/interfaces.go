package repository

import (
	"context"

	"FinAdvisor/internal/domain/models"
)

// PriceTick is a single observed trade price from a market feed.
type PriceTick struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
}

// PriceStream delivers live price ticks.
type PriceStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *PriceTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// EventPublisher emits portfolio events to downstream consumers.
type EventPublisher interface {
	PublishTrade(ctx context.Context, portfolioID string, t models.Trade) error
	PublishDecision(ctx context.Context, portfolioID string, d models.Decision) error
	Close() error
}

// Archive receives ledger records evicted from in-memory retention.
type Archive interface {
	ArchiveTrades(ctx context.Context, portfolioID string, trades []models.Trade) error
	ArchiveNav(ctx context.Context, portfolioID string, points []models.NavPoint) error
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordDecision(profile string, action string)
	RecordTrade(side string, symbol string)
	RecordTradeRejected(kind string)
	RecordNav(portfolioID string, nav float64)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishTrade(context.Context, string, models.Trade) error { return nil }

func (NopPublisher) PublishDecision(context.Context, string, models.Decision) error { return nil }

func (NopPublisher) Close() error { return nil }
