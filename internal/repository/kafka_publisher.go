package repository

import (
	"context"
	"time"

	"FinAdvisor/internal/domain/models"
	domrepo "FinAdvisor/internal/domain/repository"
	pkgkafka "FinAdvisor/pkg/kafka"
)

// Producer is the subset of pkg/kafka.Producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// TradeEvent is the JSON payload written to the trades topic.
type TradeEvent struct {
	Type        string       `json:"type"`
	PortfolioID string       `json:"portfolio_id"`
	EmittedAt   time.Time    `json:"emitted_at"`
	Trade       models.Trade `json:"trade"`
}

// DecisionEvent is the JSON payload written to the decisions topic.
type DecisionEvent struct {
	Type        string          `json:"type"`
	PortfolioID string          `json:"portfolio_id"`
	EmittedAt   time.Time       `json:"emitted_at"`
	Decision    models.Decision `json:"decision"`
}

// KafkaEventPublisher publishes trades and decisions keyed by symbol so that
// every event of a symbol stays on one partition.
type KafkaEventPublisher struct {
	producer       Producer
	tradesTopic    string
	decisionsTopic string
	now            func() time.Time
}

func NewKafkaEventPublisher(producer Producer, tradesTopic, decisionsTopic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer:       producer,
		tradesTopic:    tradesTopic,
		decisionsTopic: decisionsTopic,
		now:            time.Now,
	}
}

func (p *KafkaEventPublisher) PublishTrade(ctx context.Context, portfolioID string, t models.Trade) error {
	return p.producer.Publish(ctx, p.tradesTopic, []byte(t.Symbol), TradeEvent{
		Type:        "trade",
		PortfolioID: portfolioID,
		EmittedAt:   p.now().UTC(),
		Trade:       t,
	})
}

// PublishDecision is a no-op when no decisions topic is configured.
func (p *KafkaEventPublisher) PublishDecision(ctx context.Context, portfolioID string, d models.Decision) error {
	if p.decisionsTopic == "" {
		return nil
	}
	return p.producer.Publish(ctx, p.decisionsTopic, []byte(d.Symbol), DecisionEvent{
		Type:        "decision",
		PortfolioID: portfolioID,
		EmittedAt:   p.now().UTC(),
		Decision:    d,
	})
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ Producer               = (*pkgkafka.Producer)(nil)
)
