package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAdvisor/internal/domain/models"
)

type published struct {
	topic string
	key   string
	value interface{}
}

type fakeProducer struct {
	msgs   []published
	err    error
	closed bool
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic: topic, key: string(key), value: value})
	return nil
}

func (f *fakeProducer) Close() error { f.closed = true; return nil }

func fixedNow() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)) }

func TestPublishTrade(t *testing.T) {
	prod := &fakeProducer{}
	p := NewKafkaEventPublisher(prod, "advisor.trades", "advisor.decisions")
	p.now = fixedNow

	trade := models.Trade{ID: "t1", Symbol: "AAPL", Side: models.SideBuy, Qty: 2, Price: 100}
	require.NoError(t, p.PublishTrade(context.Background(), "p1", trade))
	require.Len(t, prod.msgs, 1)

	msg := prod.msgs[0]
	assert.Equal(t, "advisor.trades", msg.topic)
	assert.Equal(t, "AAPL", msg.key)
	ev, ok := msg.value.(TradeEvent)
	require.True(t, ok)
	assert.Equal(t, "trade", ev.Type)
	assert.Equal(t, "p1", ev.PortfolioID)
	assert.Equal(t, time.UTC, ev.EmittedAt.Location())
	assert.Equal(t, trade, ev.Trade)
}

func TestPublishDecision(t *testing.T) {
	prod := &fakeProducer{}
	p := NewKafkaEventPublisher(prod, "advisor.trades", "advisor.decisions")
	p.now = fixedNow

	d := models.Decision{Symbol: "MSFT", Action: models.ActionBuy}
	require.NoError(t, p.PublishDecision(context.Background(), "p1", d))
	require.Len(t, prod.msgs, 1)
	assert.Equal(t, "advisor.decisions", prod.msgs[0].topic)
	assert.Equal(t, "MSFT", prod.msgs[0].key)
	ev := prod.msgs[0].value.(DecisionEvent)
	assert.Equal(t, "decision", ev.Type)
	assert.Equal(t, d, ev.Decision)
}

func TestPublishDecisionWithoutTopic(t *testing.T) {
	prod := &fakeProducer{}
	p := NewKafkaEventPublisher(prod, "advisor.trades", "")
	require.NoError(t, p.PublishDecision(context.Background(), "p1", models.Decision{Symbol: "MSFT"}))
	assert.Empty(t, prod.msgs)
}

func TestPublisherPropagatesErrors(t *testing.T) {
	boom := errors.New("broker down")
	prod := &fakeProducer{err: boom}
	p := NewKafkaEventPublisher(prod, "advisor.trades", "advisor.decisions")
	assert.ErrorIs(t, p.PublishTrade(context.Background(), "p1", models.Trade{Symbol: "AAPL"}), boom)

	require.NoError(t, p.Close())
	assert.True(t, prod.closed)
}
