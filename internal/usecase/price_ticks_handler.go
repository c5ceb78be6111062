package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domrepo "FinAdvisor/internal/domain/repository"
	domsvc "FinAdvisor/internal/domain/service"
	pkgkafka "FinAdvisor/pkg/kafka"
)

// PriceTicksHandler consumes price ticks from Kafka and marks them into the price book.
type PriceTicksHandler struct {
	topic   string
	market  domsvc.MarketData
	metrics domrepo.Metrics
}

func NewPriceTicksHandler(topic string, market domsvc.MarketData, metrics domrepo.Metrics) *PriceTicksHandler {
	return &PriceTicksHandler{topic: topic, market: market, metrics: metrics}
}

func (h *PriceTicksHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, t, c, v}; t may be seconds or milliseconds
func (h *PriceTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		C      float64 `json:"c"`
		V      float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("ticks_unmarshal")
		return err
	}
	if m.Symbol == "" {
		h.metrics.RecordError("ticks_invalid")
		return fmt.Errorf("tick without symbol")
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	if m.T > 0 {
		h.metrics.RecordLatency("tick_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())
	}
	return h.apply(ctx, domrepo.PriceTick{Symbol: m.Symbol, Timestamp: m.T, Price: m.C, Volume: m.V})
}

// HandleTick applies a tick received from a live stream.
func (h *PriceTicksHandler) HandleTick(ctx context.Context, t *domrepo.PriceTick) error {
	if t == nil {
		return nil
	}
	return h.apply(ctx, *t)
}

func (h *PriceTicksHandler) apply(ctx context.Context, t domrepo.PriceTick) error {
	if err := h.market.SetPrice(ctx, t.Symbol, t.Price); err != nil {
		h.metrics.RecordError("ticks_price")
		return fmt.Errorf("tick %s: %w", t.Symbol, err)
	}
	h.metrics.RecordLastPrice(t.Symbol, t.Price)
	return nil
}

var _ pkgkafka.MessageHandler = (*PriceTicksHandler)(nil)
