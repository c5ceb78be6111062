package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	domsvc "FinAdvisor/internal/domain/service"
	"FinAdvisor/pkg/cache"
	"FinAdvisor/pkg/logger"
)

const DefaultFallbackPrice = 10.0

const priceKeyPrefix = "price"

type PriceBookOption func(*PriceBook)

// WithFallbackPrice sets the price reported for unknown symbols.
func WithFallbackPrice(p float64) PriceBookOption {
	return func(b *PriceBook) {
		if p > 0 {
			b.fallback = p
		}
	}
}

// WithPriceCache mirrors every mark into c so other instances share prices.
// Reads consult c first so the newest mark from any instance wins; the local
// book answers when c misses or fails.
func WithPriceCache(c cache.Service, ttl time.Duration, log *logger.Logger) PriceBookOption {
	return func(b *PriceBook) {
		b.cache = c
		b.ttl = ttl
		b.log = log
	}
}

// PriceBook is the market data provider: last marks per symbol with a fixed
// fallback for symbols never marked.
type PriceBook struct {
	mu       sync.RWMutex
	prices   map[string]float64
	fallback float64

	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

func NewPriceBook(opts ...PriceBookOption) *PriceBook {
	b := &PriceBook{
		prices:   make(map[string]float64),
		fallback: DefaultFallbackPrice,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *PriceBook) Fallback() float64 { return b.fallback }

// SetPrice records a mark. Non-positive prices are rejected.
func (b *PriceBook) SetPrice(ctx context.Context, symbol string, price float64) error {
	if !(price > 0) {
		return fmt.Errorf("price %s=%v: %w", symbol, price, domsvc.ErrInvalidPrice)
	}
	b.mu.Lock()
	b.prices[symbol] = price
	b.mu.Unlock()

	if b.cache != nil {
		if err := b.cache.Set(ctx, cache.GenerateKey(priceKeyPrefix, symbol), price, b.ttl); err != nil {
			b.warn("price cache write failed", symbol, err)
		}
	}
	return nil
}

// LastPrice returns the last mark for symbol or the fallback price.
func (b *PriceBook) LastPrice(ctx context.Context, symbol string) float64 {
	return b.Prices(ctx, []string{symbol})[symbol]
}

// Prices returns a fresh map with a price for every requested symbol.
func (b *PriceBook) Prices(ctx context.Context, symbols []string) map[string]float64 {
	out := make(map[string]float64, len(symbols))

	if b.cache != nil && len(symbols) > 0 {
		keys := make([]string, len(symbols))
		for i, s := range symbols {
			keys[i] = cache.GenerateKey(priceKeyPrefix, s)
		}
		cached, err := cache.MGetTyped[float64](ctx, b.cache, keys...)
		if err != nil {
			b.warn("price cache read failed", "", err)
		}
		for i, s := range symbols {
			if p, ok := cached[keys[i]]; ok && p > 0 {
				out[s] = p
			}
		}
	}

	b.mu.RLock()
	for _, s := range symbols {
		if _, ok := out[s]; ok {
			continue
		}
		if p, ok := b.prices[s]; ok {
			out[s] = p
		} else {
			out[s] = b.fallback
		}
	}
	b.mu.RUnlock()
	return out
}

// Snapshot copies the locally known marks.
func (b *PriceBook) Snapshot() map[string]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]float64, len(b.prices))
	for s, p := range b.prices {
		out[s] = p
	}
	return out
}

func (b *PriceBook) warn(msg, symbol string, err error) {
	if b.log == nil {
		return
	}
	b.log.Warn(msg, logger.String("symbol", symbol), logger.Error(err))
}

var _ domsvc.MarketData = (*PriceBook)(nil)
