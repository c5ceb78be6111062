package providers

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domsvc "FinAdvisor/internal/domain/service"
	"FinAdvisor/pkg/cache"
	"FinAdvisor/pkg/logger"
)

func TestPriceBookFallbackAndMarks(t *testing.T) {
	ctx := context.Background()
	b := NewPriceBook()
	assert.Equal(t, DefaultFallbackPrice, b.Fallback())
	assert.Equal(t, DefaultFallbackPrice, b.LastPrice(ctx, "AAPL"))

	require.NoError(t, b.SetPrice(ctx, "AAPL", 187.3))
	assert.Equal(t, 187.3, b.LastPrice(ctx, "AAPL"))

	got := b.Prices(ctx, []string{"AAPL", "MSFT"})
	assert.Equal(t, map[string]float64{"AAPL": 187.3, "MSFT": DefaultFallbackPrice}, got)

	got["AAPL"] = 1
	assert.Equal(t, 187.3, b.LastPrice(ctx, "AAPL"), "Prices returns a fresh map")
	assert.Equal(t, map[string]float64{"AAPL": 187.3}, b.Snapshot())
}

func TestPriceBookRejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	b := NewPriceBook(WithFallbackPrice(25))
	assert.Equal(t, 25.0, b.Fallback())

	for _, p := range []float64{0, -3} {
		err := b.SetPrice(ctx, "AAPL", p)
		assert.ErrorIs(t, err, domsvc.ErrInvalidPrice)
	}
	assert.Empty(t, b.Snapshot())

	assert.Equal(t, DefaultFallbackPrice, NewPriceBook(WithFallbackPrice(-1)).Fallback())
}

func TestPriceBookSharesMarksThroughCache(t *testing.T) {
	ctx := context.Background()
	shared := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = shared.Close() })

	writer := NewPriceBook(WithPriceCache(shared, time.Hour, nil))
	reader := NewPriceBook(WithPriceCache(shared, time.Hour, nil))

	require.NoError(t, writer.SetPrice(ctx, "SFBT", 13.45))
	assert.Equal(t, 13.45, reader.LastPrice(ctx, "SFBT"))
	assert.Equal(t, DefaultFallbackPrice, reader.LastPrice(ctx, "BIAT"))
	assert.Empty(t, reader.Snapshot(), "cache reads are not copied into the local book")
}

func TestPriceBookPrefersSharedMark(t *testing.T) {
	ctx := context.Background()
	shared := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	t.Cleanup(func() { _ = shared.Close() })

	a := NewPriceBook(WithPriceCache(shared, time.Hour, nil))
	b := NewPriceBook(WithPriceCache(shared, time.Hour, nil))

	require.NoError(t, b.SetPrice(ctx, "AAPL", 90))
	require.NoError(t, a.SetPrice(ctx, "AAPL", 100))

	assert.Equal(t, 100.0, b.LastPrice(ctx, "AAPL"), "newer mark from another instance wins")
	assert.Equal(t, map[string]float64{"AAPL": 90}, b.Snapshot())

	require.NoError(t, b.SetPrice(ctx, "AAPL", 95))
	assert.Equal(t, map[string]float64{"AAPL": 95, "MSFT": DefaultFallbackPrice}, a.Prices(ctx, []string{"AAPL", "MSFT"}))
}

type brokenCache struct{ cache.Service }

func (brokenCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("redis unavailable")
}

func (brokenCache) MGet(context.Context, ...string) (map[string]string, error) {
	return nil, errors.New("redis unavailable")
}

func TestPriceBookCacheFailuresOnlyWarn(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	b := NewPriceBook(WithPriceCache(brokenCache{}, time.Hour, logger.NewWithWriter(&buf)))

	require.NoError(t, b.SetPrice(ctx, "AAPL", 100))
	assert.Equal(t, 100.0, b.LastPrice(ctx, "AAPL"))
	assert.Equal(t, DefaultFallbackPrice, b.LastPrice(ctx, "MSFT"))
	assert.Contains(t, buf.String(), "price cache write failed")
	assert.Contains(t, buf.String(), "price cache read failed")
}
