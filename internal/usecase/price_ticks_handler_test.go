package usecase

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domrepo "FinAdvisor/internal/domain/repository"
	domsvc "FinAdvisor/internal/domain/service"
	"FinAdvisor/internal/services/providers"
)

func TestPriceTicksHandlerMarksPrices(t *testing.T) {
	ctx := context.Background()
	book := providers.NewPriceBook()
	m := newRecordingMetrics()
	h := NewPriceTicksHandler("market.prices", book, m)
	assert.Equal(t, "market.prices", h.Topic())

	ms := time.Now().UnixMilli()
	require.NoError(t, h.Handle(ctx, []byte(`{"symbol":"AAPL","t":`+strconv.FormatInt(ms, 10)+`,"c":187.5,"v":120}`)))
	assert.Equal(t, 187.5, book.LastPrice(ctx, "AAPL"))
	assert.Equal(t, 187.5, m.prices["AAPL"])

	require.NoError(t, h.HandleTick(ctx, &domrepo.PriceTick{Symbol: "MSFT", Price: 410}))
	assert.Equal(t, 410.0, book.LastPrice(ctx, "MSFT"))
	assert.NoError(t, h.HandleTick(ctx, nil))
}

func TestPriceTicksHandlerRejectsBadTicks(t *testing.T) {
	ctx := context.Background()
	book := providers.NewPriceBook()
	m := newRecordingMetrics()
	h := NewPriceTicksHandler("market.prices", book, m)

	assert.Error(t, h.Handle(ctx, []byte(`{not json`)))
	assert.Error(t, h.Handle(ctx, []byte(`{"c":10}`)))
	err := h.Handle(ctx, []byte(`{"symbol":"AAPL","c":0}`))
	assert.ErrorIs(t, err, domsvc.ErrInvalidPrice)

	assert.Equal(t, []string{"ticks_unmarshal", "ticks_invalid", "ticks_price"}, m.errs)
	assert.Empty(t, book.Snapshot())
}
