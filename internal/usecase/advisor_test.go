package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAdvisor/internal/domain/models"
	"FinAdvisor/internal/services/portfolio"
)

func TestRecommendKeepsRequestOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(bullishProviders())
	_, err := f.portfolio.Create(ctx, "p1", "moderate", 10_000)
	require.NoError(t, err)
	require.NoError(t, f.market.SetPrice(ctx, "AAPL", 100))

	set, err := f.advisor.Recommend(ctx, "p1", []string{"MSFT", " ", "AAPL", "BIAT"}, testAsOf)
	require.NoError(t, err)

	assert.Equal(t, "p1", set.PortfolioID)
	assert.Equal(t, models.ProfileModerate, set.Profile)
	assert.Equal(t, testAsOf, set.AsOf)
	assert.Nil(t, set.Errors)
	require.Len(t, set.Items, 3)
	for i, sym := range []string{"MSFT", "AAPL", "BIAT"} {
		it := set.Items[i]
		assert.Equal(t, sym, it.Decision.Symbol)
		assert.Equal(t, sym, it.Signal.Symbol)
		assert.Equal(t, models.ActionBuy, it.Decision.Action, sym)
		assert.InDelta(t, it.Decision.OrderValue, it.Decision.OrderQty*it.Context.LastPrice, 1e-9)
	}
	assert.Equal(t, 100.0, set.Items[1].Context.LastPrice)
	assert.Equal(t, f.market.Fallback(), set.Items[0].Context.LastPrice)
	assert.Equal(t, 100.0, set.Items[1].Signal.Features.LastPrice)

	assert.Equal(t, 3, f.metrics.decisions["moderate/BUY"])
	assert.Len(t, f.events.decisions, 3)
}

func TestRecommendSurvivesProviderFailures(t *testing.T) {
	ctx := context.Background()
	provs := bullishProviders()
	provs.Sentiment = stubSentiment{err: errUpstream}
	provs.Anomaly = stubAnomaly{err: errUpstream}
	f := newFixture(provs)
	_, err := f.portfolio.Create(ctx, "p1", "aggressive", 10_000)
	require.NoError(t, err)

	set, err := f.advisor.Recommend(ctx, "p1", []string{"AAPL"}, time.Time{})
	require.NoError(t, err)
	require.Len(t, set.Items, 1)
	assert.False(t, set.AsOf.IsZero())

	sig := set.Items[0].Signal
	assert.True(t, sig.HasReason(models.ReasonSentimentMissing))
	assert.True(t, sig.HasReason(models.ReasonAnomalyNone))
	require.Contains(t, set.Errors, "AAPL")
	assert.Equal(t, errUpstream.Error(), set.Errors["AAPL"]["sentiment"])
	assert.Contains(t, set.Errors["AAPL"], "anomalies")
	assert.Contains(t, f.metrics.errs, "provider_sentiment")
}

func TestRecommendRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(bullishProviders())

	_, err := f.advisor.Recommend(ctx, "missing", []string{"AAPL"}, testAsOf)
	assert.ErrorIs(t, err, portfolio.ErrPortfolioNotFound)

	_, err = f.portfolio.Create(ctx, "p1", "moderate", 10_000)
	require.NoError(t, err)
	_, err = f.advisor.Recommend(ctx, "p1", []string{"", "  "}, testAsOf)
	assert.ErrorIs(t, err, ErrNoSymbols)
	assert.True(t, IsValidationError(err))
}

func TestRecommendBoundsSlowProviders(t *testing.T) {
	ctx := context.Background()
	provs := bullishProviders()
	provs.Forecast = blockingForecast{}
	f := newFixture(provs, WithSignalTimeout(20*time.Millisecond))
	_, err := f.portfolio.Create(ctx, "p1", "moderate", 10_000)
	require.NoError(t, err)

	start := time.Now()
	set, err := f.advisor.Recommend(ctx, "p1", []string{"AAPL"}, testAsOf)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, set.Items[0].Signal.HasReason(models.ReasonForecastMissing))
	assert.Contains(t, set.Errors["AAPL"], "forecast")
}

type blockingForecast struct{}

func (blockingForecast) Forecast(ctx context.Context, _ string, _ time.Time) (*models.ForecastSignal, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRecommendDoesNotMutateLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(bullishProviders())
	_, err := f.portfolio.Create(ctx, "p1", "moderate", 10_000)
	require.NoError(t, err)

	_, err = f.advisor.Recommend(ctx, "p1", []string{"AAPL"}, testAsOf)
	require.NoError(t, err)

	trades, err := f.portfolio.Trades(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, trades)
	view, err := f.portfolio.View(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10_000.0, view.Snapshot.Cash)
}

func TestExplainRendersRequestedLanguage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(bullishProviders(), WithAdvisorClock(func() time.Time { return testAsOf }))
	_, err := f.portfolio.Create(ctx, "p1", "moderate", 10_000)
	require.NoError(t, err)

	fr, err := f.advisor.Explain(ctx, "p1", "AAPL", models.LangFR)
	require.NoError(t, err)
	assert.Equal(t, models.LangFR, fr.Lang)
	assert.Contains(t, fr.Explanation.Headline, "ACHETER AAPL")

	ar, err := f.advisor.Explain(ctx, "p1", "AAPL", models.LangAR)
	require.NoError(t, err)
	assert.Contains(t, ar.Explanation.Headline, "شراء AAPL")
	assert.Equal(t, fr.Decision, ar.Decision)
}

func TestApplyDecisionExecutesBuy(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	f := newFixture(bullishProviders(), WithAdvisorClock(func() time.Time { return now }))
	_, err := f.portfolio.Create(ctx, "p1", "moderate", 10_000)
	require.NoError(t, err)
	require.NoError(t, f.market.SetPrice(ctx, "AAPL", 100))

	out, err := f.advisor.ApplyDecision(ctx, "p1", "AAPL", 1.5)
	require.NoError(t, err)
	require.NotNil(t, out.Trade)
	require.NotNil(t, out.Snapshot)

	assert.Equal(t, models.SideBuy, out.Trade.Side)
	assert.Equal(t, 100.0, out.Trade.Price)
	assert.Equal(t, 1.5, out.Trade.Fees)
	assert.Equal(t, now, out.Trade.Timestamp)
	assert.InDelta(t, out.Decision.OrderQty, out.Trade.Qty, 1e-12)
	assert.Equal(t, out.Decision.ReasonCodes, out.Trade.ReasonCodes)
	assert.InDelta(t, 10_000-1.5, out.Snapshot.NAV, 1e-9)

	navs, err := f.portfolio.NavHistory(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, navs, 1)
	assert.Equal(t, now, navs[0].Timestamp)

	assert.Len(t, f.events.trades, 1)
	assert.Equal(t, 1, f.metrics.trades)
	assert.InDelta(t, 10_000-1.5, f.metrics.navs["p1"], 1e-9)
}

func TestApplyDecisionHoldLeavesLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(Providers{Forecast: stubForecast{}, Sentiment: stubSentiment{}, Anomaly: stubAnomaly{}})
	_, err := f.portfolio.Create(ctx, "p1", "moderate", 10_000)
	require.NoError(t, err)

	out, err := f.advisor.ApplyDecision(ctx, "p1", "AAPL", 0)
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, out.Decision.Action)
	assert.Nil(t, out.Trade)
	assert.Nil(t, out.Snapshot)

	navs, err := f.portfolio.NavHistory(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, navs)
	assert.Empty(t, f.events.trades)
}

func TestApplyDecisionRejectedTradeIsCounted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(bullishProviders())
	_, err := f.portfolio.Create(ctx, "p1", "moderate", 10_000)
	require.NoError(t, err)

	_, err = f.advisor.ApplyDecision(ctx, "p1", "AAPL", -1)
	assert.ErrorIs(t, err, portfolio.ErrInvalidAmount)
	assert.Equal(t, []string{"invalid_amount"}, f.metrics.rejected)
}

// cashBoundFixture leaves 1000 of cash in an aggressive portfolio so a bullish
// AAPL buy at 7.3 is capped by cash.
func cashBoundFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := newFixture(bullishProviders())
	_, err := f.portfolio.Create(ctx, "p1", "aggressive", 10_000)
	require.NoError(t, err)
	require.NoError(t, f.market.SetPrice(ctx, "MSFT", 100))
	require.NoError(t, f.market.SetPrice(ctx, "AAPL", 7.3))
	_, err = f.portfolio.Trade(ctx, "p1", TradeInput{Symbol: "MSFT", Side: "BUY", Qty: 90})
	require.NoError(t, err)
	return f
}

func TestApplyDecisionCappedBuyPaysFees(t *testing.T) {
	for _, fees := range []float64{0, 0.01, 1} {
		t.Run(fmt.Sprintf("fees=%v", fees), func(t *testing.T) {
			ctx := context.Background()
			f := cashBoundFixture(t)

			set, err := f.advisor.Recommend(ctx, "p1", []string{"AAPL"}, time.Time{})
			require.NoError(t, err)
			rec := set.Items[0]
			require.Equal(t, models.ActionBuy, rec.Decision.Action)
			require.True(t, rec.Decision.HasReason(models.ReasonCappedByCash))
			assert.InDelta(t, 1_000, rec.Decision.OrderValue, 1e-9)

			out, err := f.advisor.ApplyDecision(ctx, "p1", "AAPL", fees)
			require.NoError(t, err)
			require.NotNil(t, out.Trade)
			assert.Equal(t, models.ActionBuy, out.Decision.Action)
			assert.Equal(t, fees, out.Trade.Fees)
			assert.InDelta(t, (1_000-fees)/7.3, out.Trade.Qty, 1e-9)
			assert.LessOrEqual(t, out.Trade.Qty, rec.Decision.OrderQty)
			assert.Equal(t, out.Trade.Qty, out.Decision.OrderQty)

			view, err := f.portfolio.View(ctx, "p1")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, view.Snapshot.Cash, 0.0)
			assert.InDelta(t, 0, view.Snapshot.Cash, 1e-9)
			assert.Empty(t, f.metrics.rejected)
		})
	}
}

func TestApplyDecisionFeesAboveCashHold(t *testing.T) {
	ctx := context.Background()
	f := cashBoundFixture(t)
	before := len(f.events.trades)

	out, err := f.advisor.ApplyDecision(ctx, "p1", "AAPL", 1_000)
	require.NoError(t, err)
	assert.Equal(t, models.ActionHold, out.Decision.Action)
	assert.Zero(t, out.Decision.OrderQty)
	assert.Zero(t, out.Decision.OrderValue)
	assert.Nil(t, out.Trade)
	assert.Nil(t, out.Snapshot)

	view, err := f.portfolio.View(ctx, "p1")
	require.NoError(t, err)
	assert.InDelta(t, 1_000, view.Snapshot.Cash, 1e-9)
	assert.Len(t, f.events.trades, before)
	assert.Empty(t, f.metrics.rejected)
}

func TestPublishFailuresDoNotFailCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(bullishProviders())
	f.events.err = errUpstream
	_, err := f.portfolio.Create(ctx, "p1", "moderate", 10_000)
	require.NoError(t, err)

	_, err = f.advisor.ApplyDecision(ctx, "p1", "AAPL", 0)
	require.NoError(t, err)
	assert.Contains(t, f.metrics.errs, "publish_decision")
	assert.Contains(t, f.metrics.errs, "publish_trade")
}

func TestBuildContext(t *testing.T) {
	l, err := portfolio.NewLedger(1_000)
	require.NoError(t, err)
	_, err = l.ApplyTrade("AAPL", models.SideBuy, 2, 100, testAsOf, 0, nil)
	require.NoError(t, err)
	_, err = l.ApplyTrade("MSFT", models.SideBuy, 1, 300, testAsOf, 0, nil)
	require.NoError(t, err)

	ctx := BuildContext(l, "AAPL", 150, map[string]float64{"AAPL": 1, "MSFT": 200})
	assert.Equal(t, 500.0, ctx.Cash)
	assert.Equal(t, 1_000.0, ctx.TotalEquity) // 500 + 2*150 + 200
	assert.Equal(t, 2.0, ctx.PositionQty)
	assert.Equal(t, 300.0, ctx.PositionValue)
	assert.InDelta(t, 0.3, ctx.CurrentWeight, 1e-12)
	assert.Equal(t, 150.0, ctx.LastPrice)

	// missing price for a held symbol yields an invalid context
	bad := BuildContext(l, "AAPL", 150, nil)
	assert.Zero(t, bad.TotalEquity)
	assert.Zero(t, bad.CurrentWeight)
}

func TestMergeSymbols(t *testing.T) {
	assert.Equal(t, []string{"A", "B", "C"}, mergeSymbols([]string{"A", "B"}, []string{"B", "C", "A"}))
	assert.Empty(t, mergeSymbols(nil, nil))
}
