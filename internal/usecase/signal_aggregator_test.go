package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAdvisor/internal/domain/models"
)

var testAsOf = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func TestAggregateOneBlendsForecastAndSentiment(t *testing.T) {
	agg := NewSignalAggregator()
	price := 42.5

	got := agg.AggregateOne("AAPL", testAsOf,
		&models.ForecastSignal{Symbol: "AAPL", ExpectedReturn: 0.03, VolatilityPred: 0.02, Confidence: 0.8},
		&models.SentimentSignal{Symbol: "AAPL", SentimentScore: 0.5, Confidence: 0.6},
		nil, &price)

	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, testAsOf, got.AsOf)
	assert.InDelta(t, 0.505, got.ActionScore, 1e-9)
	// base 0.65/0.9, volatility penalty 0.2
	assert.InDelta(t, 0.65/0.9*0.8, got.Confidence, 1e-9)
	assert.Equal(t, []models.ReasonCode{
		models.ReasonForecastUp, models.ReasonSentimentPos, models.ReasonAnomalyNone,
	}, got.ReasonCodes)

	f := got.Features
	assert.InDelta(t, 0.6, f.ForecastScore, 1e-9)
	assert.InDelta(t, 0.505, f.RawScore, 1e-9)
	assert.Zero(t, f.Penalty)
	assert.True(t, f.HasForecast)
	assert.True(t, f.HasLastPrice)
	assert.Equal(t, 42.5, f.LastPrice)
}

func TestAggregateOneWithoutSignals(t *testing.T) {
	got := NewSignalAggregator().AggregateOne("MSFT", testAsOf, nil, nil, nil, nil)

	assert.Zero(t, got.ActionScore)
	assert.Equal(t, noSignalConfidence, got.Confidence)
	assert.Equal(t, []models.ReasonCode{
		models.ReasonForecastMissing, models.ReasonSentimentMissing,
		models.ReasonAnomalyNone, models.ReasonLowConfidence,
	}, got.ReasonCodes)

	m := got.Features.Map()
	assert.NotContains(t, m, models.FeatureExpectedReturn)
	assert.NotContains(t, m, models.FeatureVolatilityPred)
	assert.NotContains(t, m, models.FeatureLastPrice)
	assert.Contains(t, m, models.FeatureRawScore)
}

func TestAggregateOneSevereAnomalyDampsScore(t *testing.T) {
	got := NewSignalAggregator().AggregateOne("NVDA", testAsOf,
		&models.ForecastSignal{ExpectedReturn: -0.10, Confidence: 1},
		nil,
		[]models.AnomalySignal{{Severity: 0.8}, {Severity: 1.5}},
		nil)

	// score clipped to -1, severity clipped to 1
	assert.InDelta(t, -0.55*(1-0.45), got.ActionScore, 1e-9)
	assert.InDelta(t, 0.5, got.Confidence, 1e-9)
	assert.Equal(t, 1.0, got.Features.AnomalyMaxSeverity)
	assert.InDelta(t, 0.45, got.Features.Penalty, 1e-9)
	assert.Equal(t, []models.ReasonCode{
		models.ReasonForecastDown, models.ReasonSentimentMissing, models.ReasonAnomalySevere,
	}, got.ReasonCodes)
}

func TestAggregateOneMildAnomalyAndNeutralBands(t *testing.T) {
	got := NewSignalAggregator().AggregateOne("TSLA", testAsOf,
		&models.ForecastSignal{ExpectedReturn: 0.005, Confidence: 0.9},
		&models.SentimentSignal{SentimentScore: -0.1, Confidence: 0.9},
		[]models.AnomalySignal{{Severity: 0.3}},
		nil)

	assert.Equal(t, []models.ReasonCode{
		models.ReasonForecastNeutral, models.ReasonSentimentNeutral, models.ReasonAnomalyPresent,
	}, got.ReasonCodes)
	assert.InDelta(t, 0.3, got.Features.AnomalyMaxSeverity, 1e-9)
}

func TestAggregateOneStaysInRange(t *testing.T) {
	agg := NewSignalAggregator(WithWeights(AggregationWeights{Forecast: 2, Sentiment: 2}))
	got := agg.AggregateOne("X", testAsOf,
		&models.ForecastSignal{ExpectedReturn: 5, Confidence: 7},
		&models.SentimentSignal{SentimentScore: 3, Confidence: -1},
		nil, nil)

	assert.Equal(t, 1.0, got.ActionScore)
	assert.GreaterOrEqual(t, got.Confidence, 0.0)
	assert.LessOrEqual(t, got.Confidence, 1.0)
}

func TestAggregatorOptions(t *testing.T) {
	agg := NewSignalAggregator(
		WithReturnThresholds(0.05, -0.05),
		WithSentimentThresholds(0.9, -0.9),
		WithAnomalySevereThreshold(0.2),
	)
	got := agg.AggregateOne("X", testAsOf,
		&models.ForecastSignal{ExpectedReturn: 0.03, Confidence: 1},
		&models.SentimentSignal{SentimentScore: 0.5, Confidence: 1},
		[]models.AnomalySignal{{Severity: 0.3}},
		nil)

	require.Len(t, got.ReasonCodes, 3)
	assert.Equal(t, models.ReasonForecastNeutral, got.ReasonCodes[0])
	assert.Equal(t, models.ReasonSentimentNeutral, got.ReasonCodes[1])
	assert.Equal(t, models.ReasonAnomalySevere, got.ReasonCodes[2])
}

func TestAggregateOneReferenceScenarios(t *testing.T) {
	forecast := &models.ForecastSignal{Symbol: "ACME", ExpectedReturn: 0.02, VolatilityPred: 0.02, Confidence: 0.75}
	sentiment := &models.SentimentSignal{Symbol: "ACME", SentimentScore: 0.6, Confidence: 0.70}
	// (0.55*0.75 + 0.35*0.70) / 0.9, then the 0.2 volatility penalty
	baseConf := 0.6575 / 0.9 * 0.8

	cases := []struct {
		name      string
		anomalies []models.AnomalySignal
		score     float64
		conf      float64
		has       []models.ReasonCode
		lacks     []models.ReasonCode
	}{
		{
			name:  "no anomalies",
			score: 0.43,
			conf:  baseConf,
			has:   []models.ReasonCode{models.ReasonForecastUp, models.ReasonSentimentPos, models.ReasonAnomalyNone},
			lacks: []models.ReasonCode{models.ReasonLowConfidence},
		},
		{
			name:      "severe anomaly",
			anomalies: []models.AnomalySignal{{Symbol: "ACME", Type: "gap", Severity: 0.9}},
			score:     0.43 * (1 - 0.45*0.9),
			conf:      baseConf * 0.55,
			has:       []models.ReasonCode{models.ReasonAnomalySevere, models.ReasonLowConfidence},
			lacks:     []models.ReasonCode{models.ReasonAnomalyNone},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewSignalAggregator().AggregateOne("ACME", testAsOf, forecast, sentiment, tc.anomalies, nil)
			assert.InDelta(t, tc.score, got.ActionScore, 1e-9)
			assert.InDelta(t, tc.conf, got.Confidence, 1e-9)
			assert.InDelta(t, 0.4, got.Features.ForecastScore, 1e-9)
			assert.InDelta(t, 0.43, got.Features.RawScore, 1e-9)
			for _, c := range tc.has {
				assert.Contains(t, got.ReasonCodes, c)
			}
			for _, c := range tc.lacks {
				assert.NotContains(t, got.ReasonCodes, c)
			}
		})
	}

	calm := NewSignalAggregator().AggregateOne("ACME", testAsOf, forecast, sentiment, nil, nil)
	stressed := NewSignalAggregator().AggregateOne("ACME", testAsOf, forecast, sentiment,
		[]models.AnomalySignal{{Severity: 0.9}}, nil)
	assert.InDelta(t, 0.584, calm.Confidence, 1e-3)
	assert.InDelta(t, 0.256, stressed.ActionScore, 1e-3)
	assert.InDelta(t, 0.32, stressed.Confidence, 2e-3)
	assert.Less(t, stressed.ActionScore, calm.ActionScore)
	assert.Less(t, stressed.Confidence, calm.Confidence)
}
