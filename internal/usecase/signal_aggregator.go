package usecase

import (
	"time"

	"FinAdvisor/internal/domain/models"
)

// AggregationWeights controls how forecast and sentiment are blended and how
// strongly anomalies damp the fused score.
type AggregationWeights struct {
	Forecast       float64 `yaml:"forecast"`
	Sentiment      float64 `yaml:"sentiment"`
	AnomalyPenalty float64 `yaml:"anomaly_penalty"`
}

// DefaultWeights returns the production blend.
func DefaultWeights() AggregationWeights {
	return AggregationWeights{Forecast: 0.55, Sentiment: 0.35, AnomalyPenalty: 0.45}
}

const (
	forecastScale       = 0.05 // expected return mapped to a full-scale score
	volConfidenceScale  = 0.10
	maxVolConfPenalty   = 0.35
	anomalyConfFactor   = 0.50
	maxAnomalyConfPen   = 0.50
	noSignalConfidence  = 0.25
	lowConfidenceMarker = 0.35
)

// SignalAggregator fuses forecast, sentiment and anomaly signals into one score.
// It holds only configuration and is safe for concurrent use.
type SignalAggregator struct {
	weights         AggregationWeights
	retBuyTh        float64
	retSellTh       float64
	sentimentPosTh  float64
	sentimentNegTh  float64
	anomalySevereTh float64
}

type AggregatorOption func(*SignalAggregator)

// WithWeights overrides the blend weights.
func WithWeights(w AggregationWeights) AggregatorOption {
	return func(a *SignalAggregator) { a.weights = w }
}

// WithReturnThresholds sets the expected-return bands for FORECAST_UP/DOWN.
func WithReturnThresholds(buy, sell float64) AggregatorOption {
	return func(a *SignalAggregator) {
		a.retBuyTh = buy
		a.retSellTh = sell
	}
}

// WithSentimentThresholds sets the bands for SENTIMENT_POS/NEG.
func WithSentimentThresholds(pos, neg float64) AggregatorOption {
	return func(a *SignalAggregator) {
		a.sentimentPosTh = pos
		a.sentimentNegTh = neg
	}
}

// WithAnomalySevereThreshold sets the severity at which ANOMALY_SEVERE is tagged.
func WithAnomalySevereThreshold(th float64) AggregatorOption {
	return func(a *SignalAggregator) { a.anomalySevereTh = th }
}

func NewSignalAggregator(opts ...AggregatorOption) *SignalAggregator {
	a := &SignalAggregator{
		weights:         DefaultWeights(),
		retBuyTh:        0.01,
		retSellTh:       -0.01,
		sentimentPosTh:  0.20,
		sentimentNegTh:  -0.20,
		anomalySevereTh: AnomalySevereThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AggregateOne builds the aggregated signal for one symbol. Forecast, sentiment
// and lastPrice are optional; anomalies may be empty.
func (a *SignalAggregator) AggregateOne(
	symbol string,
	asOf time.Time,
	forecast *models.ForecastSignal,
	sentiment *models.SentimentSignal,
	anomalies []models.AnomalySignal,
	lastPrice *float64,
) models.AggregatedSignal {
	codes := make([]models.ReasonCode, 0, 4)
	var f models.Features

	var forecastScore, forecastConf, vol float64
	if forecast != nil {
		f.HasForecast = true
		f.ExpectedReturn = forecast.ExpectedReturn
		f.VolatilityPred = forecast.VolatilityPred
		vol = forecast.VolatilityPred
		forecastConf = clip(forecast.Confidence, 0, 1)
		forecastScore = clip(forecast.ExpectedReturn/forecastScale, -1, 1)

		switch {
		case forecast.ExpectedReturn >= a.retBuyTh:
			codes = append(codes, models.ReasonForecastUp)
		case forecast.ExpectedReturn <= a.retSellTh:
			codes = append(codes, models.ReasonForecastDown)
		default:
			codes = append(codes, models.ReasonForecastNeutral)
		}
	} else {
		codes = append(codes, models.ReasonForecastMissing)
	}
	f.ForecastConf = forecastConf

	var sentScore, sentConf float64
	if sentiment != nil {
		sentScore = clip(sentiment.SentimentScore, -1, 1)
		sentConf = clip(sentiment.Confidence, 0, 1)

		switch {
		case sentScore >= a.sentimentPosTh:
			codes = append(codes, models.ReasonSentimentPos)
		case sentScore <= a.sentimentNegTh:
			codes = append(codes, models.ReasonSentimentNeg)
		default:
			codes = append(codes, models.ReasonSentimentNeutral)
		}
	} else {
		codes = append(codes, models.ReasonSentimentMissing)
	}
	f.SentimentScore = sentScore
	f.SentimentConf = sentConf

	var maxSev float64
	for _, an := range anomalies {
		if s := clip(an.Severity, 0, 1); s > maxSev {
			maxSev = s
		}
	}
	switch {
	case len(anomalies) == 0:
		codes = append(codes, models.ReasonAnomalyNone)
	case maxSev >= a.anomalySevereTh:
		codes = append(codes, models.ReasonAnomalySevere)
	default:
		codes = append(codes, models.ReasonAnomalyPresent)
	}
	f.AnomalyMaxSeverity = maxSev

	w := a.weights
	raw := w.Forecast*forecastScore + w.Sentiment*sentScore
	penalty := w.AnomalyPenalty * maxSev
	actionScore := clip(raw*(1-penalty), -1, 1)

	// Base confidence is normalised over the signals actually present.
	var denom, confSum float64
	if forecast != nil {
		denom += w.Forecast
		confSum += w.Forecast * forecastConf
	}
	if sentiment != nil {
		denom += w.Sentiment
		confSum += w.Sentiment * sentConf
	}
	baseConf := noSignalConfidence
	if denom > 0 {
		baseConf = confSum / denom
	}

	volPen := clip(vol/volConfidenceScale, 0, maxVolConfPenalty)
	anomPen := clip(maxSev*anomalyConfFactor, 0, maxAnomalyConfPen)
	confidence := clip(baseConf*(1-volPen)*(1-anomPen), 0, 1)
	if confidence < lowConfidenceMarker {
		codes = append(codes, models.ReasonLowConfidence)
	}

	if lastPrice != nil {
		f.HasLastPrice = true
		f.LastPrice = *lastPrice
	}
	f.ForecastScore = forecastScore
	f.SentScore = sentScore
	f.RawScore = raw
	f.Penalty = penalty

	return models.AggregatedSignal{
		Symbol:      symbol,
		AsOf:        asOf,
		ActionScore: actionScore,
		Confidence:  confidence,
		ReasonCodes: codes,
		Features:    f,
	}
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
