package providers

import (
	"context"
	"fmt"
	"time"

	"FinAdvisor/internal/domain/models"
	domsvc "FinAdvisor/internal/domain/service"
	svcmetrics "FinAdvisor/internal/service/metrics"
	"FinAdvisor/pkg/config"
	"FinAdvisor/pkg/util"
)

type signalReq struct {
	Symbol string `json:"symbol"`
	AsOf   string `json:"as_of"`
}

func newSignalReq(symbol string, asOf time.Time) signalReq {
	return signalReq{Symbol: symbol, AsOf: util.FormatDate(asOf)}
}

// HTTPForecastProvider fetches forecasts from the analytics service.
type HTTPForecastProvider struct{ base *HTTPServiceBase }

func NewHTTPForecastProvider(cfg *config.Config) *HTTPForecastProvider {
	return &HTTPForecastProvider{base: NewHTTPServiceBase(cfg)}
}

type forecastResp struct {
	Available      *bool   `json:"available"`
	HorizonDays    int     `json:"horizon_days"`
	ExpectedReturn float64 `json:"expected_return"`
	VolatilityPred float64 `json:"volatility_pred"`
	Confidence     float64 `json:"confidence"`
}

func (p *HTTPForecastProvider) Forecast(ctx context.Context, symbol string, asOf time.Time) (*models.ForecastSignal, error) {
	start := time.Now()
	var r forecastResp
	err := p.base.PostJSONWithRetry(ctx, "/forecast", newSignalReq(symbol, asOf), &r)
	svcmetrics.ObserveProvider("forecast", start, err)
	if err != nil {
		return nil, fmt.Errorf("forecast %s: %w", symbol, err)
	}
	if r.Available != nil && !*r.Available {
		return nil, nil
	}
	return &models.ForecastSignal{
		Symbol:         symbol,
		AsOf:           asOf,
		HorizonDays:    r.HorizonDays,
		ExpectedReturn: r.ExpectedReturn,
		VolatilityPred: r.VolatilityPred,
		Confidence:     r.Confidence,
	}, nil
}

// HTTPSentimentProvider fetches news sentiment from the analytics service.
type HTTPSentimentProvider struct{ base *HTTPServiceBase }

func NewHTTPSentimentProvider(cfg *config.Config) *HTTPSentimentProvider {
	return &HTTPSentimentProvider{base: NewHTTPServiceBase(cfg)}
}

type sentimentResp struct {
	Available      *bool             `json:"available"`
	SentimentScore float64           `json:"sentiment_score"`
	Confidence     float64           `json:"confidence"`
	Evidence       []models.Evidence `json:"evidence"`
}

func (p *HTTPSentimentProvider) Sentiment(ctx context.Context, symbol string, asOf time.Time) (*models.SentimentSignal, error) {
	start := time.Now()
	var r sentimentResp
	err := p.base.PostJSONWithRetry(ctx, "/sentiment", newSignalReq(symbol, asOf), &r)
	svcmetrics.ObserveProvider("sentiment", start, err)
	if err != nil {
		return nil, fmt.Errorf("sentiment %s: %w", symbol, err)
	}
	if r.Available != nil && !*r.Available {
		return nil, nil
	}
	return &models.SentimentSignal{
		Symbol:         symbol,
		AsOf:           asOf,
		SentimentScore: r.SentimentScore,
		Confidence:     r.Confidence,
		Evidence:       r.Evidence,
	}, nil
}

// HTTPAnomalyProvider fetches recent anomalies from the analytics service.
type HTTPAnomalyProvider struct{ base *HTTPServiceBase }

func NewHTTPAnomalyProvider(cfg *config.Config) *HTTPAnomalyProvider {
	return &HTTPAnomalyProvider{base: NewHTTPServiceBase(cfg)}
}

type anomalyResp struct {
	Anomalies []struct {
		Timestamp   time.Time `json:"ts"`
		Type        string    `json:"type"`
		Severity    float64   `json:"severity"`
		Description string    `json:"description"`
		Caution     bool      `json:"caution"`
	} `json:"anomalies"`
}

func (p *HTTPAnomalyProvider) Recent(ctx context.Context, symbol string, asOf time.Time) ([]models.AnomalySignal, error) {
	start := time.Now()
	var r anomalyResp
	err := p.base.PostJSONWithRetry(ctx, "/anomalies", newSignalReq(symbol, asOf), &r)
	svcmetrics.ObserveProvider("anomalies", start, err)
	if err != nil {
		return nil, fmt.Errorf("anomalies %s: %w", symbol, err)
	}
	out := make([]models.AnomalySignal, 0, len(r.Anomalies))
	for _, a := range r.Anomalies {
		out = append(out, models.AnomalySignal{
			Symbol:      symbol,
			Timestamp:   a.Timestamp,
			Type:        a.Type,
			Severity:    a.Severity,
			Description: a.Description,
			Caution:     a.Caution,
		})
	}
	return out, nil
}

var (
	_ domsvc.ForecastProvider  = (*HTTPForecastProvider)(nil)
	_ domsvc.SentimentProvider = (*HTTPSentimentProvider)(nil)
	_ domsvc.AnomalyProvider   = (*HTTPAnomalyProvider)(nil)
)
