package providers

import (
	"context"
	"hash/fnv"
	"time"

	"FinAdvisor/internal/domain/models"
	domsvc "FinAdvisor/internal/domain/service"
)

// symbolHash is a stable FNV-1a hash so mock signals are reproducible across runs.
func symbolHash(symbol string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return h.Sum32()
}

// MockForecastProvider returns a small positive expected return derived from the symbol.
type MockForecastProvider struct{}

func (MockForecastProvider) Forecast(_ context.Context, symbol string, asOf time.Time) (*models.ForecastSignal, error) {
	base := float64(symbolHash(symbol)%100) / 10000
	return &models.ForecastSignal{
		Symbol:         symbol,
		AsOf:           asOf,
		HorizonDays:    5,
		ExpectedReturn: 0.015 + base,
		VolatilityPred: 0.02,
		Confidence:     0.70,
	}, nil
}

// MockSentimentProvider returns a sentiment in [-0.5, 0.5) derived from the symbol.
type MockSentimentProvider struct{}

func (MockSentimentProvider) Sentiment(_ context.Context, symbol string, asOf time.Time) (*models.SentimentSignal, error) {
	s := (float64(symbolHash(symbol)%200) - 100) / 100
	s = max(-1, min(1, s/2))
	return &models.SentimentSignal{
		Symbol:         symbol,
		AsOf:           asOf,
		SentimentScore: s,
		Confidence:     0.65,
		Evidence:       []models.Evidence{{Title: "Mock news", Source: "mock", Score: s}},
	}, nil
}

// MockAnomalyProvider never reports anomalies.
type MockAnomalyProvider struct{}

func (MockAnomalyProvider) Recent(context.Context, string, time.Time) ([]models.AnomalySignal, error) {
	return []models.AnomalySignal{}, nil
}

var (
	_ domsvc.ForecastProvider  = MockForecastProvider{}
	_ domsvc.SentimentProvider = MockSentimentProvider{}
	_ domsvc.AnomalyProvider   = MockAnomalyProvider{}
)
