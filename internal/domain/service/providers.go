package service

import (
	"context"
	"errors"
	"time"

	"FinAdvisor/internal/domain/models"
)

// ForecastProvider returns the return/volatility forecast for a symbol at a date.
// A nil signal with nil error means no forecast is available.
type ForecastProvider interface {
	Forecast(ctx context.Context, symbol string, asOf time.Time) (*models.ForecastSignal, error)
}

// SentimentProvider returns the news sentiment for a symbol at a date.
type SentimentProvider interface {
	Sentiment(ctx context.Context, symbol string, asOf time.Time) (*models.SentimentSignal, error)
}

// AnomalyProvider returns recent anomalies for a symbol; the list may be empty.
type AnomalyProvider interface {
	Recent(ctx context.Context, symbol string, asOf time.Time) ([]models.AnomalySignal, error)
}

// ErrInvalidPrice rejects a non-positive market price.
var ErrInvalidPrice = errors.New("price must be > 0")

// MarketData exposes last prices. Unknown symbols resolve to a fallback price.
type MarketData interface {
	LastPrice(ctx context.Context, symbol string) float64
	Prices(ctx context.Context, symbols []string) map[string]float64
	SetPrice(ctx context.Context, symbol string, price float64) error
}
