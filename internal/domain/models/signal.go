package models

import "time"

// ForecastSignal is a per-symbol return/volatility forecast produced by an external model.
type ForecastSignal struct {
	Symbol         string    `json:"symbol"`
	AsOf           time.Time `json:"as_of"`
	HorizonDays    int       `json:"horizon_days"`
	ExpectedReturn float64   `json:"expected_return"`
	VolatilityPred float64   `json:"volatility_pred"`
	Confidence     float64   `json:"confidence"` // [0,1]
}

// Evidence is one item supporting a sentiment score (news title, source score).
type Evidence struct {
	Title  string  `json:"title"`
	Source string  `json:"source,omitempty"`
	Score  float64 `json:"score"`
}

// SentimentSignal is a per-symbol news sentiment reading.
type SentimentSignal struct {
	Symbol         string     `json:"symbol"`
	AsOf           time.Time  `json:"as_of"`
	SentimentScore float64    `json:"sentiment_score"` // [-1,1]
	Confidence     float64    `json:"confidence"`      // [0,1]
	Evidence       []Evidence `json:"evidence,omitempty"`
}

// AnomalySignal flags unusual market behaviour for a symbol.
type AnomalySignal struct {
	Symbol      string    `json:"symbol"`
	Timestamp   time.Time `json:"ts"`
	Type        string    `json:"type"` // "volume_spike", "price_gap", ...
	Severity    float64   `json:"severity"`
	Description string    `json:"description,omitempty"`
	Caution     bool      `json:"recommended_caution"`
}
