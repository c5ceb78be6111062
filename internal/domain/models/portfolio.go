package models

import "time"

// Position is the holding of a single symbol at weighted-average cost.
type Position struct {
	Symbol   string  `json:"symbol"`
	Qty      float64 `json:"qty"`
	AvgPrice float64 `json:"avg_price"`
}

// Trade is an executed ledger mutation. Immutable once recorded.
type Trade struct {
	ID          string       `json:"id"`
	Timestamp   time.Time    `json:"ts"`
	Symbol      string       `json:"symbol"`
	Side        Side         `json:"side"`
	Qty         float64      `json:"qty"`
	Price       float64      `json:"price"`
	Fees        float64      `json:"fees"`
	ReasonCodes []ReasonCode `json:"reason_codes"`
}

// NavPoint is one entry of the nav history.
type NavPoint struct {
	Timestamp time.Time `json:"ts"`
	NAV       float64   `json:"nav"`
}

// PortfolioSnapshot is a read-only valuation of a ledger at a point in time.
type PortfolioSnapshot struct {
	Timestamp     time.Time           `json:"ts"`
	Cash          float64             `json:"cash"`
	Positions     map[string]Position `json:"positions"`
	Prices        map[string]float64  `json:"prices"`
	NAV           float64             `json:"nav"`
	UnrealizedPnL float64             `json:"unrealized_pnl"`
	RealizedPnL   float64             `json:"realized_pnl"`
}

// PerformanceMetrics summarises the nav history.
type PerformanceMetrics struct {
	ROI         float64 `json:"roi"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`
}
