package models

import (
	"fmt"
	"strings"
	"time"
)

// Action is the recommendation outcome for a symbol.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ProfileName identifies one of the fixed risk profiles.
type ProfileName string

const (
	ProfileConservative ProfileName = "conservative"
	ProfileModerate     ProfileName = "moderate"
	ProfileAggressive   ProfileName = "aggressive"
)

// RiskProfile holds the sizing and threshold parameters of a profile.
type RiskProfile struct {
	Name                  ProfileName `json:"name"`
	MaxWeightPerAsset     float64     `json:"max_weight_per_asset"`
	MinConfidenceToTrade  float64     `json:"min_confidence_to_trade"`
	ScoreBuyTh            float64     `json:"score_buy_th"`
	ScoreSellTh           float64     `json:"score_sell_th"`
	BaseTargetWeight      float64     `json:"base_target_weight"`
	AnomalySizePenalty    float64     `json:"anomaly_size_penalty"`
	VolatilitySizePenalty float64     `json:"volatility_size_penalty"`
	MaxTotalExposure      float64     `json:"max_total_exposure"`
}

// PortfolioContext is the ledger-derived snapshot a decision is sized against.
type PortfolioContext struct {
	Cash          float64 `json:"cash"`
	TotalEquity   float64 `json:"total_equity"`
	PositionQty   float64 `json:"position_qty"`
	PositionValue float64 `json:"position_value"`
	CurrentWeight float64 `json:"current_weight"`
	LastPrice     float64 `json:"last_price"`
}

// Decision is the sized recommendation produced by the decision engine.
type Decision struct {
	Symbol       string       `json:"symbol"`
	AsOf         time.Time    `json:"as_of"`
	Action       Action       `json:"action"`
	Confidence   float64      `json:"confidence"`
	TargetWeight float64      `json:"target_weight"`
	OrderValue   float64      `json:"order_value"`
	OrderQty     float64      `json:"order_qty"`
	ReasonCodes  []ReasonCode `json:"reason_codes"`
}

// HasReason reports whether code is among the decision's reason codes.
func (d Decision) HasReason(code ReasonCode) bool {
	return containsReason(d.ReasonCodes, code)
}

// Side is the direction of a ledger trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide validates a raw side string (case-insensitive).
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// Valid reports whether s is BUY or SELL.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// SideFor maps a trading action onto a ledger side; HOLD has none.
func SideFor(a Action) (Side, bool) {
	switch a {
	case ActionBuy:
		return SideBuy, true
	case ActionSell:
		return SideSell, true
	default:
		return "", false
	}
}
