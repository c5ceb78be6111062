package models

import "time"

// Recommendation is one symbol's outcome of a recommendation cycle.
type Recommendation struct {
	Signal   AggregatedSignal `json:"signal"`
	Context  PortfolioContext `json:"context"`
	Decision Decision         `json:"decision"`
}

// RecommendationSet is the result of a recommendation cycle for a portfolio.
// Errors maps symbol -> provider -> message for signals that could not be fetched.
type RecommendationSet struct {
	PortfolioID string                       `json:"portfolio_id"`
	Profile     ProfileName                  `json:"profile"`
	AsOf        time.Time                    `json:"as_of"`
	Items       []Recommendation             `json:"items"`
	Errors      map[string]map[string]string `json:"errors,omitempty"`
}

// ExplainedRecommendation pairs a recommendation with its rendering.
type ExplainedRecommendation struct {
	Recommendation
	Lang        Lang        `json:"lang"`
	Explanation Explanation `json:"explanation"`
}

// AppliedDecision reports what ApplyDecision did. Trade and Snapshot are nil for HOLD.
type AppliedDecision struct {
	Recommendation
	Trade    *Trade             `json:"trade,omitempty"`
	Snapshot *PortfolioSnapshot `json:"snapshot,omitempty"`
}

// PortfolioView is the read model returned for a portfolio.
type PortfolioView struct {
	ID          string             `json:"id"`
	Profile     ProfileName        `json:"profile"`
	InitialCash float64            `json:"initial_cash"`
	Snapshot    PortfolioSnapshot  `json:"snapshot"`
	Metrics     PerformanceMetrics `json:"metrics"`
}
