package models

import "time"

// ReasonCode is a short machine-readable tag explaining a signal or decision.
type ReasonCode string

const (
	ReasonForecastUp      ReasonCode = "FORECAST_UP"
	ReasonForecastDown    ReasonCode = "FORECAST_DOWN"
	ReasonForecastNeutral ReasonCode = "FORECAST_NEUTRAL"
	ReasonForecastMissing ReasonCode = "FORECAST_MISSING"

	ReasonSentimentPos     ReasonCode = "SENTIMENT_POS"
	ReasonSentimentNeg     ReasonCode = "SENTIMENT_NEG"
	ReasonSentimentNeutral ReasonCode = "SENTIMENT_NEUTRAL"
	ReasonSentimentMissing ReasonCode = "SENTIMENT_MISSING"

	ReasonAnomalySevere  ReasonCode = "ANOMALY_SEVERE"
	ReasonAnomalyPresent ReasonCode = "ANOMALY_PRESENT"
	ReasonAnomalyNone    ReasonCode = "ANOMALY_NONE"

	ReasonLowConfidence ReasonCode = "LOW_CONFIDENCE"

	ReasonInvalidContext        ReasonCode = "INVALID_CONTEXT"
	ReasonHoldLowConfidence     ReasonCode = "HOLD_LOW_CONFIDENCE"
	ReasonHoldScoreNeutral      ReasonCode = "HOLD_SCORE_NEUTRAL"
	ReasonHoldMaxExposure       ReasonCode = "HOLD_MAX_EXPOSURE_REACHED"
	ReasonHoldAlreadyAllocated  ReasonCode = "HOLD_ALREADY_ALLOCATED"
	ReasonHoldNoPositionToSell  ReasonCode = "HOLD_NO_POSITION_TO_SELL"
	ReasonRuleBuyScore          ReasonCode = "RULE_BUY_SCORE"
	ReasonRuleSellScore         ReasonCode = "RULE_SELL_SCORE"
	ReasonSizeAnomalyPenalty    ReasonCode = "SIZE_ANOMALY_PENALTY"
	ReasonSizeVolatilityPenalty ReasonCode = "SIZE_VOLATILITY_PENALTY"
	ReasonCappedByCash          ReasonCode = "CAPPED_BY_CASH"
)

// Feature keys exposed by Features.Map. Downstream consumers rely on these names.
const (
	FeatureExpectedReturn     = "expected_return"
	FeatureVolatilityPred     = "volatility_pred"
	FeatureForecastConf       = "forecast_conf"
	FeatureSentimentScore     = "sentiment_score"
	FeatureSentimentConf      = "sentiment_conf"
	FeatureAnomalyMaxSeverity = "anomaly_max_severity"
	FeatureLastPrice          = "last_price"
	FeatureForecastScore      = "forecast_score"
	FeatureSentScore          = "sent_score"
	FeatureRawScore           = "raw_score"
	FeaturePenalty            = "penalty"
)

// Features holds every intermediate value computed during aggregation.
// Absent inputs leave their fields at zero; HasForecast and HasLastPrice
// record whether the optional keys are part of the feature set.
type Features struct {
	ExpectedReturn     float64 `json:"expected_return"`
	VolatilityPred     float64 `json:"volatility_pred"`
	ForecastConf       float64 `json:"forecast_conf"`
	SentimentScore     float64 `json:"sentiment_score"`
	SentimentConf      float64 `json:"sentiment_conf"`
	AnomalyMaxSeverity float64 `json:"anomaly_max_severity"`
	LastPrice          float64 `json:"last_price"`
	ForecastScore      float64 `json:"forecast_score"`
	SentScore          float64 `json:"sent_score"`
	RawScore           float64 `json:"raw_score"`
	Penalty            float64 `json:"penalty"`

	HasForecast  bool `json:"-"`
	HasLastPrice bool `json:"-"`
}

// Map renders the feature set under its stable key names.
func (f Features) Map() map[string]float64 {
	m := map[string]float64{
		FeatureForecastConf:       f.ForecastConf,
		FeatureSentimentScore:     f.SentimentScore,
		FeatureSentimentConf:      f.SentimentConf,
		FeatureAnomalyMaxSeverity: f.AnomalyMaxSeverity,
		FeatureForecastScore:      f.ForecastScore,
		FeatureSentScore:          f.SentScore,
		FeatureRawScore:           f.RawScore,
		FeaturePenalty:            f.Penalty,
	}
	if f.HasForecast {
		m[FeatureExpectedReturn] = f.ExpectedReturn
		m[FeatureVolatilityPred] = f.VolatilityPred
	}
	if f.HasLastPrice {
		m[FeatureLastPrice] = f.LastPrice
	}
	return m
}

// AggregatedSignal is the fused view of forecast, sentiment and anomalies for one symbol.
// Note: no transport (json/http) concerns beyond field tags here.
type AggregatedSignal struct {
	Symbol      string       `json:"symbol"`
	AsOf        time.Time    `json:"as_of"`
	ActionScore float64      `json:"action_score"` // [-1,1]
	Confidence  float64      `json:"confidence"`   // [0,1]
	ReasonCodes []ReasonCode `json:"reason_codes"`
	Features    Features     `json:"features"`
}

// HasReason reports whether code is among the signal's reason codes.
func (s AggregatedSignal) HasReason(code ReasonCode) bool {
	return containsReason(s.ReasonCodes, code)
}

func containsReason(codes []ReasonCode, code ReasonCode) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
