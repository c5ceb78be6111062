package usecase

import (
	"math"

	"FinAdvisor/internal/domain/models"
)

const (
	// AnomalySevereThreshold is the severity at which anomalies count as severe.
	AnomalySevereThreshold = 0.75
	// VolatilityHighThreshold is the predicted volatility that triggers size reduction.
	VolatilityHighThreshold = 0.03

	volSizeScale         = 0.10
	minSellFraction      = 0.2
	maxSellFraction      = 1.0
	anomalyConfidenceCut = 0.3
)

// DecisionEngine turns an aggregated signal and portfolio context into a sized
// decision. Every input yields a well-formed Decision; abnormal inputs become
// HOLD with an explicit reason code.
type DecisionEngine struct {
	volHighTh       float64
	anomalySevereTh float64
}

func NewDecisionEngine() *DecisionEngine {
	return &DecisionEngine{
		volHighTh:       VolatilityHighThreshold,
		anomalySevereTh: AnomalySevereThreshold,
	}
}

// DecideOne evaluates the rule tree for a single symbol.
func (e *DecisionEngine) DecideOne(signal models.AggregatedSignal, profileName string, ctx models.PortfolioContext) models.Decision {
	prof := GetProfile(profileName)
	rc := append(make([]models.ReasonCode, 0, len(signal.ReasonCodes)+3), signal.ReasonCodes...)

	hold := func(conf float64, code models.ReasonCode) models.Decision {
		return models.Decision{
			Symbol:       signal.Symbol,
			AsOf:         signal.AsOf,
			Action:       models.ActionHold,
			Confidence:   conf,
			TargetWeight: ctx.CurrentWeight,
			ReasonCodes:  append(rc, code),
		}
	}

	if ctx.TotalEquity <= 0 || ctx.LastPrice <= 0 {
		return hold(0, models.ReasonInvalidContext)
	}

	score := signal.ActionScore
	conf := signal.Confidence
	vol := signal.Features.VolatilityPred
	maxSev := signal.Features.AnomalyMaxSeverity

	if conf < prof.MinConfidenceToTrade {
		return hold(conf, models.ReasonHoldLowConfidence)
	}

	var action models.Action
	switch {
	case score >= prof.ScoreBuyTh:
		action = models.ActionBuy
		rc = append(rc, models.ReasonRuleBuyScore)
	case score <= prof.ScoreSellTh:
		action = models.ActionSell
		rc = append(rc, models.ReasonRuleSellScore)
	default:
		return hold(conf, models.ReasonHoldScoreNeutral)
	}

	scoreFactor := clip(math.Abs(score), 0, 1)
	confFactor := clip(conf, 0, 1)
	targetW := prof.BaseTargetWeight * (0.6 + 0.4*scoreFactor) * (0.6 + 0.4*confFactor)

	if maxSev >= e.anomalySevereTh {
		targetW *= 1 - prof.AnomalySizePenalty*maxSev
		rc = append(rc, models.ReasonSizeAnomalyPenalty)
	}
	if vol >= e.volHighTh {
		targetW *= 1 - clip(vol/volSizeScale, 0, 1)*prof.VolatilitySizePenalty
		rc = append(rc, models.ReasonSizeVolatilityPenalty)
	}
	targetW = clip(targetW, 0, prof.MaxWeightPerAsset)

	exposure := 1 - ctx.Cash/ctx.TotalEquity
	if exposure > prof.MaxTotalExposure && action == models.ActionBuy {
		return hold(conf, models.ReasonHoldMaxExposure)
	}

	var orderValue float64
	if action == models.ActionBuy {
		desired := targetW * ctx.TotalEquity
		if desired <= ctx.PositionValue {
			return hold(conf, models.ReasonHoldAlreadyAllocated)
		}
		orderValue = desired - ctx.PositionValue
		if orderValue > ctx.Cash {
			orderValue = math.Max(ctx.Cash, 0)
			rc = append(rc, models.ReasonCappedByCash)
		}
	} else {
		if ctx.PositionValue <= 0 {
			return hold(conf, models.ReasonHoldNoPositionToSell)
		}
		sellFraction := clip(math.Abs(score), minSellFraction, maxSellFraction)
		orderValue = math.Min(ctx.PositionValue*sellFraction, ctx.PositionValue)
		targetW = clip(ctx.CurrentWeight*(1-sellFraction), 0, prof.MaxWeightPerAsset)
	}

	return models.Decision{
		Symbol:       signal.Symbol,
		AsOf:         signal.AsOf,
		Action:       action,
		Confidence:   clip(conf*(1-anomalyConfidenceCut*clip(maxSev, 0, 1)), 0, 1),
		TargetWeight: targetW,
		OrderValue:   orderValue,
		OrderQty:     orderValue / ctx.LastPrice,
		ReasonCodes:  rc,
	}
}
