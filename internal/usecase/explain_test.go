package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAdvisor/internal/domain/models"
)

func buySetup() (models.Decision, models.AggregatedSignal) {
	codes := []models.ReasonCode{models.ReasonForecastUp, models.ReasonSentimentPos, models.ReasonAnomalyNone}
	sig := models.AggregatedSignal{
		Symbol:      "AAPL",
		AsOf:        testAsOf,
		ActionScore: 0.5,
		Confidence:  0.58,
		ReasonCodes: codes,
		Features: models.Features{
			ExpectedReturn: 0.0195,
			VolatilityPred: 0.02,
			SentimentScore: 0.5,
			LastPrice:      42.5,
			HasForecast:    true,
			HasLastPrice:   true,
		},
	}
	dec := models.Decision{
		Symbol:      "AAPL",
		AsOf:        testAsOf,
		Action:      models.ActionBuy,
		Confidence:  0.8,
		OrderValue:  1234.5,
		OrderQty:    29.0471,
		ReasonCodes: append(append([]models.ReasonCode{}, codes...), models.ReasonRuleBuyScore),
	}
	return dec, sig
}

func TestExplainFrenchBuy(t *testing.T) {
	dec, sig := buySetup()
	ex := NewExplainer().Explain(dec, sig, "moderate", models.LangFR)

	assert.Equal(t, "ACHETER AAPL (Confiance 0.80)", ex.Headline)
	assert.Equal(t, "Signal global haussier (score 0.50) avec confiance 0.58. Cette recommandation respecte votre profil moderate.", ex.Summary)
	assert.Equal(t, []string{
		"Prévision positive : rendement attendu ≈ 1.95%.",
		"Sentiment positif (score 0.50).",
		"Aucune anomalie critique détectée.",
		"Volatilité prédite ≈ 2.00% (impact sur la confiance).",
		"Montant proposé à l'achat ≈ 1,234.50 TND (≈ 29.0471 unités à 42.500).",
	}, ex.Bullets)
	assert.Equal(t, []string{"Risques maîtrisés au regard des signaux actuels."}, ex.Risks)
	assert.Equal(t, phrasebooks[models.LangFR].nextBuy, ex.NextSteps)

	assert.Equal(t, 0.5, ex.Debug["action_score"])
	assert.Equal(t, 0.58, ex.Debug["signal_confidence"])
	assert.Equal(t, 0.8, ex.Debug["decision_confidence"])
	assert.Equal(t, 0.0195, ex.Debug[models.FeatureExpectedReturn])
}

func TestExplainArabicSellWithRisks(t *testing.T) {
	codes := []models.ReasonCode{models.ReasonForecastDown, models.ReasonSentimentNeg, models.ReasonAnomalySevere}
	sig := models.AggregatedSignal{
		Symbol:      "AAPL",
		ActionScore: -0.4,
		Confidence:  0.7,
		ReasonCodes: codes,
		Features: models.Features{
			ExpectedReturn:     -0.03,
			VolatilityPred:     0.05,
			SentimentScore:     -0.6,
			AnomalyMaxSeverity: 0.9,
			LastPrice:          10,
		},
	}
	dec := models.Decision{
		Symbol:      "AAPL",
		Action:      models.ActionSell,
		Confidence:  0.56,
		OrderValue:  400,
		OrderQty:    40,
		ReasonCodes: append(append([]models.ReasonCode{}, codes...), models.ReasonRuleSellScore),
	}

	ex := NewExplainer().Explain(dec, sig, "aggressive", models.LangAR)
	pb := phrasebooks[models.LangAR]

	assert.Equal(t, "بيع AAPL (ثقة 0.56)", ex.Headline)
	assert.Contains(t, ex.Summary, "baissier")
	assert.Contains(t, ex.Summary, "-0.40")
	require.Len(t, ex.Bullets, 5)
	assert.Equal(t, "توقعات سلبية: عائد متوقع ≈ -3.00%.", ex.Bullets[0])
	assert.Equal(t, "المشاعر سلبية (النتيجة -0.60).", ex.Bullets[1])
	assert.Equal(t, "تم رصد شذوذ قوي (الشدة 0.90) → تم تقليص الحجم.", ex.Bullets[2])
	assert.Equal(t, "قيمة البيع المقترحة ≈ 400.00 د.ت (≈ 40.0000 وحدة عند 10.000).", ex.Bullets[4])
	assert.Equal(t, []string{pb.riskVol, pb.riskAnom, pb.riskAggr}, ex.Risks)
	assert.Equal(t, pb.nextSell, ex.NextSteps)
}

func TestExplainHoldWithMissingSignals(t *testing.T) {
	codes := []models.ReasonCode{
		models.ReasonForecastMissing, models.ReasonSentimentMissing, models.ReasonAnomalyNone,
		models.ReasonLowConfidence, models.ReasonHoldLowConfidence,
	}
	sig := models.AggregatedSignal{Symbol: "X", Confidence: 0.25, ReasonCodes: codes[:4]}
	dec := models.Decision{Symbol: "X", Action: models.ActionHold, Confidence: 0.25, ReasonCodes: codes}

	ex := NewExplainer().Explain(dec, sig, "conservative", models.LangFR)
	pb := phrasebooks[models.LangFR]

	assert.Equal(t, "CONSERVER X (Confiance 0.25)", ex.Headline)
	assert.Contains(t, ex.Summary, "neutre")
	assert.Equal(t, []string{pb.fcMissing, pb.snMissing, pb.anNone, pb.holdOrder}, ex.Bullets)
	assert.Equal(t, []string{pb.riskNone}, ex.Risks)
	assert.Equal(t, pb.nextHold, ex.NextSteps)
}

func TestExplainConservativeBuyRisk(t *testing.T) {
	dec, sig := buySetup()
	ex := NewExplainer().Explain(dec, sig, "conservateur", models.LangFR)
	assert.Equal(t, []string{phrasebooks[models.LangFR].riskCons}, ex.Risks)
	assert.Contains(t, ex.Summary, "profil conservative")
}

func TestExplainUnknownLanguageFallsBackToFrench(t *testing.T) {
	dec, sig := buySetup()
	ex := NewExplainer().Explain(dec, sig, "moderate", models.Lang("de"))
	assert.Equal(t, "ACHETER AAPL (Confiance 0.80)", ex.Headline)
}

func TestExplainLeavesDecisionUntouched(t *testing.T) {
	dec, sig := buySetup()
	before := dec
	beforeCodes := append([]models.ReasonCode(nil), dec.ReasonCodes...)

	_ = NewExplainer().Explain(dec, sig, "moderate", models.LangAR)
	assert.Equal(t, before.OrderValue, dec.OrderValue)
	assert.Equal(t, before.Confidence, dec.Confidence)
	assert.Equal(t, beforeCodes, dec.ReasonCodes)
}

func TestParseLang(t *testing.T) {
	cases := map[string]models.Lang{
		"ar":             models.LangAR,
		"ar-TN":          models.LangAR,
		"fr":             models.LangFR,
		"fr-FR":          models.LangFR,
		"en-US":          models.LangFR,
		"":               models.LangFR,
		"en-US,ar;q=0.8": models.LangAR,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLang(in), in)
	}
	assert.Equal(t, models.LangAR, ParseLang("", "ar"))
}

func TestNumberFormatting(t *testing.T) {
	assert.Equal(t, "1,234,567.89", fmtMoney(1234567.891))
	assert.Equal(t, "-1,000.00", fmtMoney(-1000))
	assert.Equal(t, "0.00", fmtMoney(0))
	assert.Equal(t, "100.00", fmtMoney(99.999))
	assert.Equal(t, "1.95%", fmtPct(0.0195))
	assert.Equal(t, "-0.50%", fmtPct(-0.005))
	assert.Equal(t, "0.123", fmtFixed(0.1234, 3))
}
