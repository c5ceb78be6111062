package usecase

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"FinAdvisor/internal/domain/models"
)

// phrasebook holds the templates for one language. Format verbs are filled
// with already-formatted values so the text never recomputes a number.
type phrasebook struct {
	actions   map[models.Action]string
	headline  string // action, symbol, confidence
	summary   string // direction, score, confidence, profile
	bullish   string
	bearish   string
	neutral   string
	currency  string
	fcUp      string
	fcDown    string
	fcMissing string
	snPos     string
	snNeg     string
	snMissing string
	anSevere  string
	anPresent string
	anNone    string
	vol       string
	buyOrder  string // money, currency, qty, price
	sellOrder string
	holdOrder string
	riskVol   string
	riskAnom  string
	riskCons  string
	riskAggr  string
	riskNone  string
	nextBuy   []string
	nextSell  []string
	nextHold  []string
}

var phrasebooks = map[models.Lang]phrasebook{
	models.LangFR: {
		actions:   map[models.Action]string{models.ActionBuy: "ACHETER", models.ActionSell: "VENDRE", models.ActionHold: "CONSERVER"},
		headline:  "%s %s (Confiance %s)",
		summary:   "Signal global %s (score %s) avec confiance %s. Cette recommandation respecte votre profil %s.",
		bullish:   "haussier",
		bearish:   "baissier",
		neutral:   "neutre",
		currency:  "TND",
		fcUp:      "Prévision positive : rendement attendu ≈ %s.",
		fcDown:    "Prévision négative : rendement attendu ≈ %s.",
		fcMissing: "Prévision manquante : décision basée sur signaux disponibles.",
		snPos:     "Sentiment positif (score %s).",
		snNeg:     "Sentiment négatif (score %s).",
		snMissing: "Sentiment manquant : prudence sur l'interprétation.",
		anSevere:  "Anomalie sévère détectée (sévérité %s) → taille réduite.",
		anPresent: "Anomalie présente (sévérité max %s) → vigilance.",
		anNone:    "Aucune anomalie critique détectée.",
		vol:       "Volatilité prédite ≈ %s (impact sur la confiance).",
		buyOrder:  "Montant proposé à l'achat ≈ %s %s (≈ %s unités à %s).",
		sellOrder: "Montant proposé à la vente ≈ %s %s (≈ %s unités à %s).",
		holdOrder: "Aucune action immédiate : conserver et surveiller.",
		riskVol:   "Risque de volatilité élevée : privilégier des tailles modestes.",
		riskAnom:  "Anomalie sévère : risque de mouvement brusque / liquidité.",
		riskCons:  "Profil conservateur : évitez la concentration, renforcez progressivement.",
		riskAggr:  "Profil agressif : la vente réduit l'exposition au momentum.",
		riskNone:  "Risques maîtrisés au regard des signaux actuels.",
		nextBuy: []string{
			"Exécuter l'achat virtuel puis suivre la performance quotidienne.",
			"Définir un seuil de sortie (stop) selon votre profil.",
		},
		nextSell: []string{
			"Vendre virtuellement et réallouer vers des actifs plus solides.",
			"Surveiller si les signaux s’inversent (news/forecast).",
		},
		nextHold: []string{
			"Attendre confirmation (meilleure confiance ou score plus marqué).",
			"Surveiller anomalies et news avant de bouger.",
		},
	},
	models.LangAR: {
		actions:   map[models.Action]string{models.ActionBuy: "شراء", models.ActionSell: "بيع", models.ActionHold: "احتفاظ"},
		headline:  "%s %s (ثقة %s)",
		summary:   "الإشارة العامة %s (النتيجة %s) مع ثقة إشارة %s. هذه التوصية تراعي ملف المخاطر: %s.",
		bullish:   "haussier",
		bearish:   "baissier",
		neutral:   "neutre",
		currency:  "د.ت",
		fcUp:      "توقعات إيجابية: عائد متوقع ≈ %s.",
		fcDown:    "توقعات سلبية: عائد متوقع ≈ %s.",
		fcMissing: "لا توجد توقعات: القرار مبني على الإشارات المتاحة.",
		snPos:     "المشاعر إيجابية (النتيجة %s).",
		snNeg:     "المشاعر سلبية (النتيجة %s).",
		snMissing: "لا توجد بيانات مشاعر: الحذر مطلوب.",
		anSevere:  "تم رصد شذوذ قوي (الشدة %s) → تم تقليص الحجم.",
		anPresent: "يوجد شذوذ (أقصى شدة %s) → انتباه.",
		anNone:    "لا توجد شذوذات حرجة.",
		vol:       "التقلب المتوقع ≈ %s (يؤثر على الثقة).",
		buyOrder:  "قيمة الشراء المقترحة ≈ %s %s (≈ %s وحدة عند %s).",
		sellOrder: "قيمة البيع المقترحة ≈ %s %s (≈ %s وحدة عند %s).",
		holdOrder: "لا يوجد إجراء فوري: احتفاظ مع متابعة.",
		riskVol:   "خطر تقلب مرتفع: يُفضّل أحجاماً صغيرة.",
		riskAnom:  "شذوذ قوي: خطر حركة مفاجئة / سيولة.",
		riskCons:  "ملف محافظ: تجنب التركيز وزد تدريجياً.",
		riskAggr:  "ملف هجومي: البيع يقلل التعرض للزخم.",
		riskNone:  "المخاطر تحت السيطرة وفق الإشارات الحالية.",
		nextBuy: []string{
			"نفّذ الشراء الافتراضي وتابع الأداء يومياً.",
			"حدد حد الخروج (إيقاف) حسب ملف المخاطر.",
		},
		nextSell: []string{
			"نفّذ البيع الافتراضي وأعد التوزيع نحو أصول أقوى.",
			"راقب إن انعكست الإشارات (أخبار/توقعات).",
		},
		nextHold: []string{
			"انتظر تأكيداً (ثقة أعلى أو نتيجة أوضح).",
			"تابع الشذوذات والأخبار قبل اتخاذ قرار.",
		},
	},
}

var langMatcher = language.NewMatcher([]language.Tag{language.French, language.Arabic})

// ParseLang resolves a language tag or Accept-Language header to a supported
// language. Anything unmatched renders in French.
func ParseLang(raw ...string) models.Lang {
	_, idx := language.MatchStrings(langMatcher, raw...)
	if idx == 1 {
		return models.LangAR
	}
	return models.LangFR
}

// Explainer renders decisions as French or Arabic text. It never changes the
// decision it describes.
type Explainer struct {
	volHighTh       float64
	anomalySevereTh float64
}

func NewExplainer() *Explainer {
	return &Explainer{
		volHighTh:       VolatilityHighThreshold,
		anomalySevereTh: AnomalySevereThreshold,
	}
}

// Explain builds the explanation of decision, which must have been derived from signal.
func (e *Explainer) Explain(decision models.Decision, signal models.AggregatedSignal, profileName string, lang models.Lang) models.Explanation {
	pb, ok := phrasebooks[lang]
	if !ok {
		pb = phrasebooks[models.LangFR]
	}
	prof := GetProfile(profileName)

	score := signal.ActionScore
	feats := signal.Features
	expRet := feats.ExpectedReturn
	vol := feats.VolatilityPred
	sent := feats.SentimentScore
	maxSev := feats.AnomalyMaxSeverity
	lastPrice := feats.LastPrice
	act := decision.Action

	headline := fmt.Sprintf(pb.headline, pb.actions[act], decision.Symbol, fmtFixed(decision.Confidence, 2))

	dir := pb.neutral
	switch {
	case score > 0:
		dir = pb.bullish
	case score < 0:
		dir = pb.bearish
	}
	summary := fmt.Sprintf(pb.summary, dir, fmtFixed(score, 2), fmtFixed(signal.Confidence, 2), prof.Name)

	var bullets []string
	switch {
	case decision.HasReason(models.ReasonForecastUp):
		bullets = append(bullets, fmt.Sprintf(pb.fcUp, fmtPct(expRet)))
	case decision.HasReason(models.ReasonForecastDown):
		bullets = append(bullets, fmt.Sprintf(pb.fcDown, fmtPct(expRet)))
	case decision.HasReason(models.ReasonForecastMissing):
		bullets = append(bullets, pb.fcMissing)
	}

	switch {
	case decision.HasReason(models.ReasonSentimentPos):
		bullets = append(bullets, fmt.Sprintf(pb.snPos, fmtFixed(sent, 2)))
	case decision.HasReason(models.ReasonSentimentNeg):
		bullets = append(bullets, fmt.Sprintf(pb.snNeg, fmtFixed(sent, 2)))
	case decision.HasReason(models.ReasonSentimentMissing):
		bullets = append(bullets, pb.snMissing)
	}

	switch {
	case decision.HasReason(models.ReasonAnomalySevere):
		bullets = append(bullets, fmt.Sprintf(pb.anSevere, fmtFixed(maxSev, 2)))
	case decision.HasReason(models.ReasonAnomalyPresent):
		bullets = append(bullets, fmt.Sprintf(pb.anPresent, fmtFixed(maxSev, 2)))
	default:
		bullets = append(bullets, pb.anNone)
	}

	if vol > 0 {
		bullets = append(bullets, fmt.Sprintf(pb.vol, fmtPct(vol)))
	}

	switch act {
	case models.ActionBuy:
		bullets = append(bullets, fmt.Sprintf(pb.buyOrder, fmtMoney(decision.OrderValue), pb.currency,
			fmtFixed(decision.OrderQty, 4), fmtFixed(lastPrice, 3)))
	case models.ActionSell:
		bullets = append(bullets, fmt.Sprintf(pb.sellOrder, fmtMoney(decision.OrderValue), pb.currency,
			fmtFixed(decision.OrderQty, 4), fmtFixed(lastPrice, 3)))
	default:
		bullets = append(bullets, pb.holdOrder)
	}

	var risks []string
	if vol >= e.volHighTh {
		risks = append(risks, pb.riskVol)
	}
	if maxSev >= e.anomalySevereTh {
		risks = append(risks, pb.riskAnom)
	}
	if prof.Name == models.ProfileConservative && act == models.ActionBuy {
		risks = append(risks, pb.riskCons)
	}
	if prof.Name == models.ProfileAggressive && act == models.ActionSell {
		risks = append(risks, pb.riskAggr)
	}
	if len(risks) == 0 {
		risks = append(risks, pb.riskNone)
	}

	var next []string
	switch act {
	case models.ActionBuy:
		next = append(next, pb.nextBuy...)
	case models.ActionSell:
		next = append(next, pb.nextSell...)
	default:
		next = append(next, pb.nextHold...)
	}

	return models.Explanation{
		Headline:  headline,
		Summary:   summary,
		Bullets:   bullets,
		Risks:     risks,
		NextSteps: next,
		Debug: map[string]float64{
			"action_score":                   score,
			"signal_confidence":              signal.Confidence,
			"decision_confidence":            decision.Confidence,
			models.FeatureExpectedReturn:     expRet,
			models.FeatureVolatilityPred:     vol,
			models.FeatureSentimentScore:     sent,
			models.FeatureAnomalyMaxSeverity: maxSev,
		},
	}
}

func fmtFixed(x float64, places int32) string {
	return decimal.NewFromFloat(x).StringFixed(places)
}

// fmtPct renders a fraction as a percentage with two decimals, e.g. 0.0195 -> "1.95%".
func fmtPct(x float64) string {
	return decimal.NewFromFloat(x).Shift(2).StringFixed(2) + "%"
}

// fmtMoney renders x with two decimals and comma thousands separators.
func fmtMoney(x float64) string {
	s := decimal.NewFromFloat(x).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}
