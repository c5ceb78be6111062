package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"FinAdvisor/internal/domain/models"
	domrepo "FinAdvisor/internal/domain/repository"
	domsvc "FinAdvisor/internal/domain/service"
	"FinAdvisor/internal/services/portfolio"
	"FinAdvisor/pkg/logger"
)

// Providers groups the upstream signal sources of a recommendation cycle.
type Providers struct {
	Forecast  domsvc.ForecastProvider
	Sentiment domsvc.SentimentProvider
	Anomaly   domsvc.AnomalyProvider
}

type AdvisorOption func(*Advisor)

// WithSignalTimeout bounds the signal fetch phase of a cycle.
func WithSignalTimeout(d time.Duration) AdvisorOption {
	return func(a *Advisor) { a.timeout = d }
}

func WithEventPublisher(p domrepo.EventPublisher) AdvisorOption {
	return func(a *Advisor) { a.events = p }
}

func WithAdvisorMetrics(m domrepo.Metrics) AdvisorOption {
	return func(a *Advisor) { a.metrics = m }
}

func WithAdvisorClock(now func() time.Time) AdvisorOption {
	return func(a *Advisor) { a.now = now }
}

// Advisor runs recommendation cycles for registered portfolios: fetch signals,
// aggregate, size against the ledger, decide, and optionally execute.
type Advisor struct {
	agg       *SignalAggregator
	engine    *DecisionEngine
	explainer *Explainer
	providers Providers
	market    domsvc.MarketData
	registry  *portfolio.Registry

	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewAdvisor(
	agg *SignalAggregator,
	engine *DecisionEngine,
	explainer *Explainer,
	providers Providers,
	market domsvc.MarketData,
	registry *portfolio.Registry,
	log *logger.Logger,
	opts ...AdvisorOption,
) *Advisor {
	a := &Advisor{
		agg:       agg,
		engine:    engine,
		explainer: explainer,
		providers: providers,
		market:    market,
		registry:  registry,
		events:    domrepo.NopPublisher{},
		log:       log,
		timeout:   5 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type fetched struct {
	forecast  *models.ForecastSignal
	sentiment *models.SentimentSignal
	anomalies []models.AnomalySignal
	errs      map[string]string
}

// fetchSignals queries every provider for every symbol concurrently. Failures
// are recorded per symbol and the signal is treated as absent.
func (a *Advisor) fetchSignals(ctx context.Context, symbols []string, asOf time.Time) []fetched {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out := make([]fetched, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup
	fail := func(i int, name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if out[i].errs == nil {
			out[i].errs = map[string]string{}
		}
		out[i].errs[name] = err.Error()
		if a.metrics != nil {
			a.metrics.RecordError("provider_" + name)
		}
	}

	for i, sym := range symbols {
		wg.Add(3)
		go func() {
			defer wg.Done()
			v, err := a.providers.Forecast.Forecast(ctx, sym, asOf)
			if err != nil {
				fail(i, "forecast", err)
				return
			}
			mu.Lock()
			out[i].forecast = v
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			v, err := a.providers.Sentiment.Sentiment(ctx, sym, asOf)
			if err != nil {
				fail(i, "sentiment", err)
				return
			}
			mu.Lock()
			out[i].sentiment = v
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			v, err := a.providers.Anomaly.Recent(ctx, sym, asOf)
			if err != nil {
				fail(i, "anomalies", err)
				return
			}
			mu.Lock()
			out[i].anomalies = v
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

// BuildContext derives the sizing context for symbol from the ledger. Every
// referenced symbol is priced from prices, with symbol itself at lastPrice.
func BuildContext(l *portfolio.Ledger, symbol string, lastPrice float64, prices map[string]float64) models.PortfolioContext {
	px := make(map[string]float64, len(prices)+1)
	for s, v := range prices {
		px[s] = v
	}
	px[symbol] = lastPrice

	equity, err := l.NAV(px)
	if err != nil {
		equity = 0
	}
	qty := l.Position(symbol).Qty
	value := qty * lastPrice
	var weight float64
	if equity > 0 {
		weight = value / equity
	}
	return models.PortfolioContext{
		Cash:          l.Cash(),
		TotalEquity:   equity,
		PositionQty:   qty,
		PositionValue: value,
		CurrentWeight: weight,
		LastPrice:     lastPrice,
	}
}

// decide aggregates and sizes every symbol against l. Callers hold the
// portfolio lock so the decisions see a consistent ledger.
func (a *Advisor) decide(
	ctx context.Context,
	acc *portfolio.Account,
	l *portfolio.Ledger,
	symbols []string,
	signals []fetched,
	asOf time.Time,
) ([]models.Recommendation, map[string]map[string]string) {
	items := make([]models.Recommendation, 0, len(symbols))
	errs := map[string]map[string]string{}
	prices := a.market.Prices(ctx, mergeSymbols(l.Symbols(), symbols))
	for i, sym := range symbols {
		last := prices[sym]
		sig := a.agg.AggregateOne(sym, asOf, signals[i].forecast, signals[i].sentiment, signals[i].anomalies, &last)
		pctx := BuildContext(l, sym, last, prices)
		dec := a.engine.DecideOne(sig, string(acc.Profile), pctx)
		items = append(items, models.Recommendation{Signal: sig, Context: pctx, Decision: dec})
		if len(signals[i].errs) > 0 {
			errs[sym] = signals[i].errs
		}
	}
	if len(errs) == 0 {
		errs = nil
	}
	return items, errs
}

// Recommend runs one cycle for the given symbols. Decisions come back in
// request order; provider failures never fail the cycle.
func (a *Advisor) Recommend(ctx context.Context, portfolioID string, symbols []string, asOf time.Time) (*models.RecommendationSet, error) {
	start := time.Now()
	acc, err := a.registry.Get(portfolioID)
	if err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = a.now()
	}
	symbols = normalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("recommend %s: %w", portfolioID, ErrNoSymbols)
	}

	signals := a.fetchSignals(ctx, symbols, asOf)

	res := &models.RecommendationSet{
		PortfolioID: portfolioID,
		Profile:     acc.Profile,
		AsOf:        asOf,
	}
	err = a.registry.With(portfolioID, func(acc *portfolio.Account, l *portfolio.Ledger) error {
		res.Items, res.Errors = a.decide(ctx, acc, l, symbols, signals, asOf)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, it := range res.Items {
		a.notify().decision(ctx, portfolioID, acc.Profile, it.Decision)
	}
	if a.metrics != nil {
		a.metrics.RecordLatency("recommend_seconds", time.Since(start).Seconds())
	}
	a.log.Debug("recommendation cycle",
		logger.String("portfolio", portfolioID),
		logger.Strings("symbols", symbols),
		logger.Int("failed", len(res.Errors)),
		logger.Duration("elapsed_ms", time.Since(start)),
	)
	return res, nil
}

// Explain runs a cycle for one symbol and renders the decision in lang.
func (a *Advisor) Explain(ctx context.Context, portfolioID, symbol string, lang models.Lang) (*models.ExplainedRecommendation, error) {
	set, err := a.Recommend(ctx, portfolioID, []string{symbol}, time.Time{})
	if err != nil {
		return nil, err
	}
	rec := set.Items[0]
	return &models.ExplainedRecommendation{
		Recommendation: rec,
		Lang:           lang,
		Explanation:    a.explainer.Explain(rec.Decision, rec.Signal, string(set.Profile), lang),
	}, nil
}

// affordableQty returns the largest qty <= want whose cost plus fees fits in
// cash. It is zero or negative when fees alone exhaust cash.
func affordableQty(want, price, fees, cash float64) float64 {
	qty := math.Min(want, (cash-fees)/price)
	for qty > 0 && qty*price+fees > cash {
		qty = math.Nextafter(qty, 0)
	}
	return qty
}

// ApplyDecision decides one symbol and executes a BUY or SELL against the
// ledger at the decision's last price, then marks to market. The decision and
// the trade run under one portfolio lock. A BUY is shrunk so its cost plus
// fees fits in cash and becomes a HOLD when nothing is affordable. HOLD leaves
// the ledger untouched.
func (a *Advisor) ApplyDecision(ctx context.Context, portfolioID, symbol string, fees float64) (*models.AppliedDecision, error) {
	acc, err := a.registry.Get(portfolioID)
	if err != nil {
		return nil, err
	}
	symbols := normalizeSymbols([]string{symbol})
	if len(symbols) == 0 {
		return nil, fmt.Errorf("apply decision %s: %w", portfolioID, ErrNoSymbols)
	}
	asOf := a.now()
	signals := a.fetchSignals(ctx, symbols, asOf)

	out := &models.AppliedDecision{}
	err = a.registry.With(portfolioID, func(acc *portfolio.Account, l *portfolio.Ledger) error {
		items, _ := a.decide(ctx, acc, l, symbols, signals, asOf)
		out.Recommendation = items[0]
		dec := &out.Decision
		side, ok := models.SideFor(dec.Action)
		if !ok || !(dec.OrderQty > 0) {
			return nil
		}

		price := out.Context.LastPrice
		qty := dec.OrderQty
		if side == models.SideBuy {
			qty = affordableQty(qty, price, fees, l.Cash())
			if !(qty > 0) {
				dec.Action = models.ActionHold
				dec.OrderQty, dec.OrderValue = 0, 0
				dec.TargetWeight = out.Context.CurrentWeight
				return nil
			}
			dec.OrderQty, dec.OrderValue = qty, qty*price
		}

		now := a.now()
		t, err := l.ApplyTrade(dec.Symbol, side, qty, price, now, fees, dec.ReasonCodes)
		if err != nil {
			return err
		}
		prices := a.market.Prices(ctx, l.Symbols())
		prices[dec.Symbol] = price
		snap, err := l.MarkToMarket(prices, now)
		if err != nil {
			return fmt.Errorf("mark after apply: %w", err)
		}
		out.Trade = &t
		out.Snapshot = &snap
		return nil
	})
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordTradeRejected(ErrorKind(err))
		}
		return nil, err
	}

	a.notify().decision(ctx, portfolioID, acc.Profile, out.Decision)
	if out.Trade == nil {
		return out, nil
	}
	a.notify().trade(ctx, portfolioID, *out.Trade)
	a.notify().nav(portfolioID, out.Snapshot.NAV)
	a.log.Info("decision applied",
		logger.String("portfolio", portfolioID),
		logger.String("symbol", out.Trade.Symbol),
		logger.String("side", string(out.Trade.Side)),
		logger.Float("qty", out.Trade.Qty),
		logger.Float("price", out.Trade.Price),
	)
	return out, nil
}

func (a *Advisor) notify() notifier {
	return notifier{events: a.events, metrics: a.metrics, log: a.log}
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// mergeSymbols returns the union of a and b, keeping first-seen order.
func mergeSymbols(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
