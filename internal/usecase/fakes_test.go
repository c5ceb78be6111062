package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"FinAdvisor/internal/domain/models"
	"FinAdvisor/internal/services/portfolio"
	"FinAdvisor/internal/services/providers"
	"FinAdvisor/pkg/logger"
)

type stubForecast struct {
	fc  *models.ForecastSignal
	err error
}

func (s stubForecast) Forecast(_ context.Context, symbol string, asOf time.Time) (*models.ForecastSignal, error) {
	if s.err != nil || s.fc == nil {
		return nil, s.err
	}
	out := *s.fc
	out.Symbol, out.AsOf = symbol, asOf
	return &out, nil
}

type stubSentiment struct {
	sn  *models.SentimentSignal
	err error
}

func (s stubSentiment) Sentiment(_ context.Context, symbol string, asOf time.Time) (*models.SentimentSignal, error) {
	if s.err != nil || s.sn == nil {
		return nil, s.err
	}
	out := *s.sn
	out.Symbol, out.AsOf = symbol, asOf
	return &out, nil
}

type stubAnomaly struct {
	an  []models.AnomalySignal
	err error
}

func (s stubAnomaly) Recent(context.Context, string, time.Time) ([]models.AnomalySignal, error) {
	return s.an, s.err
}

// bullishProviders always produce a strong BUY for a moderate profile.
func bullishProviders() Providers {
	return Providers{
		Forecast:  stubForecast{fc: &models.ForecastSignal{ExpectedReturn: 0.05, VolatilityPred: 0.01, Confidence: 0.9}},
		Sentiment: stubSentiment{sn: &models.SentimentSignal{SentimentScore: 0.8, Confidence: 0.9}},
		Anomaly:   stubAnomaly{},
	}
}

var errUpstream = errors.New("upstream unavailable")

type recordingMetrics struct {
	mu        sync.Mutex
	decisions map[string]int
	trades    int
	rejected  []string
	navs      map[string]float64
	errs      []string
	prices    map[string]float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{decisions: map[string]int{}, navs: map[string]float64{}, prices: map[string]float64{}}
}

func (m *recordingMetrics) RecordDecision(profile, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[profile+"/"+action]++
}

func (m *recordingMetrics) RecordTrade(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades++
}

func (m *recordingMetrics) RecordTradeRejected(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, kind)
}

func (m *recordingMetrics) RecordNav(id string, nav float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navs[id] = nav
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, kind)
}

func (m *recordingMetrics) RecordLastPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

type recordingPublisher struct {
	mu        sync.Mutex
	trades    []models.Trade
	decisions []models.Decision
	err       error
}

func (p *recordingPublisher) PublishTrade(_ context.Context, _ string, t models.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trades = append(p.trades, t)
	return p.err
}

func (p *recordingPublisher) PublishDecision(_ context.Context, _ string, d models.Decision) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decisions = append(p.decisions, d)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	registry  *portfolio.Registry
	market    *providers.PriceBook
	metrics   *recordingMetrics
	events    *recordingPublisher
	portfolio *PortfolioUseCase
	advisor   *Advisor
}

func newFixture(provs Providers, opts ...AdvisorOption) *fixture {
	f := &fixture{
		registry: portfolio.NewRegistry(),
		market:   providers.NewPriceBook(),
		metrics:  newRecordingMetrics(),
		events:   &recordingPublisher{},
	}
	log := logger.Nop()
	f.portfolio = NewPortfolioUseCase(f.registry, f.market, f.events, f.metrics, log)
	opts = append([]AdvisorOption{WithEventPublisher(f.events), WithAdvisorMetrics(f.metrics)}, opts...)
	f.advisor = NewAdvisor(NewSignalAggregator(), NewDecisionEngine(), NewExplainer(), provs, f.market, f.registry, log, opts...)
	return f
}
