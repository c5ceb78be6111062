package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions      *prometheus.CounterVec
	trades         *prometheus.CounterVec
	tradesRejected *prometheus.CounterVec
	nav            *prometheus.GaugeVec
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a recorder registered on reg; nil uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_decisions_total",
				Help: "Decisions produced by recommendation cycles",
			},
			[]string{"profile", "action"},
		),
		trades: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_trades_total",
				Help: "Trades applied to portfolio ledgers",
			},
			[]string{"side", "symbol"},
		),
		tradesRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_trades_rejected_total",
				Help: "Trades rejected by the ledger",
			},
			[]string{"kind"},
		),
		nav: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "advisor_portfolio_nav",
				Help: "Last marked net asset value per portfolio",
			},
			[]string{"portfolio"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "advisor_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "advisor_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordDecision(profile, action string) {
	r.decisions.WithLabelValues(profile, action).Inc()
}

func (r *Recorder) RecordTrade(side, symbol string) {
	r.trades.WithLabelValues(side, symbol).Inc()
}

func (r *Recorder) RecordTradeRejected(kind string) {
	r.tradesRejected.WithLabelValues(kind).Inc()
}

// RecordNav sets the portfolio's nav gauge.
func (r *Recorder) RecordNav(portfolioID string, nav float64) {
	r.nav.WithLabelValues(portfolioID).Set(nav)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
