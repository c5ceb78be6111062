package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"FinAdvisor/internal/domain/models"
)

var (
	ErrInvalidInitialCash   = errors.New("initial cash must be > 0")
	ErrInvalidSide          = errors.New("side must be BUY or SELL")
	ErrInvalidAmount        = errors.New("qty and price must be > 0, fees >= 0")
	ErrInsufficientCash     = errors.New("insufficient cash")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrMissingPrice         = errors.New("missing price for held symbol")
)

// Archiver receives records evicted from the in-memory history.
type Archiver interface {
	ArchiveTrades(trades []models.Trade)
	ArchiveNav(points []models.NavPoint)
}

type LedgerOption func(*Ledger)

// WithHistoryLimit bounds the trade log and nav history to the last n entries.
// n <= 0 keeps everything.
func WithHistoryLimit(n int) LedgerOption {
	return func(l *Ledger) { l.historyLimit = n }
}

// WithArchiver forwards evicted records to a.
func WithArchiver(a Archiver) LedgerOption {
	return func(l *Ledger) { l.archiver = a }
}

// WithClock replaces time.Now for default timestamps.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// Ledger is a simulated cash-and-positions account at weighted-average cost.
//
// Ledger has no internal synchronization. Callers must serialize ApplyTrade
// and MarkToMarket per instance; Registry.With does that per portfolio id.
type Ledger struct {
	initialCash float64
	cash        float64
	realizedPnL float64
	positions   map[string]*models.Position
	trades      []models.Trade
	navHistory  []models.NavPoint

	historyLimit int
	archiver     Archiver
	now          func() time.Time
}

func NewLedger(initialCash float64, opts ...LedgerOption) (*Ledger, error) {
	if !(initialCash > 0) {
		return nil, fmt.Errorf("new ledger with %v: %w", initialCash, ErrInvalidInitialCash)
	}
	l := &Ledger{
		initialCash: initialCash,
		cash:        initialCash,
		positions:   make(map[string]*models.Position),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Ledger) InitialCash() float64 { return l.initialCash }

func (l *Ledger) Cash() float64 { return l.cash }

func (l *Ledger) RealizedPnL() float64 { return l.realizedPnL }

// position returns the position for symbol, creating it on first reference.
func (l *Ledger) position(symbol string) *models.Position {
	p, ok := l.positions[symbol]
	if !ok {
		p = &models.Position{Symbol: symbol}
		l.positions[symbol] = p
	}
	return p
}

// Position returns a copy of the holding for symbol. Unknown symbols report zero.
func (l *Ledger) Position(symbol string) models.Position {
	if p, ok := l.positions[symbol]; ok {
		return *p
	}
	return models.Position{Symbol: symbol}
}

// Positions returns a copy of every position ever referenced, including flat ones.
func (l *Ledger) Positions() map[string]models.Position {
	out := make(map[string]models.Position, len(l.positions))
	for s, p := range l.positions {
		out[s] = *p
	}
	return out
}

// Symbols lists the referenced symbols in sorted order.
func (l *Ledger) Symbols() []string {
	out := make([]string, 0, len(l.positions))
	for s := range l.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// HeldSymbols lists symbols with a strictly positive quantity.
func (l *Ledger) HeldSymbols() []string {
	out := make([]string, 0, len(l.positions))
	for s, p := range l.positions {
		if p.Qty > 0 {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Trades returns a copy of the retained trade log.
func (l *Ledger) Trades() []models.Trade {
	out := make([]models.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// NavHistory returns a copy of the retained nav history.
func (l *Ledger) NavHistory() []models.NavPoint {
	out := make([]models.NavPoint, len(l.navHistory))
	copy(out, l.navHistory)
	return out
}

// ApplyTrade executes a simulated fill. A failed trade leaves the ledger unchanged.
// A zero ts means now.
func (l *Ledger) ApplyTrade(symbol string, side models.Side, qty, price float64, ts time.Time, fees float64, reasonCodes []models.ReasonCode) (models.Trade, error) {
	side = models.Side(strings.ToUpper(strings.TrimSpace(string(side))))
	if !side.Valid() {
		return models.Trade{}, fmt.Errorf("apply trade %s %q: %w", symbol, side, ErrInvalidSide)
	}
	if !(qty > 0) || !(price > 0) || !(fees >= 0) {
		return models.Trade{}, fmt.Errorf("apply trade %s qty=%v price=%v fees=%v: %w", symbol, qty, price, fees, ErrInvalidAmount)
	}
	if ts.IsZero() {
		ts = l.now()
	}

	switch side {
	case models.SideBuy:
		totalCost := qty*price + fees
		if totalCost > l.cash {
			return models.Trade{}, fmt.Errorf("buy %s cost=%.2f cash=%.2f: %w", symbol, totalCost, l.cash, ErrInsufficientCash)
		}
		pos := l.position(symbol)
		newQty := pos.Qty + qty
		pos.AvgPrice = (pos.Qty*pos.AvgPrice + qty*price + fees) / newQty
		pos.Qty = newQty
		l.cash -= totalCost

	case models.SideSell:
		held := l.Position(symbol).Qty
		if qty > held {
			return models.Trade{}, fmt.Errorf("sell %s qty=%v held=%v: %w", symbol, qty, held, ErrInsufficientQuantity)
		}
		pos := l.position(symbol)
		l.realizedPnL += qty*(price-pos.AvgPrice) - fees
		l.cash += qty*price - fees
		pos.Qty -= qty
		if pos.Qty == 0 {
			pos.AvgPrice = 0
		}
	}

	codes := make([]models.ReasonCode, len(reasonCodes))
	copy(codes, reasonCodes)
	t := models.Trade{
		ID:          uuid.NewString(),
		Timestamp:   ts,
		Symbol:      symbol,
		Side:        side,
		Qty:         qty,
		Price:       price,
		Fees:        fees,
		ReasonCodes: codes,
	}
	l.trades = append(l.trades, t)
	l.trimTrades()
	return t, nil
}

// NAV values cash plus every held position at the given prices.
func (l *Ledger) NAV(prices map[string]float64) (float64, error) {
	mv, _, err := l.value(prices)
	if err != nil {
		return 0, err
	}
	return l.cash + mv, nil
}

func (l *Ledger) value(prices map[string]float64) (marketValue, unrealized float64, err error) {
	for s, p := range l.positions {
		if p.Qty <= 0 {
			continue
		}
		px, ok := prices[s]
		if !ok {
			return 0, 0, fmt.Errorf("value %s: %w", s, ErrMissingPrice)
		}
		marketValue += p.Qty * px
		unrealized += p.Qty * (px - p.AvgPrice)
	}
	return marketValue, unrealized, nil
}

// Snapshot values the ledger without recording a nav point.
func (l *Ledger) Snapshot(prices map[string]float64, ts time.Time) (models.PortfolioSnapshot, error) {
	if ts.IsZero() {
		ts = l.now()
	}
	mv, unrealized, err := l.value(prices)
	if err != nil {
		return models.PortfolioSnapshot{}, err
	}
	px := make(map[string]float64, len(prices))
	for s, v := range prices {
		px[s] = v
	}
	return models.PortfolioSnapshot{
		Timestamp:     ts,
		Cash:          l.cash,
		Positions:     l.Positions(),
		Prices:        px,
		NAV:           l.cash + mv,
		UnrealizedPnL: unrealized,
		RealizedPnL:   l.realizedPnL,
	}, nil
}

// MarkToMarket values the ledger and appends the resulting nav point.
// Timestamps are expected in non-decreasing order; this is not checked.
func (l *Ledger) MarkToMarket(prices map[string]float64, ts time.Time) (models.PortfolioSnapshot, error) {
	snap, err := l.Snapshot(prices, ts)
	if err != nil {
		return snap, err
	}
	l.navHistory = append(l.navHistory, models.NavPoint{Timestamp: snap.Timestamp, NAV: snap.NAV})
	l.trimNav()
	return snap, nil
}

// Metrics computes ROI, Sharpe and max drawdown over the retained nav history.
func (l *Ledger) Metrics() models.PerformanceMetrics {
	navs := make([]float64, len(l.navHistory))
	for i, p := range l.navHistory {
		navs[i] = p.NAV
	}
	return ComputeMetrics(navs)
}

func (l *Ledger) trimTrades() {
	if l.historyLimit <= 0 || len(l.trades) <= l.historyLimit {
		return
	}
	n := len(l.trades) - l.historyLimit
	evicted := make([]models.Trade, n)
	copy(evicted, l.trades[:n])
	l.trades = append(l.trades[:0:0], l.trades[n:]...)
	if l.archiver != nil {
		l.archiver.ArchiveTrades(evicted)
	}
}

func (l *Ledger) trimNav() {
	if l.historyLimit <= 0 || len(l.navHistory) <= l.historyLimit {
		return
	}
	n := len(l.navHistory) - l.historyLimit
	evicted := make([]models.NavPoint, n)
	copy(evicted, l.navHistory[:n])
	l.navHistory = append(l.navHistory[:0:0], l.navHistory[n:]...)
	if l.archiver != nil {
		l.archiver.ArchiveNav(evicted)
	}
}
