package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinAdvisor/internal/domain/models"
	domrepo "FinAdvisor/internal/domain/repository"
	domsvc "FinAdvisor/internal/domain/service"
	"FinAdvisor/internal/services/portfolio"
	"FinAdvisor/pkg/logger"
)

var ErrUnknownProfile = errors.New("unknown risk profile")

// TradeInput is a manual trade request. A nil Price trades at the market price.
type TradeInput struct {
	Symbol      string
	Side        string
	Qty         float64
	Price       *float64
	Fees        float64
	ReasonCodes []string
}

// PortfolioUseCase manages registered portfolios and their manual operations.
type PortfolioUseCase struct {
	registry *portfolio.Registry
	market   domsvc.MarketData
	note     notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewPortfolioUseCase(registry *portfolio.Registry, market domsvc.MarketData, events domrepo.EventPublisher, metrics domrepo.Metrics, log *logger.Logger) *PortfolioUseCase {
	return &PortfolioUseCase{
		registry: registry,
		market:   market,
		note:     notifier{events: events, metrics: metrics, log: log},
		log:      log,
		now:      time.Now,
	}
}

// Create registers a portfolio. Unknown profile names are rejected here even
// though the catalog itself falls back to aggressive.
func (uc *PortfolioUseCase) Create(ctx context.Context, id, profile string, initialCash float64) (*models.PortfolioView, error) {
	name, ok := ResolveProfileName(profile)
	if !ok {
		return nil, fmt.Errorf("create portfolio with profile %q: %w", profile, ErrUnknownProfile)
	}
	acc, err := uc.registry.Create(id, name, initialCash)
	if err != nil {
		return nil, err
	}
	uc.log.Info("portfolio created",
		logger.String("portfolio", acc.ID),
		logger.String("profile", string(name)),
		logger.Float("initial_cash", initialCash),
	)
	return uc.View(ctx, acc.ID)
}

// View values the portfolio at current prices without recording a nav point.
// Flat positions are omitted.
func (uc *PortfolioUseCase) View(ctx context.Context, id string) (*models.PortfolioView, error) {
	var view *models.PortfolioView
	err := uc.registry.With(id, func(acc *portfolio.Account, l *portfolio.Ledger) error {
		prices := map[string]float64{}
		if syms := l.Symbols(); len(syms) > 0 {
			prices = uc.market.Prices(ctx, syms)
		}
		snap, err := l.Snapshot(prices, uc.now())
		if err != nil {
			return err
		}
		for s, p := range snap.Positions {
			if p.Qty <= 0 {
				delete(snap.Positions, s)
			}
		}
		view = &models.PortfolioView{
			ID:          acc.ID,
			Profile:     acc.Profile,
			InitialCash: l.InitialCash(),
			Snapshot:    snap,
			Metrics:     l.Metrics(),
		}
		return nil
	})
	return view, err
}

func (uc *PortfolioUseCase) Delete(_ context.Context, id string) error {
	if err := uc.registry.Delete(id); err != nil {
		return err
	}
	uc.log.Info("portfolio deleted", logger.String("portfolio", id))
	return nil
}

// Trade applies a manual trade and marks the portfolio to market on success.
func (uc *PortfolioUseCase) Trade(ctx context.Context, id string, in TradeInput) (*models.Trade, error) {
	var trade models.Trade
	var nav float64
	err := uc.registry.With(id, func(_ *portfolio.Account, l *portfolio.Ledger) error {
		price := uc.market.LastPrice(ctx, in.Symbol)
		if in.Price != nil {
			price = *in.Price
		}
		codes := make([]models.ReasonCode, 0, len(in.ReasonCodes))
		for _, c := range in.ReasonCodes {
			codes = append(codes, models.ReasonCode(c))
		}
		now := uc.now()
		t, err := l.ApplyTrade(in.Symbol, models.Side(in.Side), in.Qty, price, now, in.Fees, codes)
		if err != nil {
			return err
		}
		snap, err := l.MarkToMarket(uc.market.Prices(ctx, l.Symbols()), now)
		if err != nil {
			return fmt.Errorf("mark after trade: %w", err)
		}
		trade, nav = t, snap.NAV
		return nil
	})
	if err != nil {
		if uc.note.metrics != nil && IsValidationError(err) {
			uc.note.metrics.RecordTradeRejected(ErrorKind(err))
		}
		return nil, err
	}
	uc.note.trade(ctx, id, trade)
	uc.note.nav(id, nav)
	return &trade, nil
}

// Mark records a nav point at current prices.
func (uc *PortfolioUseCase) Mark(ctx context.Context, id string) (*models.PortfolioSnapshot, error) {
	var snap models.PortfolioSnapshot
	err := uc.registry.With(id, func(_ *portfolio.Account, l *portfolio.Ledger) error {
		var err error
		snap, err = l.MarkToMarket(uc.market.Prices(ctx, l.Symbols()), uc.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.note.nav(id, snap.NAV)
	return &snap, nil
}

// MarkAll marks every registered portfolio and returns how many succeeded.
func (uc *PortfolioUseCase) MarkAll(ctx context.Context) int {
	var ok int
	for _, id := range uc.registry.IDs() {
		if ctx.Err() != nil {
			break
		}
		if _, err := uc.Mark(ctx, id); err != nil {
			uc.log.Warn("mark to market failed", logger.String("portfolio", id), logger.Error(err))
			continue
		}
		ok++
	}
	return ok
}

// Count reports the number of registered portfolios.
func (uc *PortfolioUseCase) Count() int { return len(uc.registry.IDs()) }

func (uc *PortfolioUseCase) Metrics(_ context.Context, id string) (models.PerformanceMetrics, error) {
	var m models.PerformanceMetrics
	err := uc.registry.With(id, func(_ *portfolio.Account, l *portfolio.Ledger) error {
		m = l.Metrics()
		return nil
	})
	return m, err
}

func (uc *PortfolioUseCase) Trades(_ context.Context, id string) ([]models.Trade, error) {
	var out []models.Trade
	err := uc.registry.With(id, func(_ *portfolio.Account, l *portfolio.Ledger) error {
		out = l.Trades()
		return nil
	})
	return out, err
}

func (uc *PortfolioUseCase) NavHistory(_ context.Context, id string) ([]models.NavPoint, error) {
	var out []models.NavPoint
	err := uc.registry.With(id, func(_ *portfolio.Account, l *portfolio.Ledger) error {
		out = l.NavHistory()
		return nil
	})
	return out, err
}

// SetPrices updates the price book. Nothing is written if any price is non-positive.
func (uc *PortfolioUseCase) SetPrices(ctx context.Context, prices map[string]float64) (int, error) {
	for sym, px := range prices {
		if !(px > 0) {
			return 0, fmt.Errorf("set price %s=%v: %w", sym, px, domsvc.ErrInvalidPrice)
		}
	}
	var n int
	for sym, px := range prices {
		if err := uc.market.SetPrice(ctx, sym, px); err != nil {
			return n, fmt.Errorf("set price %s: %w", sym, err)
		}
		n++
	}
	return n, nil
}
