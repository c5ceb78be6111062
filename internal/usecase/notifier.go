package usecase

import (
	"context"

	"FinAdvisor/internal/domain/models"
	domrepo "FinAdvisor/internal/domain/repository"
	"FinAdvisor/pkg/logger"
)

// notifier records and publishes portfolio events. Publishing is best effort:
// failures are logged and counted, never returned.
type notifier struct {
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	log     *logger.Logger
}

func (n notifier) decision(ctx context.Context, portfolioID string, profile models.ProfileName, d models.Decision) {
	if n.metrics != nil {
		n.metrics.RecordDecision(string(profile), string(d.Action))
	}
	if n.events == nil {
		return
	}
	if err := n.events.PublishDecision(ctx, portfolioID, d); err != nil {
		n.log.Warn("publish decision failed",
			logger.String("portfolio", portfolioID),
			logger.String("symbol", d.Symbol),
			logger.Error(err),
		)
		if n.metrics != nil {
			n.metrics.RecordError("publish_decision")
		}
	}
}

func (n notifier) trade(ctx context.Context, portfolioID string, t models.Trade) {
	if n.metrics != nil {
		n.metrics.RecordTrade(string(t.Side), t.Symbol)
	}
	if n.events == nil {
		return
	}
	if err := n.events.PublishTrade(ctx, portfolioID, t); err != nil {
		n.log.Warn("publish trade failed",
			logger.String("portfolio", portfolioID),
			logger.String("trade_id", t.ID),
			logger.Error(err),
		)
		if n.metrics != nil {
			n.metrics.RecordError("publish_trade")
		}
	}
}

func (n notifier) nav(portfolioID string, nav float64) {
	if n.metrics != nil {
		n.metrics.RecordNav(portfolioID, nav)
	}
}
