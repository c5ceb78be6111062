package usecase

import (
	"context"
	"time"

	domrepo "FinAdvisor/internal/domain/repository"
	"FinAdvisor/pkg/logger"
)

// PriceFeed pumps a live price stream into the price book.
type PriceFeed struct {
	stream  domrepo.PriceStream
	ticks   *PriceTicksHandler
	metrics domrepo.Metrics
	log     *logger.Logger

	// per-symbol throttle; zero accepts every tick
	minInterval time.Duration
	lastSeen    map[string]time.Time
}

func NewPriceFeed(stream domrepo.PriceStream, ticks *PriceTicksHandler, metrics domrepo.Metrics, log *logger.Logger, minInterval time.Duration) *PriceFeed {
	return &PriceFeed{
		stream:      stream,
		ticks:       ticks,
		metrics:     metrics,
		log:         log,
		minInterval: minInterval,
		lastSeen:    make(map[string]time.Time),
	}
}

func (f *PriceFeed) IsConnected() bool { return f.stream.IsConnected() }

func (f *PriceFeed) Start(ctx context.Context) error {
	if err := f.stream.Connect(ctx); err != nil {
		return err
	}
	if err := f.stream.Subscribe(ctx); err != nil {
		return err
	}
	tickCh, errCh := f.stream.Read(ctx)
	go f.consume(ctx, tickCh, errCh)
	return nil
}

func (f *PriceFeed) consume(ctx context.Context, tickCh <-chan *domrepo.PriceTick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err == nil {
				continue
			}
			f.metrics.RecordError("stream")
			f.log.Warn("price stream error, reconnecting", logger.Error(err))
			if rerr := f.stream.Reconnect(ctx); rerr != nil {
				f.log.Error("price stream reconnect failed", logger.Error(rerr))
			}
		case t := <-tickCh:
			if t == nil || !f.accept(t) {
				continue
			}
			if err := f.ticks.HandleTick(ctx, t); err != nil {
				f.log.Debug("tick rejected", logger.String("symbol", t.Symbol), logger.Error(err))
			}
		}
	}
}

// accept applies the per-symbol throttle. Only the consume goroutine calls it.
func (f *PriceFeed) accept(t *domrepo.PriceTick) bool {
	if f.minInterval <= 0 {
		return true
	}
	now := time.Now()
	if last, ok := f.lastSeen[t.Symbol]; ok && now.Sub(last) < f.minInterval {
		return false
	}
	f.lastSeen[t.Symbol] = now
	return true
}

func (f *PriceFeed) Stop() error { return f.stream.Close() }
