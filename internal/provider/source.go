package provider

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

// Chain tries each source in order until one returns data. Total failure
// yields an empty result and a nil error: callers map "no bars" to their
// own degradation path, never to a transport error.
type Chain struct {
	sources []repository.HistorySource
	limiter *Limiter
	rate    float64
	log     *logger.Logger
}

// NewChain builds a fallback chain over sources, each guarded by a token
// bucket refilling at ratePerSec.
func NewChain(sources []repository.HistorySource, ratePerSec float64, log *logger.Logger) *Chain {
	if ratePerSec <= 0 {
		ratePerSec = 5
	}
	return &Chain{
		sources: sources,
		limiter: NewLimiter(),
		rate:    ratePerSec,
		log:     log,
	}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) History(ctx context.Context, ticker string, lookback, granularity time.Duration, maxPoints int) ([]models.Bar, error) {
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !c.limiter.Allow(src.Name(), c.rate, c.rate) {
			c.log.Warn("rate limit exhausted, skipping source",
				logger.String("source", src.Name()))
			continue
		}

		bars, err := src.History(ctx, ticker, lookback, granularity, maxPoints)
		if err != nil {
			c.log.Warn("history fetch failed, trying next source",
				logger.String("source", src.Name()),
				logger.String("ticker", ticker),
				logger.Error(err))
			continue
		}
		if len(bars) == 0 {
			c.log.Warn("source returned no bars, trying next source",
				logger.String("source", src.Name()),
				logger.String("ticker", ticker))
			continue
		}
		return bars, nil
	}
	return nil, nil
}

func (c *Chain) Latest(ctx context.Context, ticker string) (*models.Bar, error) {
	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !c.limiter.Allow(src.Name(), c.rate, c.rate) {
			continue
		}

		bar, err := src.Latest(ctx, ticker)
		if err != nil {
			c.log.Warn("latest quote fetch failed, trying next source",
				logger.String("source", src.Name()),
				logger.String("ticker", ticker),
				logger.Error(err))
			continue
		}
		if bar != nil {
			return bar, nil
		}
	}
	return nil, nil
}
