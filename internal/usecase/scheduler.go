package usecase

import (
	"context"
	"time"

	"MarketPulse/pkg/logger"
)

// tickInterval is the scheduler's fixed clock granularity.
const tickInterval = time.Second

// Scheduler drives the refresher on two independent cadences read from the
// runtime config on every tick. Both fire on the first tick, and both may
// fire in the same tick. A failed refresh is logged and retried on the next
// due tick; the loop never stops except by context cancellation.
type Scheduler struct {
	refresher *Refresher
	log       *logger.Logger
}

func NewScheduler(refresher *Refresher, log *logger.Logger) *Scheduler {
	return &Scheduler{refresher: refresher, log: log}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	var lastFull, lastPrice time.Time

	s.log.Info("refresh scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("refresh scheduler stopped")
			return
		case <-ticker.C:
		}

		cfg := s.refresher.Config()
		fullEvery := time.Duration(cfg.ModelRefreshSeconds) * time.Second
		priceEvery := time.Duration(cfg.PriceRefreshSeconds) * time.Second

		if lastFull.IsZero() || time.Since(lastFull) >= fullEvery {
			lastFull = time.Now()
			if _, err := s.refresher.FullRefresh(ctx, false); err != nil {
				s.log.Warn("scheduled full refresh failed", logger.Error(err))
			}
		}

		if lastPrice.IsZero() || time.Since(lastPrice) >= priceEvery {
			lastPrice = time.Now()
			if _, err := s.refresher.PriceRefresh(ctx); err != nil {
				s.log.Warn("scheduled price refresh failed", logger.Error(err))
			}
		}
	}
}
