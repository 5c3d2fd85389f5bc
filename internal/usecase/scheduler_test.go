package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

func TestSchedulerStopsOnCancel(t *testing.T) {
	source := &fakeSource{bars: rampBars(100)}
	refresher, _ := newTestRefresher(t, source, nil, nil)
	scheduler := NewScheduler(refresher, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(ctx)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestSchedulerFiresBothCadencesOnFirstTick(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a real scheduler tick")
	}

	source := &fakeSource{bars: rampBars(100)}
	// Cadences far in the future so only the first tick fires.
	refresher, _ := newTestRefresher(t, source, nil, &models.Config{
		ModelRefreshSeconds: 3600,
		PriceRefreshSeconds: 3600,
	})
	scheduler := NewScheduler(refresher, logger.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	scheduler.Run(ctx)

	st := refresher.State()
	assert.Equal(t, models.StatusOK, st.Status)
	// The full refresh fetches one live quote itself; the price refresh
	// firing in the same tick fetches the second.
	assert.Equal(t, 2, source.latestCalls)
}
