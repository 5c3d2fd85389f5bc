package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(NewFSModelStore(t.TempDir()), logger.Nop())
}

func minuteHorizon() Horizon {
	return Horizon{Kind: KindMinute, Steps: 1, Granularity: time.Minute}
}

func TestEngineTrainsThenReuses(t *testing.T) {
	eng := testEngine(t)
	bars := rampBars(300, time.Minute)
	h := minuteHorizon()

	first, err := eng.Run(context.Background(), "BTC-USD", bars, h, 0, false)
	require.NoError(t, err)
	assert.False(t, first.Reused)

	second, err := eng.Run(context.Background(), "BTC-USD", bars, h, 0, false)
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.InDelta(t, first.Forecast, second.Forecast, 1e-9)
}

func TestEngineForceRetrainBypassesArtifact(t *testing.T) {
	eng := testEngine(t)
	bars := rampBars(300, time.Minute)
	h := minuteHorizon()

	_, err := eng.Run(context.Background(), "BTC-USD", bars, h, 0, false)
	require.NoError(t, err)

	again, err := eng.Run(context.Background(), "BTC-USD", bars, h, 0, true)
	require.NoError(t, err)
	assert.False(t, again.Reused)
}

func TestEngineForecastExceedsLastCloseOnRisingRamp(t *testing.T) {
	eng := testEngine(t)
	bars := rampBars(300, time.Minute)

	res, err := eng.Run(context.Background(), "BTC-USD", bars, minuteHorizon(), 0, false)
	require.NoError(t, err)

	lastClose := bars[len(bars)-1].Close
	assert.Greater(t, res.Forecast, lastClose,
		"steadily rising prices must project above the last close")
	assert.Equal(t, bars[len(bars)-1].Time.Add(time.Minute), res.ForecastTime)
}

func TestEngineWalkForwardMetricsOnRamp(t *testing.T) {
	eng := testEngine(t)
	bars := rampBars(300, time.Minute)

	res, err := eng.Run(context.Background(), "BTC-USD", bars, minuteHorizon(), 0, false)
	require.NoError(t, err)

	// the ramp is perfectly learnable, so trailing error stays small
	assert.Less(t, res.Metrics.MAE, 1.0)
	assert.GreaterOrEqual(t, res.Metrics.RMSE, res.Metrics.MAE)
	assert.Greater(t, res.Metrics.R2, 0.9)
	assert.Len(t, res.Predicted, len(res.Actual))
}

func TestEngineInsufficientHistory(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.Run(context.Background(), "BTC-USD", rampBars(50, time.Minute), minuteHorizon(), 0, false)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestEngineEmptyHistory(t *testing.T) {
	eng := testEngine(t)

	_, err := eng.Run(context.Background(), "BTC-USD", nil, minuteHorizon(), 0, false)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestEngineSeparateArtifactsPerHorizonKind(t *testing.T) {
	store := NewFSModelStore(t.TempDir())
	eng := NewEngine(store, logger.Nop())
	bars := rampBars(700, time.Minute)

	_, err := eng.Run(context.Background(), "BTC-USD", bars, minuteHorizon(), 0, false)
	require.NoError(t, err)

	_, err = store.Load("BTC-USD", KindMinute)
	require.NoError(t, err)
	_, err = store.Load("BTC-USD", KindHour)
	assert.ErrorIs(t, err, models.ErrArtifactNotFound)
}

func TestEngineTrainWindowLimitsRows(t *testing.T) {
	eng := testEngine(t)
	bars := rampBars(400, time.Minute)

	res, err := eng.Run(context.Background(), "BTC-USD", bars, minuteHorizon(), 50, false)
	require.NoError(t, err)
	assert.Greater(t, res.Forecast, bars[len(bars)-1].Close)
}

func TestTemporalSplitBounds(t *testing.T) {
	for _, n := range []int{1, 2, 5, 10, 24, 100, 1000} {
		cut := splitIndex(n)
		assert.GreaterOrEqual(t, cut, 1, "n=%d", n)
		assert.LessOrEqual(t, cut, n, "n=%d", n)
		if n >= 2 {
			assert.Less(t, cut, n, "validation slice must be non-empty for n=%d", n)
		}
	}
}

func TestTemporalSplitTrainPrecedesValidation(t *testing.T) {
	sup, err := BuildSupervised(rampBars(200, time.Minute), 1)
	require.NoError(t, err)

	for i := 1; i < len(sup.Times); i++ {
		require.True(t, sup.Times[i].After(sup.Times[i-1]), "supervised rows must stay in time order")
	}

	cut := splitIndex(len(sup.X))
	assert.True(t, sup.Times[cut-1].Before(sup.Times[cut]),
		"last training row must precede the first validation row")
}
