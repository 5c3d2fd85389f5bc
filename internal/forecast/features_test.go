package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/domain/models"
)

var baseTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func rampBars(n int, step time.Duration) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		price := 100.0 + float64(i)
		bars[i] = models.Bar{
			Time:   baseTime.Add(time.Duration(i) * step),
			Open:   price - 0.5,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 5 + float64(i%7),
		}
	}
	return bars
}

func TestResampleFillsGaps(t *testing.T) {
	bars := []models.Bar{
		{Time: baseTime, Close: 1, Volume: 10},
		{Time: baseTime.Add(time.Minute), Close: 2, Volume: 20},
		{Time: baseTime.Add(3 * time.Minute), Close: 4, Volume: 40},
	}

	out := Resample(bars, time.Minute, 0)
	require.Len(t, out, 4)
	assert.Equal(t, baseTime.Add(2*time.Minute), out[2].Time)
	assert.Equal(t, 2.0, out[2].Close, "gap carries previous bar forward")
	assert.Equal(t, 4.0, out[3].Close)
}

func TestResampleCapsToMaxPoints(t *testing.T) {
	out := Resample(rampBars(50, time.Minute), time.Minute, 10)
	require.Len(t, out, 10)
	assert.Equal(t, 149.0, out[9].Close)
	assert.Equal(t, 140.0, out[0].Close)
}

func TestResampleEmptyInput(t *testing.T) {
	assert.Nil(t, Resample(nil, time.Minute, 0))
}

func TestBuildSupervisedAlignsTargets(t *testing.T) {
	bars := rampBars(100, time.Minute)
	sup, err := BuildSupervised(bars, 1)
	require.NoError(t, err)

	// rows run from the warmup boundary to the penultimate bar
	require.Len(t, sup.X, 100-warmup-1)
	assert.Equal(t, bars[warmup].Time, sup.Times[0])
	assert.Equal(t, bars[warmup+1].Close, sup.Y[0])
	assert.Equal(t, bars[len(bars)-1].Close, sup.Latest[CloseCol])
	assert.Equal(t, bars[len(bars)-1].Time, sup.LatestTime)
}

func TestBuildSupervisedRowShape(t *testing.T) {
	sup, err := BuildSupervised(rampBars(100, time.Minute), 1)
	require.NoError(t, err)
	for _, row := range sup.X {
		assert.Len(t, row, numFeatures)
		assert.True(t, rowFinite(row))
	}
}

func TestBuildSupervisedTooShort(t *testing.T) {
	_, err := BuildSupervised(rampBars(40, time.Minute), 1)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestBuildSupervisedRejectsBadHorizon(t *testing.T) {
	_, err := BuildSupervised(rampBars(100, time.Minute), 0)
	assert.Error(t, err)
}
