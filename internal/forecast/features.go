package forecast

import (
	"fmt"
	"math"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/util"
)

// Feature block layout. The raw OHLCV columns come first so the pipeline
// can recover the row close for delta regression.
const (
	colOpen = iota
	colHigh
	colLow
	colClose
	colVolume
	colReturn1
	colReturn5
	colLogReturn
	colRangeFrac
	colRollMean5
	colRollMean15
	colRollMean60
	colRollStd15
	colRollStd60
	colMomentum10
	colVolumeMean20
	colVolumeStd20
	colVolumeEMA20
	numFeatures
)

// CloseCol is the index of the raw close column inside a feature row.
const CloseCol = colClose

// warmup is the first row index with every rolling window populated.
const warmup = 60

// Supervised is the training view of a bar history: feature rows X aligned
// with targets Y (close horizonSteps bars ahead), plus the most recent
// feature row, which has no realized target and feeds the next-step forecast.
type Supervised struct {
	Times      []time.Time
	X          [][]float64
	Y          []float64
	Latest     []float64
	LatestTime time.Time
}

// Resample projects bars onto an even time grid at the given step,
// forward-filling gaps with the previous bar's values. Rows before the
// first real bar are dropped, and the result is capped to the most recent
// maxPoints rows when maxPoints > 0.
func Resample(bars []models.Bar, step time.Duration, maxPoints int) []models.Bar {
	if len(bars) == 0 || step <= 0 {
		return nil
	}

	start := bars[0].Time.Truncate(step)
	end := bars[len(bars)-1].Time.Truncate(step)

	out := make([]models.Bar, 0, end.Sub(start)/step+1)
	i := 0
	var last models.Bar
	have := false
	for t := start; !t.After(end); t = t.Add(step) {
		bucketEnd := t.Add(step)
		for i < len(bars) && bars[i].Time.Before(bucketEnd) {
			last = bars[i]
			have = true
			i++
		}
		if !have {
			continue
		}
		b := last
		b.Time = t
		out = append(out, b)
	}

	if maxPoints > 0 && len(out) > maxPoints {
		out = out[len(out)-maxPoints:]
	}
	return out
}

// BuildSupervised derives the feature block from resampled bars and aligns
// each row with the close horizonSteps bars ahead. Rows inside the rolling
// warmup window or carrying a non-finite feature are dropped.
func BuildSupervised(bars []models.Bar, horizonSteps int) (*Supervised, error) {
	if horizonSteps <= 0 {
		return nil, fmt.Errorf("horizon steps must be positive, got %d", horizonSteps)
	}
	if len(bars) <= warmup+horizonSteps {
		return nil, fmt.Errorf("%w: %d bars after resampling", models.ErrInsufficientData, len(bars))
	}

	ema := volumeEMA(bars, 20)

	sup := &Supervised{}
	for i := warmup; i < len(bars); i++ {
		row := featureRow(bars, i, ema[i])
		if !rowFinite(row) {
			continue
		}
		if i+horizonSteps < len(bars) {
			sup.Times = append(sup.Times, bars[i].Time)
			sup.X = append(sup.X, row)
			sup.Y = append(sup.Y, bars[i+horizonSteps].Close)
		}
		if i == len(bars)-1 {
			sup.Latest = row
			sup.LatestTime = bars[i].Time
		}
	}

	if len(sup.X) == 0 {
		return nil, fmt.Errorf("%w: no finite feature rows", models.ErrInsufficientData)
	}
	return sup, nil
}

func featureRow(bars []models.Bar, i int, volEMA float64) []float64 {
	b := bars[i]
	row := make([]float64, numFeatures)

	row[colOpen] = b.Open
	row[colHigh] = b.High
	row[colLow] = b.Low
	row[colClose] = b.Close
	row[colVolume] = b.Volume

	row[colReturn1] = ratio(b.Close, bars[i-1].Close) - 1
	row[colReturn5] = ratio(b.Close, bars[i-5].Close) - 1
	row[colLogReturn] = math.Log(ratio(b.Close, bars[i-1].Close))
	row[colRangeFrac] = safeDiv(b.High-b.Low, b.Close)

	row[colRollMean5] = rollingMean(bars, i, 5, closeOf)
	row[colRollMean15] = rollingMean(bars, i, 15, closeOf)
	row[colRollMean60] = rollingMean(bars, i, 60, closeOf)
	row[colRollStd15] = rollingStd(bars, i, 15, closeOf)
	row[colRollStd60] = rollingStd(bars, i, 60, closeOf)
	row[colMomentum10] = b.Close - bars[i-10].Close

	row[colVolumeMean20] = rollingMean(bars, i, 20, volumeOf)
	row[colVolumeStd20] = rollingStd(bars, i, 20, volumeOf)
	row[colVolumeEMA20] = volEMA

	return row
}

func closeOf(b models.Bar) float64  { return b.Close }
func volumeOf(b models.Bar) float64 { return b.Volume }

func rollingMean(bars []models.Bar, i, window int, get func(models.Bar) float64) float64 {
	sum := 0.0
	for j := i - window + 1; j <= i; j++ {
		sum += get(bars[j])
	}
	return sum / float64(window)
}

// rollingStd is the sample standard deviation over the trailing window.
func rollingStd(bars []models.Bar, i, window int, get func(models.Bar) float64) float64 {
	mean := rollingMean(bars, i, window, get)
	sum := 0.0
	for j := i - window + 1; j <= i; j++ {
		d := get(bars[j]) - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(window-1))
}

// volumeEMA is the exponentially weighted volume mean with the given span,
// seeded from the first bar.
func volumeEMA(bars []models.Bar, span int) []float64 {
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(bars))
	out[0] = bars[0].Volume
	for i := 1; i < len(bars); i++ {
		out[i] = alpha*bars[i].Volume + (1-alpha)*out[i-1]
	}
	return out
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

func rowFinite(row []float64) bool {
	for _, v := range row {
		if !util.IsFinite(v) {
			return false
		}
	}
	return true
}
