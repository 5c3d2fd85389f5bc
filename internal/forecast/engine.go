package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/logger"
)

// Horizon kinds, used as the artifact key suffix.
const (
	KindMinute = "minute"
	KindHour   = "hour"
)

// walkForwardWindow bounds the trailing metric window.
const walkForwardWindow = 100

// minTrainRows is the smallest supervised set the engine will fit.
const minTrainRows = 20

// Horizon describes one forecast target: the resampling granularity and how
// many grid steps ahead the model predicts.
type Horizon struct {
	Kind        string
	Steps       int
	Granularity time.Duration
}

// Result is one horizon's refresh outcome.
type Result struct {
	Forecast     float64
	ForecastTime time.Time
	Metrics      models.HorizonMetrics
	Reused       bool

	// Times and Predicted cover the supervised rows in order, for charting.
	Times     []time.Time
	Predicted []float64
	Actual    []float64
}

// Engine trains or reuses one regression pipeline per horizon and produces
// next-step forecasts with trailing walk-forward accuracy metrics.
type Engine struct {
	store  repository.ModelStore
	log    *logger.Logger
	params TrainParams
}

// NewEngine returns an engine persisting artifacts through store.
func NewEngine(store repository.ModelStore, log *logger.Logger) *Engine {
	return &Engine{store: store, log: log, params: DefaultTrainParams()}
}

// Run resamples bars to the horizon grid, builds the supervised set, loads
// or trains the pipeline, and returns the next-step forecast with trailing
// metrics. trainWindow > 0 restricts training to the most recent rows.
// forceRetrain bypasses any persisted artifact.
func (e *Engine) Run(ctx context.Context, ticker string, bars []models.Bar, h Horizon, trainWindow int, forceRetrain bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, models.ErrDataUnavailable
	}

	resampled := Resample(bars, h.Granularity, 0)
	sup, err := BuildSupervised(resampled, h.Steps)
	if err != nil {
		return nil, err
	}
	if len(sup.X) < minTrainRows {
		return nil, fmt.Errorf("%w: %d supervised rows", models.ErrInsufficientData, len(sup.X))
	}
	if sup.Latest == nil {
		return nil, fmt.Errorf("%w: latest feature row unavailable", models.ErrInsufficientData)
	}

	pipe, reused := e.loadPipeline(ticker, h.Kind, forceRetrain)
	if pipe == nil {
		pipe, err = e.train(ticker, h, sup, trainWindow)
		if err != nil {
			return nil, err
		}
	}

	res := &Result{
		Forecast:     pipe.Predict(sup.Latest),
		ForecastTime: sup.LatestTime.Add(time.Duration(h.Steps) * h.Granularity),
		Reused:       reused,
		Times:        sup.Times,
		Predicted:    pipe.PredictBatch(sup.X),
		Actual:       sup.Y,
	}
	res.Metrics = walkForwardMetrics(res.Predicted, sup.Y)
	return res, nil
}

func (e *Engine) loadPipeline(ticker, kind string, forceRetrain bool) (*Pipeline, bool) {
	if forceRetrain {
		return nil, false
	}
	data, err := e.store.Load(ticker, kind)
	if err != nil {
		if !errors.Is(err, models.ErrArtifactNotFound) {
			e.log.Warn("failed to load model artifact",
				logger.String("ticker", ticker),
				logger.String("kind", kind),
				logger.Error(err))
		}
		return nil, false
	}
	var pipe Pipeline
	if err := json.Unmarshal(data, &pipe); err != nil || pipe.Model == nil {
		e.log.Warn("discarding unreadable model artifact",
			logger.String("ticker", ticker),
			logger.String("kind", kind),
			logger.Error(err))
		return nil, false
	}
	return &pipe, true
}

// train fits on the temporally earliest 80% of the (optionally windowed)
// supervised rows, logs validation MAE on the trailing 20%, and persists
// the artifact.
func (e *Engine) train(ticker string, h Horizon, sup *Supervised, trainWindow int) (*Pipeline, error) {
	X, y := sup.X, sup.Y
	if trainWindow > 0 && len(X) > trainWindow {
		X = X[len(X)-trainWindow:]
		y = y[len(y)-trainWindow:]
	}

	cut := splitIndex(len(X))

	started := time.Now()
	pipe, err := FitPipeline(X[:cut], y[:cut], CloseCol, e.params)
	if err != nil {
		return nil, err
	}

	valMAE := math.NaN()
	if cut < len(X) {
		valMAE = meanAbsError(pipe.PredictBatch(X[cut:]), y[cut:])
	}
	e.log.Info("trained forecast model",
		logger.String("ticker", ticker),
		logger.String("kind", h.Kind),
		logger.Int("rows", cut),
		logger.Float64("validation_mae", valMAE),
		logger.Duration("elapsed", time.Since(started)))

	data, err := json.Marshal(pipe)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTrainingFailure, err)
	}
	if err := e.store.Save(ticker, h.Kind, data); err != nil {
		// A failed save degrades reuse, not this cycle's forecast.
		e.log.Warn("failed to persist model artifact",
			logger.String("ticker", ticker),
			logger.String("kind", h.Kind),
			logger.Error(err))
	}
	return pipe, nil
}

// splitIndex is the temporal train/validation cut for n supervised rows:
// the earliest 80% train, the trailing rows validate, rows are never
// shuffled. At least one row always trains, and for n >= 2 the validation
// slice is never empty.
func splitIndex(n int) int {
	cut := n * 8 / 10
	if cut < 1 {
		cut = 1
	}
	return cut
}

// walkForwardMetrics scores the trailing min(walkForwardWindow, N)
// predictions against realized targets.
func walkForwardMetrics(predicted, actual []float64) models.HorizonMetrics {
	n := len(actual)
	if n == 0 {
		return models.UndefinedMetrics()
	}
	if n > walkForwardWindow {
		predicted = predicted[n-walkForwardWindow:]
		actual = actual[n-walkForwardWindow:]
		n = walkForwardWindow
	}

	var absSum, sqSum float64
	for i := range actual {
		d := predicted[i] - actual[i]
		absSum += math.Abs(d)
		sqSum += d * d
	}
	m := models.HorizonMetrics{
		MAE: absSum / float64(n),
		MSE: sqSum / float64(n),
	}
	m.RMSE = math.Sqrt(m.MSE)

	meanActual := mean(actual)
	var totSS float64
	for _, v := range actual {
		d := v - meanActual
		totSS += d * d
	}
	if totSS > 0 {
		m.R2 = 1 - sqSum/totSS
	} else {
		m.R2 = math.NaN()
	}
	return m
}

func meanAbsError(predicted, actual []float64) float64 {
	if len(actual) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := range actual {
		sum += math.Abs(predicted[i] - actual[i])
	}
	return sum / float64(len(actual))
}
