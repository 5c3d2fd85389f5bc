package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MarketPulse/internal/broadcast"
	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/forecast"
	"MarketPulse/internal/trading"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/store"
)

// KV keys for the persisted aggregates.
const (
	keyConfig = "config"
	keyState  = "state"
)

// Refresher owns the shared Config/State/Portfolio aggregate. Every
// mutation, scheduled refreshes and trade requests alike, runs under one
// exclusive lock; reads return copies of the last committed value.
type Refresher struct {
	mu    sync.Mutex
	cfg   models.Config
	state models.State

	source    repository.HistorySource
	engine    *forecast.Engine
	archive   repository.BarArchive
	publisher repository.StatePublisher
	kv        store.Store
	hub       *broadcast.Hub
	metrics   repository.Metrics
	log       *logger.Logger
}

// NewRefresher restores config and state from the KV store, falling back to
// defaults and the initializing state when keys are absent. archive and
// publisher may be nil when those sinks are disabled.
func NewRefresher(
	source repository.HistorySource,
	engine *forecast.Engine,
	archive repository.BarArchive,
	publisher repository.StatePublisher,
	kv store.Store,
	hub *broadcast.Hub,
	metrics repository.Metrics,
	log *logger.Logger,
) *Refresher {
	r := &Refresher{
		source:    source,
		engine:    engine,
		archive:   archive,
		publisher: publisher,
		kv:        kv,
		hub:       hub,
		metrics:   metrics,
		log:       log,
	}

	ctx := context.Background()

	r.cfg = models.DefaultConfig()
	if err := kv.GetJSON(ctx, keyConfig, &r.cfg); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn("failed to restore config, using defaults", logger.Error(err))
		r.cfg = models.DefaultConfig()
	}
	r.cfg.Normalize()

	r.state = models.NewState()
	if err := kv.GetJSON(ctx, keyState, &r.state); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("failed to restore state, starting fresh", logger.Error(err))
		}
		r.state = models.NewState()
	}
	r.state.Portfolio.Ensure()
	// Restored forecasts are stale until the first refresh completes.
	r.state.Status = models.StatusInitializing
	r.state.Ticker = r.cfg.Ticker

	return r
}

// Config returns a copy of the current runtime config.
func (r *Refresher) Config() models.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// State returns a copy of the last committed state.
func (r *Refresher) State() models.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// UpdateConfig merges non-nil update fields over the current config,
// persists it, and runs an immediate full refresh so the merged tuning
// takes effect and subscribers see the result.
func (r *Refresher) UpdateConfig(ctx context.Context, u models.ConfigUpdate) (models.Config, error) {
	r.mu.Lock()
	r.cfg.ApplyUpdate(u)
	r.cfg.Normalize()
	cfg := r.cfg
	if err := r.kv.SetJSON(ctx, keyConfig, cfg); err != nil {
		r.log.Error("failed to persist config", logger.Error(err))
	}
	r.mu.Unlock()

	if _, err := r.FullRefresh(ctx, false); err != nil {
		r.log.Warn("refresh after config update failed", logger.Error(err))
	}
	return cfg, nil
}

// FullRefresh fetches history, trains or reuses both horizon models, and
// commits a complete new state. A failure commits an error-status state and
// returns the cause; the caller decides whether that is fatal.
func (r *Refresher) FullRefresh(ctx context.Context, forceRetrain bool) (models.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	cfg := r.cfg

	bars, err := r.fetchHistory(ctx, cfg)
	if err != nil {
		return r.commitFailure(ctx, "full", err)
	}

	minuteRes, err := r.engine.Run(ctx, cfg.Ticker, bars, forecast.Horizon{
		Kind:        forecast.KindMinute,
		Steps:       cfg.MinuteHorizon,
		Granularity: time.Minute,
	}, cfg.TrainWindow, forceRetrain)
	if err != nil {
		return r.commitFailure(ctx, "full", err)
	}

	// The long horizon counts 5-minute grid steps, so the default 9 steps
	// forecast 45 minutes out.
	hourRes, err := r.engine.Run(ctx, cfg.Ticker, bars, forecast.Horizon{
		Kind:        forecast.KindHour,
		Steps:       cfg.LongHorizonSteps,
		Granularity: 5 * time.Minute,
	}, cfg.TrainWindow, forceRetrain)
	if err != nil {
		return r.commitFailure(ctx, "full", err)
	}

	price := bars[len(bars)-1].Close
	if quote, err := r.source.Latest(ctx, cfg.Ticker); err == nil && quote != nil {
		price = quote.Close
	}

	now := time.Now().UTC()
	st := r.state
	st.Status = models.StatusOK
	st.Error = ""
	st.Ticker = cfg.Ticker
	st.LatestPrice = models.Finite(price)
	st.NextMinutePrice = models.Finite(minuteRes.Forecast)
	st.NextHourPrice = models.Finite(hourRes.Forecast)
	applyMetrics(&st, minuteRes.Metrics, hourRes.Metrics)
	st.Series = buildSeries(bars, minuteRes, hourRes, cfg.ChartPoints)
	st.Portfolio = trading.MarkToMarket(st.Portfolio, price, cfg.ChartPoints, now)
	st.Signals = trading.ComputeSignals(&st, cfg, st.Portfolio, nil)
	r.autoTrade(&st, cfg, now)
	st.UpdatedAt = now

	r.state = st
	r.persistAndPublish(ctx)

	r.metrics.RecordRefresh("full", "ok")
	r.metrics.RecordRefreshDuration("full", time.Since(started).Seconds())
	r.metrics.RecordLastPrice(cfg.Ticker, price)
	return st, nil
}

// PriceRefresh updates the latest price and everything derived from it
// without touching the models. It is a no-op before the first successful
// full refresh and when no quote can be fetched.
func (r *Refresher) PriceRefresh(ctx context.Context) (models.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Status == models.StatusInitializing {
		return r.state, nil
	}

	started := time.Now()
	cfg := r.cfg

	quote, err := r.source.Latest(ctx, cfg.Ticker)
	if err != nil || quote == nil {
		if err != nil {
			r.log.Warn("price refresh quote fetch failed", logger.Error(err))
			r.metrics.RecordError("quote_fetch")
		}
		return r.state, nil
	}

	now := time.Now().UTC()
	st := r.state
	st.LatestPrice = models.Finite(quote.Close)
	st.Portfolio = trading.MarkToMarket(st.Portfolio, quote.Close, cfg.ChartPoints, now)
	st.Signals = trading.ComputeSignals(&st, cfg, st.Portfolio, nil)
	r.autoTrade(&st, cfg, now)
	st.UpdatedAt = now

	r.state = st
	r.persistAndPublish(ctx)

	r.metrics.RecordRefresh("price", "ok")
	r.metrics.RecordRefreshDuration("price", time.Since(started).Seconds())
	r.metrics.RecordLastPrice(cfg.Ticker, quote.Close)
	return st, nil
}

// Buy opens a position at the last known price, fetching a live quote when
// none is cached yet. amount == nil uses the configured invest amount.
// Unlike auto-trading, caller-initiated trades fail loudly: no obtainable
// price or an invalid transition returns an error.
func (r *Refresher) Buy(ctx context.Context, amount *float64) (models.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	price, ok := models.FiniteValue(r.state.LatestPrice)
	if !ok {
		price, ok = r.liveQuote(ctx)
	}
	if !ok {
		return r.state, models.ErrNoPrice
	}

	amt := r.cfg.InvestAmount
	if amount != nil {
		amt = *amount
	}
	if amt <= 0 {
		return r.state, fmt.Errorf("%w: amount %v", models.ErrInvalidTrade, amt)
	}
	if r.state.Portfolio.Units > 0 {
		return r.state, fmt.Errorf("%w: position already open", models.ErrInvalidTrade)
	}

	now := time.Now().UTC()
	st := r.state
	st.LatestPrice = models.Finite(price)
	st.Portfolio = trading.Buy(st.Portfolio, price, amt, now)
	st.Signals = trading.ComputeSignals(&st, r.cfg, st.Portfolio, nil)
	st.LastAction = &models.ActionRecord{Kind: "buy", Timestamp: now}
	st.UpdatedAt = now

	r.state = st
	r.persistAndPublish(ctx)
	r.metrics.RecordTrade("buy", "manual")
	return st, nil
}

// Sell closes the open position at the last known price, fetching a live
// quote when none is cached yet.
func (r *Refresher) Sell(ctx context.Context) (models.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	price, ok := models.FiniteValue(r.state.LatestPrice)
	if !ok {
		price, ok = r.liveQuote(ctx)
	}
	if !ok {
		return r.state, models.ErrNoPrice
	}
	if r.state.Portfolio.Units <= 0 {
		return r.state, fmt.Errorf("%w: no position to sell", models.ErrInvalidTrade)
	}

	now := time.Now().UTC()
	st := r.state
	st.LatestPrice = models.Finite(price)
	st.Portfolio = trading.Sell(st.Portfolio, price, now)
	st.Signals = trading.ComputeSignals(&st, r.cfg, st.Portfolio, nil)
	st.LastAction = &models.ActionRecord{Kind: "sell", Timestamp: now}
	st.UpdatedAt = now

	r.state = st
	r.persistAndPublish(ctx)
	r.metrics.RecordTrade("sell", "manual")
	return st, nil
}

// Retrain forces both horizon models to retrain on the next refresh, which
// it runs immediately.
func (r *Refresher) Retrain(ctx context.Context) (models.State, error) {
	return r.FullRefresh(ctx, true)
}

// liveQuote fetches the current price directly, for trade requests that
// arrive before any refresh has cached one. Callers hold the lock.
func (r *Refresher) liveQuote(ctx context.Context) (float64, bool) {
	quote, err := r.source.Latest(ctx, r.cfg.Ticker)
	if err != nil {
		r.log.Warn("live quote fetch failed", logger.Error(err))
		r.metrics.RecordError("quote_fetch")
		return 0, false
	}
	if quote == nil {
		return 0, false
	}
	return quote.Close, true
}

// fetchHistory pulls the lookback window from the source chain, archiving
// a successful fetch and falling back to the archive when the chain comes
// back empty. Exhausting both is the terminal failure for the cycle.
func (r *Refresher) fetchHistory(ctx context.Context, cfg models.Config) ([]models.Bar, error) {
	lookback := time.Duration(cfg.LookbackDays) * 24 * time.Hour

	bars, err := r.source.History(ctx, cfg.Ticker, lookback, time.Minute, cfg.MaxPoints)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		if r.archive != nil {
			if err := r.archive.Save(ctx, cfg.Ticker, bars); err != nil {
				r.log.Warn("failed to archive bars", logger.Error(err))
				r.metrics.RecordError("archive_save")
			}
		}
		return bars, nil
	}

	if r.archive != nil {
		archived, err := r.archive.Load(ctx, cfg.Ticker, cfg.MaxPoints)
		if err != nil {
			r.log.Warn("archive fallback failed", logger.Error(err))
			r.metrics.RecordError("archive_load")
		} else if len(archived) > 0 {
			r.log.Warn("serving archived bars, all live sources failed",
				logger.String("ticker", cfg.Ticker),
				logger.Int("bars", len(archived)))
			return archived, nil
		}
	}
	return nil, models.ErrDataUnavailable
}

// autoTrade executes at most one configured trade per refresh and records
// it as the state's last action. Signals that cannot be acted on are
// ignored without error.
func (r *Refresher) autoTrade(st *models.State, cfg models.Config, now time.Time) {
	if !cfg.AutoTrade {
		return
	}
	price, ok := models.FiniteValue(st.LatestPrice)
	if !ok {
		return
	}

	switch {
	case st.Signals.Buy && st.Portfolio.Units == 0:
		st.Portfolio = trading.Buy(st.Portfolio, price, cfg.InvestAmount, now)
		st.LastAction = &models.ActionRecord{Kind: "buy", Timestamp: now}
		r.metrics.RecordTrade("buy", "auto")
		r.log.Info("auto-trade executed",
			logger.String("kind", "buy"),
			logger.Float64("price", price),
			logger.Float64("amount", cfg.InvestAmount))
	case st.Signals.Sell && st.Portfolio.Units > 0:
		st.Portfolio = trading.Sell(st.Portfolio, price, now)
		st.LastAction = &models.ActionRecord{Kind: "sell", Timestamp: now}
		r.metrics.RecordTrade("sell", "auto")
		r.log.Info("auto-trade executed",
			logger.String("kind", "sell"),
			logger.Float64("price", price))
	}
}

// commitFailure stores and broadcasts the error status so operators and
// subscribers see the failed cycle; the scheduler retries on its own.
func (r *Refresher) commitFailure(ctx context.Context, kind string, cause error) (models.State, error) {
	now := time.Now().UTC()
	st := r.state
	st.Status = models.StatusError
	st.Error = cause.Error()
	st.UpdatedAt = now

	r.state = st
	r.persistAndPublish(ctx)

	r.metrics.RecordRefresh(kind, "error")
	r.metrics.RecordError("refresh")
	r.log.Error("refresh failed", logger.String("kind", kind), logger.Error(cause))
	return st, cause
}

// persistAndPublish commits the current state to the KV store, the
// websocket hub, and the optional external publisher. Sink failures are
// logged, never propagated: the in-memory state is already authoritative.
func (r *Refresher) persistAndPublish(ctx context.Context) {
	if err := r.kv.SetJSON(ctx, keyState, r.state); err != nil {
		r.log.Error("failed to persist state", logger.Error(err))
		r.metrics.RecordError("state_persist")
	}

	r.hub.Publish(r.state)

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, &r.state); err != nil {
			r.log.Warn("failed to publish state update", logger.Error(err))
			r.metrics.RecordError("state_publish")
		}
	}
}

func applyMetrics(st *models.State, minute, hour models.HorizonMetrics) {
	st.MinuteMAE = models.Finite(minute.MAE)
	st.MinuteMSE = models.Finite(minute.MSE)
	st.MinuteRMSE = models.Finite(minute.RMSE)
	st.MinuteR2 = models.Finite(minute.R2)
	st.HourMAE = models.Finite(hour.MAE)
	st.HourMSE = models.Finite(hour.MSE)
	st.HourRMSE = models.Finite(hour.RMSE)
	st.HourR2 = models.Finite(hour.R2)
}

// buildSeries assembles the chart payload: the trailing actual closes, the
// minute model's predictions split into validation and test display
// segments (trailing 20% of rows, halved), and the two forecast anchors
// projected past the last bar.
func buildSeries(bars []models.Bar, minuteRes, hourRes *forecast.Result, chartPoints int) models.Series {
	s := models.Series{
		Actual:              []models.SeriesPoint{},
		PredictedValidation: []models.SeriesPoint{},
		PredictedTest:       []models.SeriesPoint{},
		Forecast:            []models.ForecastPoint{},
	}

	actual := bars
	if chartPoints > 0 && len(actual) > chartPoints {
		actual = actual[len(actual)-chartPoints:]
	}
	for _, b := range actual {
		s.Actual = append(s.Actual, models.SeriesPoint{Timestamp: b.Time, Value: b.Close})
	}

	n := len(minuteRes.Predicted)
	valStart := n * 8 / 10
	testStart := n * 9 / 10
	for i := valStart; i < testStart; i++ {
		s.PredictedValidation = append(s.PredictedValidation, models.SeriesPoint{
			Timestamp: minuteRes.Times[i],
			Value:     minuteRes.Predicted[i],
		})
	}
	for i := testStart; i < n; i++ {
		s.PredictedTest = append(s.PredictedTest, models.SeriesPoint{
			Timestamp: minuteRes.Times[i],
			Value:     minuteRes.Predicted[i],
		})
	}

	s.Forecast = append(s.Forecast,
		models.ForecastPoint{
			Timestamp: minuteRes.ForecastTime,
			Value:     minuteRes.Forecast,
			Label:     "Next minute",
		},
		models.ForecastPoint{
			Timestamp: hourRes.ForecastTime,
			Value:     hourRes.Forecast,
			Label:     "Long horizon",
		},
	)
	return s
}
