package models

import (
	"time"

	"MarketPulse/pkg/util"
)

// Status values for State.
const (
	StatusInitializing = "initializing"
	StatusOK           = "ok"
	StatusError        = "error"
)

// Signals are derived fresh from forecast, portfolio, and config on every
// refresh and trade request; they are never authoritative stored truth.
type Signals struct {
	Buy  bool `json:"buy"`
	Sell bool `json:"sell"`
}

// SeriesPoint is one charted value.
type SeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// ForecastPoint is a labeled forecast anchor projected past the last bar.
type ForecastPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Label     string    `json:"label"`
}

// Series carries the chart payload of a full refresh.
type Series struct {
	Actual              []SeriesPoint   `json:"actual"`
	PredictedValidation []SeriesPoint   `json:"predicted_validation"`
	PredictedTest       []SeriesPoint   `json:"predicted_test"`
	Forecast            []ForecastPoint `json:"forecast"`
}

// ActionRecord is the most recent trade, manual or automatic.
type ActionRecord struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the externally visible aggregate: the unit of persistence and
// the unit broadcast to subscribers. Metric fields are nil when undefined
// rather than NaN so the aggregate always serializes.
type State struct {
	Status          string        `json:"status"`
	Error           string        `json:"error,omitempty"`
	Ticker          string        `json:"ticker,omitempty"`
	LatestPrice     *float64      `json:"latest_price"`
	NextMinutePrice *float64      `json:"next_minute_price"`
	NextHourPrice   *float64      `json:"next_hour_price"`
	MinuteMAE       *float64      `json:"minute_mae"`
	MinuteMSE       *float64      `json:"minute_mse"`
	MinuteRMSE      *float64      `json:"minute_rmse"`
	MinuteR2        *float64      `json:"minute_r2"`
	HourMAE         *float64      `json:"hour_mae"`
	HourMSE         *float64      `json:"hour_mse"`
	HourRMSE        *float64      `json:"hour_rmse"`
	HourR2          *float64      `json:"hour_r2"`
	Series          Series        `json:"series"`
	Portfolio       Portfolio     `json:"portfolio"`
	Signals         Signals       `json:"signals"`
	LastAction      *ActionRecord `json:"last_action,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewState returns the initializing state stored before the first refresh.
func NewState() State {
	return State{
		Status: StatusInitializing,
		Series: Series{
			Actual:              []SeriesPoint{},
			PredictedValidation: []SeriesPoint{},
			PredictedTest:       []SeriesPoint{},
			Forecast:            []ForecastPoint{},
		},
		Portfolio: NewPortfolio(),
		UpdatedAt: time.Now().UTC(),
	}
}

// Finite returns a pointer to v when v is a finite number, nil otherwise.
func Finite(v float64) *float64 {
	if !util.IsFinite(v) {
		return nil
	}
	return &v
}

// FiniteValue dereferences p, reporting ok only for finite values.
func FiniteValue(p *float64) (float64, bool) {
	if p == nil || !util.IsFinite(*p) {
		return 0, false
	}
	return *p, true
}
