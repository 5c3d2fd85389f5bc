package models

import "github.com/creasty/defaults"

// Config holds the runtime tunables persisted under the "config" KV key.
// It is immutable within a refresh cycle; updates go through ApplyUpdate,
// which merges non-nil fields over the current value.
type Config struct {
	Ticker              string  `json:"ticker" default:"BTC-USD"`
	LookbackDays        int     `json:"lookback_days" default:"7"`
	MaxPoints           int     `json:"max_points" default:"50000"`
	TrainWindow         int     `json:"train_window" default:"0"`
	MinuteHorizon       int     `json:"minute_horizon" default:"1"`
	LongHorizonSteps    int     `json:"long_horizon_steps" default:"9"`
	InvestAmount        float64 `json:"invest_amount" default:"1000"`
	AutoTrade           bool    `json:"auto_trade"`
	BuyMultiplier       float64 `json:"buy_multiplier" default:"1.5"`
	SellMultiplier      float64 `json:"sell_multiplier" default:"1.2"`
	ChartPoints         int     `json:"chart_points" default:"500"`
	PriceRefreshSeconds int     `json:"price_refresh_seconds" default:"15"`
	ModelRefreshSeconds int     `json:"model_refresh_seconds" default:"60"`
}

// DefaultConfig returns the config with every field at its default.
func DefaultConfig() Config {
	var c Config
	_ = defaults.Set(&c)
	return c
}

// Normalize fills zero-valued required fields with defaults. Unknown or
// absent fields in a stored document therefore never reset tuning to zero.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Ticker == "" {
		c.Ticker = def.Ticker
	}
	if c.LookbackDays < 1 {
		c.LookbackDays = def.LookbackDays
	}
	if c.MaxPoints < 1000 {
		c.MaxPoints = def.MaxPoints
	}
	if c.TrainWindow < 0 {
		c.TrainWindow = 0
	}
	if c.MinuteHorizon < 1 {
		c.MinuteHorizon = def.MinuteHorizon
	}
	if c.LongHorizonSteps < 1 {
		c.LongHorizonSteps = def.LongHorizonSteps
	}
	if c.InvestAmount < 0 {
		c.InvestAmount = def.InvestAmount
	}
	if c.BuyMultiplier < 0 {
		c.BuyMultiplier = def.BuyMultiplier
	}
	if c.SellMultiplier < 0 {
		c.SellMultiplier = def.SellMultiplier
	}
	if c.ChartPoints < 50 {
		c.ChartPoints = def.ChartPoints
	} else if c.ChartPoints > 5000 {
		c.ChartPoints = 5000
	}
	if c.PriceRefreshSeconds < 1 {
		c.PriceRefreshSeconds = def.PriceRefreshSeconds
	}
	if c.ModelRefreshSeconds < 5 {
		c.ModelRefreshSeconds = def.ModelRefreshSeconds
	}
}

// ConfigUpdate is a merge patch: nil fields are ignored, never reset.
type ConfigUpdate struct {
	Ticker              *string  `json:"ticker,omitempty"`
	LookbackDays        *int     `json:"lookback_days,omitempty" validate:"omitempty,gte=1"`
	MaxPoints           *int     `json:"max_points,omitempty" validate:"omitempty,gte=1000"`
	TrainWindow         *int     `json:"train_window,omitempty" validate:"omitempty,gte=0"`
	MinuteHorizon       *int     `json:"minute_horizon,omitempty" validate:"omitempty,gte=1"`
	LongHorizonSteps    *int     `json:"long_horizon_steps,omitempty" validate:"omitempty,gte=1"`
	InvestAmount        *float64 `json:"invest_amount,omitempty" validate:"omitempty,gte=0"`
	AutoTrade           *bool    `json:"auto_trade,omitempty"`
	BuyMultiplier       *float64 `json:"buy_multiplier,omitempty" validate:"omitempty,gte=0"`
	SellMultiplier      *float64 `json:"sell_multiplier,omitempty" validate:"omitempty,gte=0"`
	ChartPoints         *int     `json:"chart_points,omitempty" validate:"omitempty,gte=50,lte=5000"`
	PriceRefreshSeconds *int     `json:"price_refresh_seconds,omitempty" validate:"omitempty,gte=1"`
	ModelRefreshSeconds *int     `json:"model_refresh_seconds,omitempty" validate:"omitempty,gte=5"`
}

// ApplyUpdate merges non-nil update fields into c.
func (c *Config) ApplyUpdate(u ConfigUpdate) {
	if u.Ticker != nil && *u.Ticker != "" {
		c.Ticker = *u.Ticker
	}
	if u.LookbackDays != nil {
		c.LookbackDays = *u.LookbackDays
	}
	if u.MaxPoints != nil {
		c.MaxPoints = *u.MaxPoints
	}
	if u.TrainWindow != nil {
		c.TrainWindow = *u.TrainWindow
	}
	if u.MinuteHorizon != nil {
		c.MinuteHorizon = *u.MinuteHorizon
	}
	if u.LongHorizonSteps != nil {
		c.LongHorizonSteps = *u.LongHorizonSteps
	}
	if u.InvestAmount != nil {
		c.InvestAmount = *u.InvestAmount
	}
	if u.AutoTrade != nil {
		c.AutoTrade = *u.AutoTrade
	}
	if u.BuyMultiplier != nil {
		c.BuyMultiplier = *u.BuyMultiplier
	}
	if u.SellMultiplier != nil {
		c.SellMultiplier = *u.SellMultiplier
	}
	if u.ChartPoints != nil {
		c.ChartPoints = *u.ChartPoints
	}
	if u.PriceRefreshSeconds != nil {
		c.PriceRefreshSeconds = *u.PriceRefreshSeconds
	}
	if u.ModelRefreshSeconds != nil {
		c.ModelRefreshSeconds = *u.ModelRefreshSeconds
	}
}
