package trading

import (
	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/util"
)

// ComputeSignals derives buy/sell signals from the latest forecast, the
// portfolio, and the configured multipliers. It is a pure function with no
// hysteresis: signals are recomputed from scratch on every call and any
// non-finite input forces the corresponding signal false.
//
// Buy fires when the long-horizon forecast, discounted by its MAE, still
// clears buy_multiplier times the current price. Sell fires when the
// short-horizon forecast minus its MAE clears sell_multiplier times the
// last purchase price (current price when there was no purchase).
func ComputeSignals(st *models.State, cfg models.Config, p models.Portfolio, currentPrice *float64) models.Signals {
	price, ok := models.FiniteValue(currentPrice)
	if !ok {
		price, ok = models.FiniteValue(st.LatestPrice)
	}
	if !ok {
		return models.Signals{}
	}

	var sig models.Signals

	if nextHour, ok := models.FiniteValue(st.NextHourPrice); ok {
		if hourMAE, ok := models.FiniteValue(st.HourMAE); ok {
			sig.Buy = nextHour-hourMAE > cfg.BuyMultiplier*price
		}
	}

	lastBought := price
	if v, ok := models.FiniteValue(p.LastBoughtPrice); ok {
		lastBought = v
	}
	if nextMinute, ok := models.FiniteValue(st.NextMinutePrice); ok {
		if minuteMAE, ok := models.FiniteValue(st.MinuteMAE); ok && util.IsFinite(lastBought) {
			sig.Sell = nextMinute-minuteMAE > cfg.SellMultiplier*lastBought
		}
	}

	return sig
}
