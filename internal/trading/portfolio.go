package trading

import (
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/util"
)

// MaxEvents caps the portfolio event log; oldest entries drop silently.
const MaxEvents = 200

// Buy moves a flat or withdrawn portfolio into an invested position of
// amount/price units. Preconditions failing (already invested, non-finite
// or non-positive price/amount) return the input unchanged: rejected
// transitions are silent no-ops, not failures.
func Buy(p models.Portfolio, price, amount float64, now time.Time) models.Portfolio {
	p.Ensure()
	if p.Units > 0 {
		return p
	}
	if !util.IsFinite(price) || price <= 0 {
		return p
	}
	if !util.IsFinite(amount) || amount <= 0 {
		return p
	}

	units := amount / price
	boughtAt := util.Round4(price)

	p.Units = util.Round6(units)
	p.InvestedAmount = util.Round2(amount)
	p.LastBoughtPrice = &boughtAt
	p.Withdrawn = false
	p.WithdrawValue = 0
	p.WithdrawProfit = 0
	p.Profit = 0
	p.PortfolioValue = util.Round2(amount)
	p.ProfitPoints = []models.ProfitPoint{}
	p.Events = appendEvent(p.Events, models.TradeEvent{
		Timestamp: now,
		Kind:      "buy",
		Price:     util.Round4(price),
		Units:     util.Round6(units),
		Amount:    util.Round2(amount),
	})
	return p
}

// Sell liquidates an invested position at price, realizing profit and
// transitioning to withdrawn. No-op unless invested and price is valid.
func Sell(p models.Portfolio, price float64, now time.Time) models.Portfolio {
	p.Ensure()
	if p.Units <= 0 {
		return p
	}
	if !util.IsFinite(price) || price <= 0 {
		return p
	}

	revenue := p.Units * price
	profit := revenue - p.InvestedAmount
	roundedProfit := util.Round2(profit)

	p.Units = 0
	p.Withdrawn = true
	p.WithdrawValue = util.Round2(revenue)
	p.WithdrawProfit = roundedProfit
	p.Profit = roundedProfit
	p.PortfolioValue = 0
	p.Events = appendEvent(p.Events, models.TradeEvent{
		Timestamp: now,
		Kind:      "sell",
		Price:     util.Round4(price),
		Units:     util.Round6(revenue / price),
		Amount:    util.Round2(revenue),
		Profit:    &roundedProfit,
	})
	return p
}

// MarkToMarket revalues an open position at the current price and appends
// a snapshot, trimmed to the most recent snapshotCap entries. No-op when
// flat, withdrawn, or the price is not finite.
func MarkToMarket(p models.Portfolio, price float64, snapshotCap int, now time.Time) models.Portfolio {
	p.Ensure()
	if p.Units <= 0 || !util.IsFinite(price) {
		return p
	}

	value := p.Units * price
	profit := value - p.InvestedAmount
	p.Profit = util.Round2(profit)
	p.PortfolioValue = util.Round2(value)
	p.ProfitPoints = append(p.ProfitPoints, models.ProfitPoint{
		Timestamp:      now,
		Profit:         util.Round2(profit),
		PortfolioValue: util.Round2(value),
	})
	p.ProfitPoints = trimProfitPoints(p.ProfitPoints, snapshotCap)
	return p
}

func appendEvent(events []models.TradeEvent, e models.TradeEvent) []models.TradeEvent {
	events = append(events, e)
	if len(events) > MaxEvents {
		events = events[len(events)-MaxEvents:]
	}
	return events
}

func trimProfitPoints(points []models.ProfitPoint, limit int) []models.ProfitPoint {
	if limit <= 0 || len(points) <= limit {
		return points
	}
	return points[len(points)-limit:]
}
