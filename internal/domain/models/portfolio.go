package models

import "time"

// TradeEvent is one executed buy or sell, append-only and capped.
type TradeEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"` // "buy" or "sell"
	Price     float64   `json:"price"`
	Units     float64   `json:"units"`
	Amount    float64   `json:"amount"`
	Profit    *float64  `json:"profit,omitempty"`
}

// ProfitPoint is one mark-to-market snapshot of the open position.
type ProfitPoint struct {
	Timestamp      time.Time `json:"timestamp"`
	Profit         float64   `json:"profit"`
	PortfolioValue float64   `json:"portfolio_value"`
}

// Portfolio is the single-position paper-trading ledger. Cash stays zero:
// a position is either fully deployed or fully withdrawn.
type Portfolio struct {
	Cash            float64       `json:"cash"`
	Units           float64       `json:"units"`
	InvestedAmount  float64       `json:"invested_amount"`
	LastBoughtPrice *float64      `json:"last_bought_price"`
	Profit          float64       `json:"profit"`
	PortfolioValue  float64       `json:"portfolio_value"`
	Withdrawn       bool          `json:"withdrawn"`
	WithdrawValue   float64       `json:"withdraw_value"`
	WithdrawProfit  float64       `json:"withdraw_profit"`
	ProfitPoints    []ProfitPoint `json:"profit_points"`
	Events          []TradeEvent  `json:"events"`
}

// NewPortfolio returns the empty flat portfolio created at process start.
func NewPortfolio() Portfolio {
	return Portfolio{
		ProfitPoints: []ProfitPoint{},
		Events:       []TradeEvent{},
	}
}

// Ensure repairs nil slices after JSON round-trips through the store.
func (p *Portfolio) Ensure() {
	if p.ProfitPoints == nil {
		p.ProfitPoints = []ProfitPoint{}
	}
	if p.Events == nil {
		p.Events = []TradeEvent{}
	}
}
