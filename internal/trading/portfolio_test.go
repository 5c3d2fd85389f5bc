package trading

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/domain/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestBuyFromFlat(t *testing.T) {
	p := Buy(models.NewPortfolio(), 120, 1000, testNow)

	assert.Equal(t, 8.333333, p.Units)
	assert.Equal(t, 1000.0, p.InvestedAmount)
	require.NotNil(t, p.LastBoughtPrice)
	assert.Equal(t, 120.0, *p.LastBoughtPrice)
	assert.False(t, p.Withdrawn)
	require.Len(t, p.Events, 1)
	assert.Equal(t, "buy", p.Events[0].Kind)
}

func TestBuyWhileInvestedIsNoOp(t *testing.T) {
	p := Buy(models.NewPortfolio(), 100, 500, testNow)
	again := Buy(p, 90, 800, testNow)
	assert.Equal(t, p, again)
}

func TestBuyRejectsBadInputs(t *testing.T) {
	base := models.NewPortfolio()
	for _, tc := range []struct {
		name          string
		price, amount float64
	}{
		{"zero price", 0, 1000},
		{"negative price", -5, 1000},
		{"zero amount", 100, 0},
		{"nan price", math.NaN(), 1000},
		{"inf amount", 100, math.Inf(1)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Buy(base, tc.price, tc.amount, testNow)
			assert.Equal(t, base, got)
		})
	}
}

func TestSellRealizesProfit(t *testing.T) {
	p := Buy(models.NewPortfolio(), 100, 1000, testNow)
	p = Sell(p, 110, testNow.Add(time.Hour))

	// profit == (A/p0)*p1 - A
	assert.Equal(t, 100.0, p.Profit)
	assert.Equal(t, 100.0, p.WithdrawProfit)
	assert.Equal(t, 1100.0, p.WithdrawValue)
	assert.Equal(t, 0.0, p.Units)
	assert.True(t, p.Withdrawn)
	require.Len(t, p.Events, 2)
	assert.Equal(t, "sell", p.Events[1].Kind)
	require.NotNil(t, p.Events[1].Profit)
	assert.Equal(t, 100.0, *p.Events[1].Profit)
}

func TestSellWhileFlatIsNoOp(t *testing.T) {
	base := models.NewPortfolio()
	got := Sell(base, 100, testNow)
	assert.Equal(t, base, got)
	assert.Empty(t, got.Events)
}

func TestUnitsAndWithdrawnMutuallyExclusive(t *testing.T) {
	p := models.NewPortfolio()
	prices := []float64{100, 120, 0, 90, -1, 105, 110}
	for i, price := range prices {
		if i%2 == 0 {
			p = Buy(p, price, 500, testNow)
		} else {
			p = Sell(p, price, testNow)
		}
		assert.False(t, p.Units > 0 && p.Withdrawn,
			"units=%v withdrawn=%v after step %d", p.Units, p.Withdrawn, i)
	}
}

func TestBuyAfterWithdrawClearsHistory(t *testing.T) {
	p := Buy(models.NewPortfolio(), 100, 1000, testNow)
	p = MarkToMarket(p, 105, 10, testNow)
	p = Sell(p, 110, testNow)
	require.True(t, p.Withdrawn)

	p = Buy(p, 50, 400, testNow)
	assert.False(t, p.Withdrawn)
	assert.Equal(t, 0.0, p.WithdrawValue)
	assert.Equal(t, 0.0, p.WithdrawProfit)
	assert.Empty(t, p.ProfitPoints)
	assert.Equal(t, 8.0, p.Units)
}

func TestMarkToMarket(t *testing.T) {
	p := Buy(models.NewPortfolio(), 100, 1000, testNow)
	p = MarkToMarket(p, 105, 10, testNow)

	assert.Equal(t, 50.0, p.Profit)
	assert.Equal(t, 1050.0, p.PortfolioValue)
	require.Len(t, p.ProfitPoints, 1)
	assert.Equal(t, 50.0, p.ProfitPoints[0].Profit)
}

func TestMarkToMarketWhileFlatIsNoOp(t *testing.T) {
	base := models.NewPortfolio()
	got := MarkToMarket(base, 100, 10, testNow)
	assert.Equal(t, base, got)
}

func TestProfitPointsBounded(t *testing.T) {
	p := Buy(models.NewPortfolio(), 100, 1000, testNow)
	for i := 0; i < 25; i++ {
		p = MarkToMarket(p, 100+float64(i), 10, testNow.Add(time.Duration(i)*time.Minute))
	}
	require.Len(t, p.ProfitPoints, 10)
	// oldest entries are dropped: the first retained snapshot is i=15
	assert.Equal(t, testNow.Add(15*time.Minute), p.ProfitPoints[0].Timestamp)
}

func TestEventLogBounded(t *testing.T) {
	p := models.NewPortfolio()
	for i := 0; i < MaxEvents+40; i++ {
		p = Buy(p, 100, 100, testNow.Add(time.Duration(2*i)*time.Minute))
		p = Sell(p, 101, testNow.Add(time.Duration(2*i+1)*time.Minute))
	}
	assert.Len(t, p.Events, MaxEvents)
	// newest event survives
	last := p.Events[len(p.Events)-1]
	assert.Equal(t, "sell", last.Kind)
}

func TestBuyThenSellProfitIdentity(t *testing.T) {
	const (
		p0 = 87.5
		p1 = 93.25
		A  = 1500.0
	)
	p := Buy(models.NewPortfolio(), p0, A, testNow)
	p = Sell(p, p1, testNow)

	want := math.Round(((A/p0)*p1-A)*100) / 100
	assert.InDelta(t, want, p.Profit, 0.02)
}
