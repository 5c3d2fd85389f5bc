package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"MarketPulse/internal/domain/models"
)

func ptr(v float64) *float64 { return &v }

func signalState(price, nextMinute, minuteMAE, nextHour, hourMAE float64) *models.State {
	st := models.NewState()
	st.LatestPrice = ptr(price)
	st.NextMinutePrice = ptr(nextMinute)
	st.MinuteMAE = ptr(minuteMAE)
	st.NextHourPrice = ptr(nextHour)
	st.HourMAE = ptr(hourMAE)
	return &st
}

func TestBuySignalFires(t *testing.T) {
	cfg := models.DefaultConfig() // buy_multiplier 1.5
	st := signalState(100, 100, 1, 180, 10)

	sig := ComputeSignals(st, cfg, models.NewPortfolio(), nil)
	assert.True(t, sig.Buy, "170 > 150 should fire")
	assert.False(t, sig.Sell)
}

func TestSellSignalUsesLastBoughtPrice(t *testing.T) {
	cfg := models.DefaultConfig() // sell_multiplier 1.2
	st := signalState(100, 130, 5, 100, 1)

	p := Buy(models.NewPortfolio(), 100, 1000, testNow)
	sig := ComputeSignals(st, cfg, p, nil)
	assert.True(t, sig.Sell, "125 > 120 should fire")

	// A higher entry price raises the bar.
	p = models.NewPortfolio()
	p = Buy(p, 110, 1000, testNow)
	sig = ComputeSignals(st, cfg, p, nil)
	assert.False(t, sig.Sell, "125 > 132 should not fire")
}

func TestSellSignalFallsBackToCurrentPrice(t *testing.T) {
	cfg := models.DefaultConfig()
	st := signalState(100, 130, 5, 100, 1)

	sig := ComputeSignals(st, cfg, models.NewPortfolio(), nil)
	assert.True(t, sig.Sell)
}

func TestSignalsFalseWithoutPrice(t *testing.T) {
	cfg := models.DefaultConfig()
	st := models.NewState()
	st.NextHourPrice = ptr(1e6)
	st.HourMAE = ptr(0)

	sig := ComputeSignals(&st, cfg, models.NewPortfolio(), nil)
	assert.Equal(t, models.Signals{}, sig)
}

func TestSignalsFalseWithMissingForecast(t *testing.T) {
	cfg := models.DefaultConfig()
	st := models.NewState()
	st.LatestPrice = ptr(100)

	sig := ComputeSignals(&st, cfg, models.NewPortfolio(), nil)
	assert.Equal(t, models.Signals{}, sig)
}

func TestBuyMultiplierMonotonicity(t *testing.T) {
	st := signalState(100, 100, 1, 180, 10)
	p := models.NewPortfolio()

	prev := true
	for _, mult := range []float64{0.5, 1.0, 1.5, 1.69, 1.71, 2.5, 10} {
		cfg := models.DefaultConfig()
		cfg.BuyMultiplier = mult
		cur := ComputeSignals(st, cfg, p, nil).Buy
		if !prev {
			assert.False(t, cur, "buy signal flipped false->true at multiplier %v", mult)
		}
		prev = cur
	}
}

func TestSellMultiplierMonotonicity(t *testing.T) {
	st := signalState(100, 130, 5, 100, 1)
	p := Buy(models.NewPortfolio(), 100, 1000, testNow)

	prev := true
	for _, mult := range []float64{0.5, 1.0, 1.24, 1.26, 2, 5} {
		cfg := models.DefaultConfig()
		cfg.SellMultiplier = mult
		cur := ComputeSignals(st, cfg, p, nil).Sell
		if !prev {
			assert.False(t, cur, "sell signal flipped false->true at multiplier %v", mult)
		}
		prev = cur
	}
}

func TestExplicitPriceOverridesState(t *testing.T) {
	cfg := models.DefaultConfig()
	st := signalState(1000, 100, 1, 180, 10) // stale high price would block buy

	sig := ComputeSignals(st, cfg, models.NewPortfolio(), ptr(100))
	assert.True(t, sig.Buy)
}
