package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/logger"
)

// klinesPageSize is the exchange maximum per klines request.
const klinesPageSize = 1000

// BinanceSource fetches OHLCV history from Binance spot klines, paginating
// by close time until the lookback window is covered.
type BinanceSource struct {
	client *binance.Client
	log    *logger.Logger
}

// NewBinanceSource returns a source using the given API credentials.
// Empty credentials are valid for the public klines endpoints.
func NewBinanceSource(apiKey, apiSecret string, log *logger.Logger) *BinanceSource {
	return &BinanceSource{
		client: binance.NewClient(apiKey, apiSecret),
		log:    log,
	}
}

func (s *BinanceSource) Name() string { return "binance" }

func (s *BinanceSource) History(ctx context.Context, ticker string, lookback, granularity time.Duration, maxPoints int) ([]models.Bar, error) {
	symbol := binanceSymbol(ticker)
	interval, err := binanceInterval(granularity)
	if err != nil {
		return nil, err
	}

	end := time.Now().UTC()
	cursor := historyStart(end, lookback, granularity, maxPoints).UnixMilli()

	var bars []models.Bar
	for {
		klines, err := s.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(cursor).
			Limit(klinesPageSize).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s: %w", symbol, err)
		}
		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			bar, err := klineToBar(k)
			if err != nil {
				s.log.Warn("skipping unparseable kline",
					logger.String("symbol", symbol),
					logger.Error(err))
				continue
			}
			bars = append(bars, bar)
		}

		cursor = klines[len(klines)-1].CloseTime + 1
		if len(klines) < klinesPageSize || cursor >= end.UnixMilli() {
			break
		}
	}

	if maxPoints > 0 && len(bars) > maxPoints {
		bars = bars[len(bars)-maxPoints:]
	}
	return bars, nil
}

// historyStart clamps the fetch window so it never spans more than
// maxPoints bars. The freshest bars win when the cap truncates; pagination
// then walks forward from the clamped start and cannot stop early on stale
// history.
func historyStart(end time.Time, lookback, granularity time.Duration, maxPoints int) time.Time {
	start := end.Add(-lookback)
	if maxPoints > 0 {
		if capped := end.Add(-time.Duration(maxPoints) * granularity); capped.After(start) {
			start = capped
		}
	}
	return start
}

func (s *BinanceSource) Latest(ctx context.Context, ticker string) (*models.Bar, error) {
	klines, err := s.client.NewKlinesService().
		Symbol(binanceSymbol(ticker)).
		Interval("1m").
		Limit(1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance latest kline: %w", err)
	}
	if len(klines) == 0 {
		return nil, nil
	}
	bar, err := klineToBar(klines[len(klines)-1])
	if err != nil {
		return nil, err
	}
	return &bar, nil
}

func klineToBar(k *binance.Kline) (models.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parse low: %w", err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("parse volume: %w", err)
	}
	return models.Bar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

// binanceSymbol maps a dash-separated product id to the exchange symbol.
// USD quotes trade as USDT pairs on the spot market.
func binanceSymbol(ticker string) string {
	parts := strings.SplitN(ticker, "-", 2)
	if len(parts) != 2 {
		return strings.ToUpper(strings.ReplaceAll(ticker, "-", ""))
	}
	base, quote := strings.ToUpper(parts[0]), strings.ToUpper(parts[1])
	if quote == "USD" {
		quote = "USDT"
	}
	return base + quote
}

func binanceInterval(granularity time.Duration) (string, error) {
	switch granularity {
	case time.Minute:
		return "1m", nil
	case 5 * time.Minute:
		return "5m", nil
	case 15 * time.Minute:
		return "15m", nil
	case time.Hour:
		return "1h", nil
	case 24 * time.Hour:
		return "1d", nil
	default:
		return "", fmt.Errorf("unsupported granularity %s", granularity)
	}
}
