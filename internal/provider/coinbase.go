package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"MarketPulse/internal/domain/models"
	pkghttp "MarketPulse/pkg/http"
	"MarketPulse/pkg/logger"
)

// candlesPerRequest is the exchange maximum per candles request.
const candlesPerRequest = 300

// CoinbaseSource fetches OHLCV history from the Coinbase Exchange public
// candles endpoint, chunking the lookback window to the per-request cap.
type CoinbaseSource struct {
	baseURL string
	client  *pkghttp.Client
	log     *logger.Logger
}

// NewCoinbaseSource returns a source against baseURL, typically
// https://api.exchange.coinbase.com.
func NewCoinbaseSource(baseURL string, client *pkghttp.Client, log *logger.Logger) *CoinbaseSource {
	return &CoinbaseSource{baseURL: baseURL, client: client, log: log}
}

func (s *CoinbaseSource) Name() string { return "coinbase" }

func (s *CoinbaseSource) History(ctx context.Context, ticker string, lookback, granularity time.Duration, maxPoints int) ([]models.Bar, error) {
	granSeconds, err := coinbaseGranularity(granularity)
	if err != nil {
		return nil, err
	}

	end := time.Now().UTC()
	start := end.Add(-lookback)
	chunk := time.Duration(granSeconds) * time.Second * candlesPerRequest

	var bars []models.Bar
	for cursor := start; cursor.Before(end); cursor = cursor.Add(chunk) {
		chunkEnd := cursor.Add(chunk)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		page, err := s.fetchChunk(ctx, ticker, granSeconds, cursor, chunkEnd)
		if err != nil {
			return nil, err
		}
		bars = append(bars, page...)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	if maxPoints > 0 && len(bars) > maxPoints {
		bars = bars[len(bars)-maxPoints:]
	}
	return bars, nil
}

func (s *CoinbaseSource) Latest(ctx context.Context, ticker string) (*models.Bar, error) {
	end := time.Now().UTC()
	page, err := s.fetchChunk(ctx, ticker, 60, end.Add(-5*time.Minute), end)
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return nil, nil
	}
	sort.Slice(page, func(i, j int) bool { return page[i].Time.Before(page[j].Time) })
	latest := page[len(page)-1]
	return &latest, nil
}

// fetchChunk requests one candles page. The endpoint returns rows as
// [time, low, high, open, close, volume], newest first.
func (s *CoinbaseSource) fetchChunk(ctx context.Context, ticker string, granSeconds int, start, end time.Time) ([]models.Bar, error) {
	var rows [][]json.Number
	err := s.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    fmt.Sprintf("%s/products/%s/candles", s.baseURL, ticker),
		QueryParams: map[string][]string{
			"granularity": {strconv.Itoa(granSeconds)},
			"start":       {start.Format(time.RFC3339)},
			"end":         {end.Format(time.RFC3339)},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("coinbase candles %s: %w", ticker, err)
	}

	bars := make([]models.Bar, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		vals := make([]float64, 6)
		ok := true
		for i := 0; i < 6; i++ {
			v, err := row[i].Float64()
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			s.log.Warn("skipping unparseable candle", logger.String("product", ticker))
			continue
		}
		bars = append(bars, models.Bar{
			Time:   time.Unix(int64(vals[0]), 0).UTC(),
			Low:    vals[1],
			High:   vals[2],
			Open:   vals[3],
			Close:  vals[4],
			Volume: vals[5],
		})
	}
	return bars, nil
}

func coinbaseGranularity(granularity time.Duration) (int, error) {
	switch granularity {
	case time.Minute:
		return 60, nil
	case 5 * time.Minute:
		return 300, nil
	case 15 * time.Minute:
		return 900, nil
	case time.Hour:
		return 3600, nil
	case 6 * time.Hour:
		return 21600, nil
	case 24 * time.Hour:
		return 86400, nil
	default:
		return 0, fmt.Errorf("unsupported granularity %s", granularity)
	}
}
