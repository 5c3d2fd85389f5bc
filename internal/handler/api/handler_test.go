package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketPulse/internal/broadcast"
	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/forecast"
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/store"
)

type stubSource struct {
	bars []models.Bar
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) History(context.Context, string, time.Duration, time.Duration, int) ([]models.Bar, error) {
	return s.bars, nil
}

func (s *stubSource) Latest(context.Context, string) (*models.Bar, error) {
	return nil, nil
}

func stubBars(hours int) []models.Bar {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	n := hours * 60
	bars := make([]models.Bar, n)
	for i := range bars {
		price := 100.0 + float64(i)*0.01
		bars[i] = models.Bar{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   price,
			High:   price + 0.01,
			Low:    price - 0.01,
			Close:  price,
			Volume: 5 + float64(i%7),
		}
	}
	return bars
}

func newTestHandler(t *testing.T) (*Handler, *usecase.Refresher) {
	t.Helper()
	kv := store.NewMemoryStore()
	engine := forecast.NewEngine(forecast.NewFSModelStore(t.TempDir()), logger.Nop())
	hub := broadcast.NewHub(logger.Nop(), repository.NopMetrics{})
	refresher := usecase.NewRefresher(&stubSource{bars: stubBars(100)}, engine, nil, nil, kv, hub, repository.NopMetrics{}, logger.Nop())
	ws := NewWSHandler(logger.Nop(), refresher, hub)
	return NewHandler(logger.Nop(), refresher, ws), refresher
}

func doRequest(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), models.StatusInitializing)
}

func TestStateEndpoint(t *testing.T) {
	h, r := newTestHandler(t)
	_, err := r.FullRefresh(context.Background(), false)
	require.NoError(t, err)

	rec := doRequest(h, http.MethodGet, "/api/state", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.State `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusOK, resp.Data.Status)
	assert.NotNil(t, resp.Data.NextMinutePrice)
}

func TestGetConfigEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/config", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BTC-USD")
}

func TestUpdateConfigMerges(t *testing.T) {
	h, r := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/config", `{"chart_points": 120}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	cfg := r.Config()
	assert.Equal(t, 120, cfg.ChartPoints)
	assert.Equal(t, "BTC-USD", cfg.Ticker)
}

func TestUpdateConfigRejectsOutOfRange(t *testing.T) {
	h, r := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/config", `{"chart_points": 3}`)

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, 500, r.Config().ChartPoints, "rejected update leaves config untouched")
}

func TestBuyWithoutPriceRejected(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/trade/buy", "")

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Contains(t, rec.Body.String(), "ERR_TRADE_REJECTED")
}

func TestBuyAfterRefresh(t *testing.T) {
	h, r := newTestHandler(t)
	_, err := r.FullRefresh(context.Background(), false)
	require.NoError(t, err)

	rec := doRequest(h, http.MethodPost, "/api/trade/buy", `{"amount": 500}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status int          `json:"status"`
		Data   models.State `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Greater(t, resp.Data.Portfolio.Units, 0.0)
	assert.Equal(t, 500.0, resp.Data.Portfolio.InvestedAmount)
}

func TestBuyRejectsNonPositiveAmount(t *testing.T) {
	h, r := newTestHandler(t)
	_, err := r.FullRefresh(context.Background(), false)
	require.NoError(t, err)

	rec := doRequest(h, http.MethodPost, "/api/trade/buy", `{"amount": -10}`)

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestSellWithoutPositionRejected(t *testing.T) {
	h, r := newTestHandler(t)
	_, err := r.FullRefresh(context.Background(), false)
	require.NoError(t, err)

	rec := doRequest(h, http.MethodPost, "/api/trade/sell", "")

	var resp struct {
		Status int `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestSellClosesPosition(t *testing.T) {
	h, r := newTestHandler(t)
	_, err := r.FullRefresh(context.Background(), false)
	require.NoError(t, err)
	_, err = r.Buy(context.Background(), nil)
	require.NoError(t, err)

	rec := doRequest(h, http.MethodPost, "/api/trade/sell", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.State `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Portfolio.Withdrawn)
}

func TestRetrainEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/retrain", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.State `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusOK, resp.Data.Status)
}
