package repository

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
)

// HistorySource produces ordered OHLCV bars for a ticker. Implementations
// retry and paginate internally; a total failure yields an empty slice, not
// an error, so callers decide how to degrade.
type HistorySource interface {
	// History fetches bars covering the lookback window at the given
	// granularity, capped to the most recent maxPoints rows.
	History(ctx context.Context, ticker string, lookback time.Duration, granularity time.Duration, maxPoints int) ([]models.Bar, error)
	// Latest fetches the most recent bar, or nil when none is available.
	Latest(ctx context.Context, ticker string) (*models.Bar, error)
	// Name identifies the source in logs.
	Name() string
}

// BarArchive persists fetched history so a refresh can fall back to the
// last good pull when every live source fails.
type BarArchive interface {
	Save(ctx context.Context, ticker string, bars []models.Bar) error
	Load(ctx context.Context, ticker string, limit int) ([]models.Bar, error)
	Close() error
}

// ModelStore persists serialized model artifacts keyed by ticker and
// horizon kind. Load returns models.ErrArtifactNotFound when no artifact
// exists for the key.
type ModelStore interface {
	Load(ticker, kind string) ([]byte, error)
	Save(ticker, kind string, artifact []byte) error
}

// StatePublisher pushes each persisted State to an external sink.
type StatePublisher interface {
	Publish(ctx context.Context, state *models.State) error
	Close() error
}

// Metrics records operational metrics.
type Metrics interface {
	RecordRefresh(kind, outcome string)
	RecordError(kind string)
	RecordTrade(kind, trigger string)
	RecordLastPrice(ticker string, price float64)
	SetSubscribers(n int)
	RecordRefreshDuration(kind string, seconds float64)
}

// NopMetrics discards every metric. Useful for batch mode and tests.
type NopMetrics struct{}

func (NopMetrics) RecordRefresh(string, string)          {}
func (NopMetrics) RecordError(string)                    {}
func (NopMetrics) RecordTrade(string, string)            {}
func (NopMetrics) RecordLastPrice(string, float64)       {}
func (NopMetrics) SetSubscribers(int)                    {}
func (NopMetrics) RecordRefreshDuration(string, float64) {}
