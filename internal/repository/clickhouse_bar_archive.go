package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/pkg/clickhouse"
	applogger "MarketPulse/pkg/logger"
)

// barsSchema creates the archive table. ReplacingMergeTree collapses
// re-archived bars for the same (ticker, ts) on merge.
var barsSchema = []string{
	`CREATE TABLE IF NOT EXISTS bars (
		ticker LowCardinality(String),
		ts     DateTime64(3, 'UTC'),
		open   Float64,
		high   Float64,
		low    Float64,
		close  Float64,
		volume Float64
	) ENGINE = ReplacingMergeTree()
	ORDER BY (ticker, ts)`,
}

// ClickHouseBarArchive persists every successfully fetched history window
// so refresh cycles survive provider outages.
type ClickHouseBarArchive struct {
	client *clickhouse.Client
	log    *applogger.Logger
}

// NewClickHouseBarArchive connects and ensures the schema exists.
func NewClickHouseBarArchive(client *clickhouse.Client, log *applogger.Logger) (*ClickHouseBarArchive, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, barsSchema); err != nil {
		return nil, fmt.Errorf("bar archive schema: %w", err)
	}
	return &ClickHouseBarArchive{client: client, log: log}, nil
}

// Save archives the full fetched window in one batched insert.
func (a *ClickHouseBarArchive) Save(ctx context.Context, ticker string, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := a.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO bars (ticker, ts, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("archive prepare: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, ticker, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("archive insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive commit: %w", err)
	}

	a.log.Debug("archived bars",
		applogger.String("ticker", ticker),
		applogger.Int("bars", len(bars)))
	return nil
}

// Load returns the most recent limit bars for ticker in time order.
// Re-archived duplicates are collapsed to the latest row per timestamp.
func (a *ClickHouseBarArchive) Load(ctx context.Context, ticker string, limit int) ([]models.Bar, error) {
	if limit <= 0 {
		limit = 50000
	}

	rows, err := a.client.DB().QueryContext(ctx,
		`SELECT ts, open, high, low, close, volume
		 FROM bars FINAL
		 WHERE ticker = ?
		 ORDER BY ts DESC
		 LIMIT ?`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("archive query: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("archive scan: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive rows: %w", err)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (a *ClickHouseBarArchive) Close() error {
	return a.client.Close()
}
