package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	refreshes   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	trades      *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	subscribers prometheus.Gauge
	duration    *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		refreshes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_refreshes_total",
				Help: "Refresh cycles by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		trades: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_trades_total",
				Help: "Executed paper trades by kind and trigger",
			},
			[]string{"kind", "trigger"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_last_price",
				Help: "Last observed price for the configured ticker",
			},
			[]string{"ticker"},
		),
		subscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketpulse_subscribers",
				Help: "Connected push subscribers",
			},
		),
		duration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_refresh_duration_seconds",
				Help:    "Duration of refresh cycles in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}
}

// RecordRefresh records a completed refresh cycle.
func (r *Recorder) RecordRefresh(kind, outcome string) {
	r.refreshes.WithLabelValues(kind, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordTrade records an executed trade.
func (r *Recorder) RecordTrade(kind, trigger string) {
	r.trades.WithLabelValues(kind, trigger).Inc()
}

// RecordLastPrice records the last price for the ticker.
func (r *Recorder) RecordLastPrice(ticker string, price float64) {
	r.lastPrice.WithLabelValues(ticker).Set(price)
}

// SetSubscribers records the current subscriber count.
func (r *Recorder) SetSubscribers(n int) {
	r.subscribers.Set(float64(n))
}

// RecordRefreshDuration records refresh latency in seconds.
func (r *Recorder) RecordRefreshDuration(kind string, seconds float64) {
	r.duration.WithLabelValues(kind).Observe(seconds)
}
