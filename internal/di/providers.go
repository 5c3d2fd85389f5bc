package di

import (
	"fmt"

	"MarketPulse/internal/broadcast"
	"MarketPulse/internal/domain/repository"
	"MarketPulse/internal/forecast"
	"MarketPulse/internal/handler/api"
	"MarketPulse/internal/provider"
	internalrepo "MarketPulse/internal/repository"
	"MarketPulse/internal/usecase"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	pkghttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	"MarketPulse/pkg/logger"
	"MarketPulse/pkg/metrics"
	"MarketPulse/pkg/server"
	"MarketPulse/pkg/store"
)

// ProvideLogger creates the process logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}

// ProvideMetrics creates a Prometheus recorder, or a no-op recorder when
// metrics are disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return repository.NopMetrics{}
	}
	return metrics.New()
}

// ProvideStore opens the KV store backing persisted config and state.
func ProvideStore(cfg *config.Config, log *logger.Logger) store.Store {
	return store.Open(store.Options{
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		Prefix:        cfg.Store.Prefix,
	}, log)
}

// ProvideModelStore creates the on-disk model artifact store.
func ProvideModelStore(cfg *config.Config) repository.ModelStore {
	return forecast.NewFSModelStore(cfg.Artifacts.Dir)
}

// ProvideEngine creates the forecast engine.
func ProvideEngine(ms repository.ModelStore, log *logger.Logger) *forecast.Engine {
	return forecast.NewEngine(ms, log)
}

// ProvideHistorySource builds the rate-limited provider chain. Binance is
// preferred; Coinbase serves as fallback when Binance fails or returns
// nothing.
func ProvideHistorySource(cfg *config.Config, log *logger.Logger) repository.HistorySource {
	httpClient := pkghttp.NewClient(pkghttp.WithTimeout(cfg.Provider.Timeout))
	sources := []repository.HistorySource{
		provider.NewBinanceSource(cfg.Provider.BinanceAPIKey, cfg.Provider.BinanceAPISecret, log),
		provider.NewCoinbaseSource(cfg.Provider.CoinbaseURL, httpClient, log),
	}
	return provider.NewChain(sources, cfg.Provider.RateLimitPerSec, log)
}

// ProvideBarArchive creates the ClickHouse bar archive, or nil when
// archiving is disabled. The refresher treats a nil archive as absent.
func ProvideBarArchive(cfg *config.Config, log *logger.Logger) (repository.BarArchive, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.Archive.Host),
		pkgch.WithPort(cfg.Archive.Port),
		pkgch.WithDatabase(cfg.Archive.Database),
		pkgch.WithCredentials(cfg.Archive.User, cfg.Archive.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.Archive.DialTimeout, cfg.Archive.ReadTimeout, cfg.Archive.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.Archive.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	archive, err := internalrepo.NewClickHouseBarArchive(client, log)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return archive, nil
}

// ProvideStatePublisher creates the Kafka state publisher, or nil when
// Kafka is disabled.
func ProvideStatePublisher(cfg *config.Config) (repository.StatePublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaStatePublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideHub creates the websocket broadcast hub.
func ProvideHub(log *logger.Logger, m repository.Metrics) *broadcast.Hub {
	return broadcast.NewHub(log, m)
}

// ProvideRefresher creates the refresh use case.
func ProvideRefresher(
	source repository.HistorySource,
	engine *forecast.Engine,
	archive repository.BarArchive,
	publisher repository.StatePublisher,
	kv store.Store,
	hub *broadcast.Hub,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Refresher {
	return usecase.NewRefresher(source, engine, archive, publisher, kv, hub, m, log)
}

// ProvideScheduler creates the dual-cadence scheduler.
func ProvideScheduler(refresher *usecase.Refresher, log *logger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(refresher, log)
}

// ProvideHandler creates the HTTP handler with its websocket endpoint.
func ProvideHandler(log *logger.Logger, refresher *usecase.Refresher, hub *broadcast.Hub) pkghttp.Handler {
	ws := api.NewWSHandler(log, refresher, hub)
	return api.NewHandler(log, refresher, ws)
}

// ProvideApp creates the application server. The KV store, bar archive,
// and state publisher are closed in reverse order on shutdown.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	refresher *usecase.Refresher,
	scheduler *usecase.Scheduler,
	handler pkghttp.Handler,
	kv store.Store,
	archive repository.BarArchive,
	publisher repository.StatePublisher,
) *server.App {
	closers := []server.Closer{kv}
	if archive != nil {
		closers = append(closers, archive)
	}
	if publisher != nil {
		closers = append(closers, publisher)
	}
	return server.New(cfg, log, refresher, scheduler, handler, closers...)
}
