//go:build wireinject
// +build wireinject

package di

import (
	"MarketPulse/pkg/config"
	"MarketPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient services
		ProvideLogger,
		ProvideMetrics,
		ProvideStore,

		// Market data and forecasting
		ProvideHistorySource,
		ProvideModelStore,
		ProvideEngine,

		// Optional sinks
		ProvideBarArchive,
		ProvideStatePublisher,

		// Use cases and transport
		ProvideHub,
		ProvideRefresher,
		ProvideScheduler,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
