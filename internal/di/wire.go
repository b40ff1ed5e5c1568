//go:build wireinject
// +build wireinject

package di

import (
	"SignalFuse/pkg/config"
	"SignalFuse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient infrastructure
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,
		ProvideRateLimiter,
		ProvideHTTPClient,
		ProvideBus,

		// External clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideAnalysisEngine,

		// Repositories
		ProvideSignalHistory,
		ProvideAlertStore,

		// Collection and rules
		ProvideCollectors,
		ProvideRegistry,
		ProvideLiveFeeds,
		ProvideDispatcher,
		ProvideAnalysisQueue,
		ProvideRuleEngine,
		ProvideScheduler,

		// Transport
		ProvideAlertsHandler,
		ProvideWSHub,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
