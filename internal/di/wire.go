//go:build wireinject
// +build wireinject

package di

import (
	"CrossWatch/pkg/config"
	"CrossWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideDeltaClient,
		ProvideCandleStore,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories and services
		ProvideCandleSource,
		ProvideSnapshotCache,
		ProvideAlertRegistry,
		ProvideNotifier,
		ProvideDelivery,
		ProvideSignalStore,
		ProvideSignalPublisher,
		ProvideKafkaConsumer,

		// Use cases
		ProvideCatalog,
		ProvideAlertMonitor,
		ProvideMarketData,
		ProvideAlertService,
		ProvideChartUseCase,

		// Transport
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
