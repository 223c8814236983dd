package di

import (
	"context"
	"fmt"
	"time"

	drepo "CrossWatch/internal/domain/repository"
	"CrossWatch/internal/handler/api"
	internalrepo "CrossWatch/internal/repository"
	icache "CrossWatch/internal/service/cache"
	"CrossWatch/internal/service/delta"
	"CrossWatch/internal/service/notify"
	"CrossWatch/internal/service/ratelimit"
	"CrossWatch/internal/usecase"
	pkgcache "CrossWatch/pkg/cache"
	pkgch "CrossWatch/pkg/clickhouse"
	"CrossWatch/pkg/config"
	xhttp "CrossWatch/pkg/http"
	pkgkafka "CrossWatch/pkg/kafka"
	applogger "CrossWatch/pkg/logger"
	"CrossWatch/pkg/metrics"
	"CrossWatch/pkg/server"
)

const catalogLoadTimeout = 30 * time.Second

// ProvideLogger creates the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideDeltaClient creates the exchange REST client with request pacing.
func ProvideDeltaClient(cfg *config.Config, rec *metrics.Recorder) *delta.Client {
	return delta.New(cfg.Delta.BaseURL,
		delta.WithHTTPClient(xhttp.NewClient(
			xhttp.WithTimeout(cfg.Delta.Timeout),
			xhttp.WithUserAgent("crosswatch/1.0"),
		)),
		delta.WithCandlesPath(cfg.Delta.CandlesPath),
		delta.WithRateLimit(ratelimit.New(), cfg.Delta.RateLimit, cfg.Delta.Burst),
		delta.WithMetrics(rec),
	)
}

// ProvideCandleStore creates the candle cache backend selected by cache.backend.
func ProvideCandleStore(cfg *config.Config) (pkgcache.Service, func(), error) {
	redisOpts := func() []pkgcache.RedisOption {
		return []pkgcache.RedisOption{
			pkgcache.WithRedisHost(cfg.Cache.Redis.Host),
			pkgcache.WithRedisPort(cfg.Cache.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		}
	}

	var store pkgcache.Service
	switch cfg.Cache.Backend {
	case "redis":
		rc, err := pkgcache.NewRedisCache(redisOpts()...)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		store = rc
	case "layered":
		rc, err := pkgcache.NewRedisCache(redisOpts()...)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		store = pkgcache.NewLayeredCache(rc,
			pkgcache.WithLayeredMemorySize(cfg.Cache.MaxSize),
			pkgcache.WithLayeredMemoryTTL(cfg.Cache.CandleTTL/2),
		)
	default:
		store = pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MaxSize))
	}
	return store, func() { _ = store.Close() }, nil
}

// ProvideCandleSource puts the candle cache in front of the exchange client.
func ProvideCandleSource(client *delta.Client, store pkgcache.Service, cfg *config.Config, l *applogger.Logger) drepo.CandleSource {
	return icache.NewCandleCache(client, store, cfg.Cache.CandleTTL, l)
}

// ProvideSnapshotCache creates the debounced ticker snapshot cache.
func ProvideSnapshotCache(client *delta.Client, cfg *config.Config, l *applogger.Logger, rec *metrics.Recorder) *icache.SnapshotCache {
	return icache.NewSnapshotCache(client, cfg.Cache.Freshness,
		icache.WithSnapshotLogger(l),
		icache.WithSnapshotMetrics(rec),
	)
}

// ProvideCatalog loads the instrument catalog. Failure aborts startup.
func ProvideCatalog(client *delta.Client, l *applogger.Logger) (*usecase.InstrumentCatalog, error) {
	catalog := usecase.NewInstrumentCatalog(client, l)
	ctx, cancel := context.WithTimeout(context.Background(), catalogLoadTimeout)
	defer cancel()
	if _, err := catalog.Load(ctx); err != nil {
		return nil, err
	}
	return catalog, nil
}

// ProvideAlertRegistry creates the in-memory alert registry.
func ProvideAlertRegistry() *internalrepo.AlertRegistry {
	return internalrepo.NewAlertRegistry()
}

// ProvideNotifier creates the notifier selected by notify.backend.
func ProvideNotifier(cfg *config.Config, l *applogger.Logger) drepo.Notifier {
	if cfg.Notify.Backend == "smtp" {
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.Notify.SMTP.Host,
			Port:     cfg.Notify.SMTP.Port,
			Username: cfg.Notify.SMTP.Username,
			Password: cfg.Notify.SMTP.Password,
			From:     cfg.Notify.SMTP.From,
			TLS:      cfg.Notify.SMTP.TLS,
		}, l)
	}
	return notify.NewLogNotifier(l)
}

// ProvideDelivery wraps the notifier with timeout and retries.
func ProvideDelivery(cfg *config.Config, n drepo.Notifier) notify.Retrier {
	return notify.Retrier{
		Notifier: n,
		Attempts: cfg.Notify.RetryAttempts,
		Backoff:  cfg.Notify.RetryBackoff,
		Timeout:  cfg.Monitor.NotifyTimeout,
	}
}

// ProvideClickHouseClient connects to ClickHouse and ensures the signal
// table exists. Returns nil when no component needs it.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouseEnabled() {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SignalSchema(cfg.ClickHouse.Database, internalrepo.DefaultSignalsTable)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, func() { _ = client.Close() }, nil
}

// ProvideSignalStore exposes the ClickHouse signal history, nil without ClickHouse.
func ProvideSignalStore(ch *pkgch.Client, l *applogger.Logger) drepo.SignalStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseSignalStore(ch.DB(), ch.Table(internalrepo.DefaultSignalsTable), l)
}

// ProvideKafkaProducer creates a Kafka producer when brokers are configured.
// The same producer feeds signal events and the aggregated error log.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Logging.Topic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Logging.Topic,
			Publisher:      producer,
		})
	}

	l.Info("kafka producer ready",
		applogger.Strings("brokers", cfg.Kafka.Brokers),
		applogger.String("signals_topic", cfg.Kafka.Topic))

	return producer, func() {
		l.RemoveCollector()
		_ = producer.Close()
	}, nil
}

// ProvideSignalPublisher selects where detected crossovers go (events.backend).
func ProvideSignalPublisher(cfg *config.Config, producer *pkgkafka.Producer, store drepo.SignalStore) drepo.SignalPublisher {
	switch cfg.Events.Backend {
	case "kafka":
		if producer != nil {
			return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
		}
	case "clickhouse":
		if store != nil {
			return internalrepo.NewStoreSignalPublisher(store)
		}
	}
	return internalrepo.NoopSignalPublisher{}
}

// ProvideKafkaConsumer creates the signal event consumer when events.consume
// is set; it persists events published by this or other instances.
func ProvideKafkaConsumer(cfg *config.Config, store drepo.SignalStore, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Events.Consume || store == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewSignalEventsHandler(cfg.Kafka.Topic, store, l))
	return consumer, nil
}

// ProvideAlertMonitor creates the scheduler that evaluates every alert.
func ProvideAlertMonitor(
	cfg *config.Config,
	registry *internalrepo.AlertRegistry,
	candles drepo.CandleSource,
	notifier drepo.Notifier,
	publisher drepo.SignalPublisher,
	catalog *usecase.InstrumentCatalog,
	rec *metrics.Recorder,
	l *applogger.Logger,
) *usecase.AlertMonitor {
	mc := usecase.DefaultMonitorConfig()
	mc.Interval = cfg.Monitor.Interval
	mc.CandleLimit = cfg.Monitor.CandleLimit
	mc.MinExtra = cfg.Monitor.MinExtra
	mc.FetchTimeout = cfg.Monitor.FetchTimeout
	mc.NotifyTimeout = cfg.Monitor.NotifyTimeout
	mc.RetryAttempts = cfg.Notify.RetryAttempts
	mc.RetryBackoff = cfg.Notify.RetryBackoff
	mc.MarkOnFailure = cfg.Monitor.MarkOnFailure
	mc.CatalogReload = cfg.Catalog.ReloadInterval

	return usecase.NewAlertMonitor(mc, registry, candles, notifier,
		usecase.WithMonitorLogger(l),
		usecase.WithMonitorMetrics(rec),
		usecase.WithSignalPublisher(publisher),
		usecase.WithCatalogReload(catalog),
	)
}

// ProvideMarketData joins snapshots with the catalog for /data.
func ProvideMarketData(snapshots *icache.SnapshotCache, catalog *usecase.InstrumentCatalog) *usecase.MarketData {
	return usecase.NewMarketData(snapshots, catalog)
}

// ProvideAlertService creates the alert registration use case.
func ProvideAlertService(registry *internalrepo.AlertRegistry, catalog *usecase.InstrumentCatalog, delivery notify.Retrier, l *applogger.Logger) *usecase.AlertService {
	return usecase.NewAlertService(registry, catalog, delivery, l)
}

// ProvideChartUseCase creates the EMA chart use case.
func ProvideChartUseCase(candles drepo.CandleSource) *usecase.ChartUseCase {
	return usecase.NewChartUseCase(candles)
}

// ProvideHandlers collects every route group.
func ProvideHandlers(
	cfg *config.Config,
	l *applogger.Logger,
	market *usecase.MarketData,
	alerts *usecase.AlertService,
	charts *usecase.ChartUseCase,
	store drepo.SignalStore,
	catalog *usecase.InstrumentCatalog,
	monitor *usecase.AlertMonitor,
) []xhttp.Handler {
	deps := map[string]api.Pinger{}
	if store != nil {
		deps["clickhouse"] = store
	}
	return []xhttp.Handler{
		api.NewAlertsEchoHandler(l, market, alerts, ratelimit.New()),
		api.NewPriceStreamHandler(l, market, cfg.Stream.Interval),
		api.NewHistoryEchoHandler(l, charts, store),
		api.NewHealthHandler(catalog, alerts, monitor, deps),
	}
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l, handlers,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	monitor *usecase.AlertMonitor,
	consumer *pkgkafka.Consumer,
	publisher drepo.SignalPublisher,
) *server.App {
	app := server.New(cfg, l, srv, monitor, consumer)
	app.OnShutdown("signal publisher", publisher)
	return app
}
