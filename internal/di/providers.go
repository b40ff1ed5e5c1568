package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"SignalFuse/internal/collectors"
	domrepo "SignalFuse/internal/domain/repository"
	domsvc "SignalFuse/internal/domain/service"
	"SignalFuse/internal/handler/api"
	internalrepo "SignalFuse/internal/repository"
	"SignalFuse/internal/service/analysis"
	"SignalFuse/internal/service/events"
	"SignalFuse/internal/service/feeds"
	"SignalFuse/internal/service/notify"
	"SignalFuse/internal/service/ratelimit"
	"SignalFuse/internal/usecase"
	pkgcache "SignalFuse/pkg/cache"
	pkgch "SignalFuse/pkg/clickhouse"
	"SignalFuse/pkg/config"
	xhttp "SignalFuse/pkg/http"
	pkgkafka "SignalFuse/pkg/kafka"
	"SignalFuse/pkg/logger"
	"SignalFuse/pkg/metrics"
	"SignalFuse/pkg/server"
)

const eventBusBuffer = 256

// ProvideLogger creates the application logger. Development gets a human
// readable console format, everything else logs JSON.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lc := &logger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment == "development" {
		lc.Level = "debug"
		lc.Format = "console"
	}
	l, err := logger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCache selects the cache backend. Redis gets a layered cache with a
// small in-process front; without Redis a plain memory cache serves alone.
func ProvideCache(cfg *config.Config, l *logger.Logger) pkgcache.Service {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache()
	}

	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		l.Warn("invalid redis addr, falling back to memory cache", logger.String("addr", cfg.Redis.Addr))
		return pkgcache.NewMemoryCache()
	}
	port, _ := strconv.Atoi(portStr)

	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		l.Warn("redis unavailable, falling back to memory cache", logger.Error(err))
		return pkgcache.NewMemoryCache()
	}
	return pkgcache.NewLayeredCache(rc)
}

// ProvideRateLimiter creates the shared per-upstream token bucket limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHTTPClient creates the outbound HTTP client shared by feed clients.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(15 * time.Second))
}

func feedConfig(fc config.FeedConfig) feeds.Config {
	return feeds.Config{
		BaseURL:          fc.BaseURL,
		APIKey:           fc.APIKey,
		CacheTTL:         fc.CacheTTL,
		RateCapacity:     fc.RateCapacity,
		RateRefillPerSec: fc.RateRefillPerSec,
	}
}

// ProvideCollectors builds one collector per configured feed. Disabled feeds
// still get a collector so their status shows up in /api/collectors; the
// collector is simply switched off.
func ProvideCollectors(
	cfg *config.Config,
	hc *xhttp.Client,
	cache pkgcache.Service,
	limit *ratelimit.Limiter,
	l *logger.Logger,
	m domrepo.Metrics,
) []domsvc.Collector {
	socialFeed := feeds.NewSocialClient(feedConfig(cfg.Feeds.Social), hc, cache, limit, l)
	insiderFeed := feeds.NewInsiderClient(feedConfig(cfg.Feeds.Insider), hc, cache, limit, l)
	congressFeed := feeds.NewCongressClient(feedConfig(cfg.Feeds.Congress), hc, cache, limit, l)
	newsFeed := feeds.NewNewsClient(feedConfig(cfg.Feeds.News), hc, cache, limit, l)

	list := []struct {
		c       domsvc.Collector
		enabled bool
	}{
		{collectors.NewSocial(socialFeed, l, m, cfg.Feeds.Social.Interval, cfg.Feeds.Social.SymbolDelay), cfg.Feeds.Social.Enabled},
		{collectors.NewInsider(insiderFeed, l, m, cfg.Feeds.Insider.Interval, cfg.Feeds.Insider.SymbolDelay), cfg.Feeds.Insider.Enabled},
		{collectors.NewCongress(congressFeed, l, m, cfg.Feeds.Congress.Interval, cfg.Feeds.Congress.SymbolDelay), cfg.Feeds.Congress.Enabled},
		{collectors.NewNews(newsFeed, l, m, cfg.Feeds.News.Interval, cfg.Feeds.News.SymbolDelay), cfg.Feeds.News.Enabled},
	}

	out := make([]domsvc.Collector, 0, len(list))
	for _, e := range list {
		if !e.enabled {
			off := false
			e.c.UpdateConfig(domsvc.CollectorConfigPatch{Enabled: &off})
		}
		out = append(out, e.c)
	}
	return out
}

// ProvideBus creates the in-process event bus.
func ProvideBus() *events.Bus {
	return events.NewBus(eventBusBuffer)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// signal history backend is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
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
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSignalHistory wraps the ClickHouse client as the signal history
// repository. Returns nil when ClickHouse is disabled.
func ProvideSignalHistory(chClient *pkgch.Client, l *logger.Logger) *internalrepo.CHSignalHistory {
	if chClient == nil {
		return nil
	}
	h := internalrepo.NewCHSignalHistory(chClient)
	h.SetLogger(l)
	return h
}

// ProvideRegistry creates the collector registry.
func ProvideRegistry(
	cols []domsvc.Collector,
	l *logger.Logger,
	m domrepo.Metrics,
	bus *events.Bus,
	history *internalrepo.CHSignalHistory,
	cfg *config.Config,
) *usecase.Registry {
	opts := []usecase.RegistryOption{}
	if cfg.Scheduler.CollectTimeout > 0 {
		opts = append(opts, usecase.WithCollectTimeout(cfg.Scheduler.CollectTimeout))
	}
	if history != nil {
		opts = append(opts, usecase.WithSignalHistory(history))
	}
	return usecase.NewRegistry(cols, l, m, bus, opts...)
}

// ProvideAlertStore creates the SQLite-backed alert and rule store. A store
// that cannot be opened or migrated degrades to the in-memory fallback with
// a warning; persistence failures never stop the pipeline from starting.
func ProvideAlertStore(cfg *config.Config, l *logger.Logger) domrepo.AlertStore {
	store, err := internalrepo.NewSQLiteAlertStore(cfg.AlertStore.Path, l)
	if err == nil {
		err = store.Init(context.Background())
	}
	if err != nil {
		l.Warn("alert store unavailable, continuing with in-memory state only",
			logger.String("path", cfg.AlertStore.Path), logger.Error(err))
		return internalrepo.NewMemoryAlertStore()
	}
	return store
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka
// notifications are disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideDispatcher assembles the notification fan-out from configured
// channels. Console is always present so every alert lands somewhere.
func ProvideDispatcher(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	l *logger.Logger,
	m domrepo.Metrics,
) *notify.Dispatcher {
	timeout := cfg.Notifications.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	notifiers := []domsvc.Notifier{notify.NewConsole(l)}
	if cfg.Notifications.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Notifications.WebhookURL, timeout))
	}
	if cfg.Notifications.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.Notifications.SlackWebhookURL, timeout))
	}
	if producer != nil {
		notifiers = append(notifiers, notify.NewKafka(producer, cfg.Kafka.Topic))
	}
	return notify.NewDispatcher(l, m, notifiers...)
}

// ProvideAnalysisEngine creates the client for the external analysis service.
func ProvideAnalysisEngine(cfg *config.Config, l *logger.Logger) domsvc.AnalysisEngine {
	var opts []analysis.Option
	if cfg.Analysis.Attempts > 0 {
		opts = append(opts, analysis.WithAttempts(cfg.Analysis.Attempts))
	}
	return analysis.New(cfg.Analysis.ServiceURL, cfg.Analysis.Timeout, l, opts...)
}

// ProvideAnalysisQueue creates the bounded-concurrency analysis queue.
func ProvideAnalysisQueue(
	engine domsvc.AnalysisEngine,
	store domrepo.AlertStore,
	dispatch *notify.Dispatcher,
	bus *events.Bus,
	l *logger.Logger,
	m domrepo.Metrics,
	cfg *config.Config,
) *usecase.AnalysisQueue {
	var opts []usecase.QueueOption
	if cfg.Analysis.Concurrency > 0 {
		opts = append(opts, usecase.WithConcurrency(cfg.Analysis.Concurrency))
	}
	return usecase.NewAnalysisQueue(engine, store, dispatch, bus, l, m, opts...)
}

// ProvideLiveFeeds adapts collector output (and optionally market data) into
// rule trigger events.
func ProvideLiveFeeds(
	registry *usecase.Registry,
	cfg *config.Config,
	hc *xhttp.Client,
	cache pkgcache.Service,
	limit *ratelimit.Limiter,
	l *logger.Logger,
) *usecase.LiveFeeds {
	var market usecase.MarketFeed
	if cfg.Feeds.Market.Enabled {
		market = feeds.NewMarketClient(feedConfig(cfg.Feeds.Market), cfg.Symbols, hc, cache, limit, l)
	}
	return usecase.NewLiveFeeds(registry, market)
}

// ProvideRuleEngine creates the alert rule engine.
func ProvideRuleEngine(
	store domrepo.AlertStore,
	live *usecase.LiveFeeds,
	queue *usecase.AnalysisQueue,
	dispatch *notify.Dispatcher,
	bus *events.Bus,
	l *logger.Logger,
	m domrepo.Metrics,
) *usecase.RuleEngine {
	return usecase.NewRuleEngine(store, live, queue, dispatch, bus, l, m)
}

// ProvideScheduler creates the collection and evaluation scheduler.
func ProvideScheduler(
	registry *usecase.Registry,
	engine *usecase.RuleEngine,
	cfg *config.Config,
	l *logger.Logger,
) *usecase.Scheduler {
	var opts []usecase.SchedulerOption
	if cfg.Scheduler.TickInterval > 0 {
		opts = append(opts, usecase.WithTickInterval(cfg.Scheduler.TickInterval))
	}
	if cfg.Scheduler.RetentionEvery > 0 && cfg.Scheduler.RetentionAge > 0 {
		opts = append(opts, usecase.WithRetention(cfg.Scheduler.RetentionEvery, cfg.Scheduler.RetentionAge))
	}
	return usecase.NewScheduler(registry, engine, cfg.Symbols, l, opts...)
}

// ProvideAlertsHandler creates the REST API handler.
func ProvideAlertsHandler(
	l *logger.Logger,
	registry *usecase.Registry,
	engine *usecase.RuleEngine,
	store domrepo.AlertStore,
	history *internalrepo.CHSignalHistory,
) *api.AlertsHandler {
	var hist domrepo.SignalHistory
	if history != nil {
		hist = history
	}
	return api.NewAlertsHandler(l, registry, engine, store, hist)
}

// ProvideWSHub creates the WebSocket broadcast hub.
func ProvideWSHub(bus *events.Bus, l *logger.Logger) *api.WSHub {
	return api.NewWSHub(bus, l)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	registry *usecase.Registry,
	engine *usecase.RuleEngine,
	queue *usecase.AnalysisQueue,
	scheduler *usecase.Scheduler,
	wsHub *api.WSHub,
	alerts *api.AlertsHandler,
	store domrepo.AlertStore,
	history *internalrepo.CHSignalHistory,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
) *server.App {
	return server.New(cfg, l, registry, engine, queue, scheduler, wsHub, alerts, store, history, chClient, producer)
}
