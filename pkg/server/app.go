package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalFuse/internal/handler/api"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/internal/repository"
	"SignalFuse/internal/usecase"
	pkgch "SignalFuse/pkg/clickhouse"
	"SignalFuse/pkg/config"
	xhttp "SignalFuse/pkg/http"
	pkgkafka "SignalFuse/pkg/kafka"
	applogger "SignalFuse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// App encapsulates the entire application lifecycle: collectors, scheduler,
// rule engine, analysis queue, HTTP API, and their graceful shutdown.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	registry  *usecase.Registry
	engine    *usecase.RuleEngine
	queue     *usecase.AnalysisQueue
	scheduler *usecase.Scheduler
	wsHub     *api.WSHub
	alerts    *api.AlertsHandler

	alertStore domrepo.AlertStore
	history    *repository.CHSignalHistory
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	registry *usecase.Registry,
	engine *usecase.RuleEngine,
	queue *usecase.AnalysisQueue,
	scheduler *usecase.Scheduler,
	wsHub *api.WSHub,
	alerts *api.AlertsHandler,
	alertStore domrepo.AlertStore,
	history *repository.CHSignalHistory,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		engine:     engine,
		queue:      queue,
		scheduler:  scheduler,
		wsHub:      wsHub,
		alerts:     alerts,
		alertStore: alertStore,
		history:    history,
		chClient:   chClient,
		producer:   producer,
	}
}

type routeSet []xhttp.Handler

func (r routeSet) RegisterRoutes(e *echo.Echo) {
	for _, h := range r {
		h.RegisterRoutes(e)
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	// Persistence failures degrade, never abort: the in-memory maps stay
	// authoritative and alerting continues without durability.
	if err := a.alertStore.Init(ctx); err != nil {
		l.Warn("alert store init failed, running without durable alert state", applogger.Error(err))
	}
	if a.history != nil {
		if err := a.history.InitSchema(ctx); err != nil {
			l.Warn("signal history init error, continuing without it", applogger.Error(err))
		}
	}
	if err := a.engine.LoadRules(ctx); err != nil {
		l.Warn("rule load error, continuing with in-memory rules", applogger.Error(err))
	}

	if a.producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Kafka.Topic + ".errors",
			Publisher:      kafkaLogPublisher{a.producer},
		})
	}

	a.httpServer = xhttp.NewServer(routeSet{a.alerts, a.wsHub},
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestMetrics(a.logger, time.Second),
	)

	a.queue.Start(ctx)
	a.scheduler.Start(ctx)
	go a.wsHub.Run(ctx)
	l.Info("pipeline started",
		applogger.Strings("symbols", a.cfg.Symbols),
		applogger.Int("collectors", len(a.registry.Collectors())))

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services. Order matters: stop producing work
// before stopping the workers that drain it, close storage last.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	a.scheduler.Stop()
	a.registry.StopAutoAll()
	a.queue.Stop()
	a.wsHub.Stop()
	l.RemoveCollector()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if err := a.alertStore.Close(); err != nil {
		l.Warn("alert store close error", applogger.Error(err))
	}

	l.Info("shutdown complete")
	return nil
}

// kafkaLogPublisher adapts the Kafka producer to the log collector's
// Publisher interface for shipping aggregated error logs.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (p kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
