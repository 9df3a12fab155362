// Package bootstrap assembles the sync engine from configuration and runs
// its component lifecycle.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ordersync/internal/auth"
	"ordersync/internal/config"
	"ordersync/internal/core"
	"ordersync/internal/infrastructure/health"
	"ordersync/internal/infrastructure/metrics"
	"ordersync/internal/mock"
	"ordersync/internal/notice"
	"ordersync/internal/store"
	"ordersync/internal/transport"
	"ordersync/pkg/concurrency"
	"ordersync/pkg/logging"
	"ordersync/pkg/telemetry"

	"golang.org/x/sync/errgroup"
)

// App holds the assembled engine components.
type App struct {
	Cfg       *config.Config
	Logger    core.Logger
	Session   *auth.Session
	Store     *store.Store
	Poller    *store.Poller
	Notices   *notice.Center
	Pool      *concurrency.WorkerPool
	Health    *health.Manager
	Telemetry *telemetry.Providers

	metricsSrv  *metrics.Server
	notifyState core.NotifyState
	zapLogger   *logging.ZapLogger
}

// Option adjusts the assembly before components are wired.
type Option func(*options)

type options struct {
	transport core.Transport
	confirmer core.Confirmer
}

// WithTransport overrides the HTTP transport, used by local runs against the
// in-memory mock backend.
func WithTransport(t core.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithConfirmer installs the deletion confirmation prompt.
func WithConfirmer(c core.Confirmer) Option {
	return func(o *options) { o.confirmer = c }
}

// NewApp bootstraps all dependencies from the config file.
func NewApp(configPath string, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	tel, err := telemetry.Setup(telemetry.Options{
		ServiceName: "ordersync",
		Deployment:  cfg.App.RestaurantName,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	zl, err := logging.NewZapLogger(cfg.System.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logger := core.Logger(zl)

	session := auth.NewSession(logger)
	gate := auth.NewRoleGate()
	pipeline := cfg.CorePipeline()

	notices := notice.NewCenter(logger)
	if cfg.Alerts.Console {
		notices.AddChannel(notice.NewConsoleChannel())
	}
	if cfg.Alerts.TelegramBotToken.Value() != "" {
		notices.AddChannel(notice.NewTelegramChannel(
			cfg.Alerts.TelegramBotToken.Value(), cfg.Alerts.TelegramChatID))
	}

	var notifyState core.NotifyState
	if cfg.Sync.NotifyStatePath != "" {
		notifyState, err = store.NewSQLiteNotifyState(cfg.Sync.NotifyStatePath)
		if err != nil {
			return nil, fmt.Errorf("notify state: %w", err)
		}
	} else {
		notifyState = store.NewMemoryNotifyState()
	}

	notifier := store.NewNotifier(pipeline, notifyState, notices, logger)

	tr := o.transport
	if tr == nil {
		tr = transport.NewClient(
			cfg.Backend.BaseURL,
			cfg.Backend.APIToken.Value(),
			time.Duration(cfg.Backend.TimeoutSeconds)*time.Second,
			logger,
		)
	}

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "refresh-callbacks",
		MaxWorkers:  cfg.Concurrency.CallbackPoolSize,
		MaxCapacity: cfg.Concurrency.CallbackPoolBuffer,
	}, logger)

	st := store.New(tr, session, gate, o.confirmer, pipeline, notifier, notices, pool, logger)
	poller := store.NewPoller(st, session,
		time.Duration(cfg.Sync.PollIntervalSeconds)*time.Second, logger)

	healthMgr := health.NewManager(logger)
	staleAfter := 3 * time.Duration(cfg.Sync.PollIntervalSeconds) * time.Second
	healthMgr.Register("sync_freshness", func() error {
		if !session.Authenticated() {
			return nil
		}
		last := st.LastSyncAt()
		if last.IsZero() || time.Since(last) > staleAfter {
			return fmt.Errorf("no successful refresh in %s", staleAfter)
		}
		return nil
	})

	app := &App{
		Cfg:         cfg,
		Logger:      logger,
		Session:     session,
		Store:       st,
		Poller:      poller,
		Notices:     notices,
		Pool:        pool,
		Health:      healthMgr,
		Telemetry:   tel,
		notifyState: notifyState,
		zapLogger:   zl,
	}

	if cfg.Telemetry.EnableMetrics {
		app.metricsSrv = metrics.NewServer(cfg.Telemetry.MetricsPort, healthMgr, logger)
	}

	return app, nil
}

// NewMockApp bootstraps against the in-memory backend, for local runs.
func NewMockApp(configPath string, backend *mock.MockTransport, opts ...Option) (*App, error) {
	return NewApp(configPath, append([]Option{WithTransport(backend)}, opts...)...)
}

// Runner is a component with a blocking lifecycle.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Run starts the poller, metrics server, and any extra runners, then blocks
// until a termination signal or a runner failure. Shutdown drains the worker
// pool and flushes telemetry before returning.
func (a *App) Run(runners ...Runner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	a.Logger.Info("Starting order sync engine",
		"restaurant", a.Cfg.App.RestaurantName,
		"poll_interval_seconds", a.Cfg.Sync.PollIntervalSeconds)

	if a.metricsSrv != nil {
		a.metricsSrv.Start()
	}

	a.Poller.Start(gctx)

	for _, runner := range runners {
		r := runner
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err := g.Wait()

	a.shutdown()

	if err != nil && err != context.Canceled {
		a.Logger.Error("Engine stopped with error", "error", err.Error())
		return err
	}
	a.Logger.Info("Engine shut down gracefully")
	return nil
}

func (a *App) shutdown() {
	a.Poller.Stop()
	a.Pool.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.metricsSrv != nil {
		if err := a.metricsSrv.Stop(shutdownCtx); err != nil {
			a.Logger.Warn("Metrics server shutdown failed", "error", err.Error())
		}
	}
	if err := a.notifyState.Close(); err != nil {
		a.Logger.Warn("Notify state close failed", "error", err.Error())
	}
	if err := a.Telemetry.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("Telemetry shutdown failed", "error", err.Error())
	}
	_ = a.zapLogger.Sync()
}
