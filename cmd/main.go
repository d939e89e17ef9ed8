package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/verdict/internal/adapters/http/api"
	"github.com/okian/verdict/internal/adapters/repository"
	app "github.com/okian/verdict/internal/app"
	"github.com/okian/verdict/internal/config"
	"github.com/okian/verdict/internal/domain/assessment"
	"github.com/okian/verdict/internal/domain/criteria"
	"github.com/okian/verdict/internal/domain/insight"
	"github.com/okian/verdict/pkg/logger"
	"github.com/okian/verdict/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "verdict exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the service from cfg and serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := newHTTPServer(ctx, cfg, svc, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService loads the criteria catalogs, opens the configured store and
// builds the assessment service on top of them.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	catalogs, err := criteria.LoadFile(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	if cfg.CatalogPath != "" {
		log.Info(ctx, "criteria catalog loaded", logger.String("path", cfg.CatalogPath))
	}

	openCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout())
	defer cancel()
	repo, err := repository.Open(openCtx, repository.Settings{
		Driver:        cfg.StoreDriver,
		DSN:           cfg.StoreDSN,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}

	builder := assessment.NewBuilder(
		assessment.WithCatalogs(catalogs),
		assessment.WithEngine(insight.NewEngine(insight.WithCatalogs(catalogs))),
	)
	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithRepository(repo),
		app.WithBuilder(builder),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithStoreTimeout(cfg.StoreTimeout()),
	), nil
}

func newHTTPServer(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.Server {
	apiServer := api.NewServer(svc,
		api.WithLogger(log.Named("api")),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithCORSOrigins(cfg.CORSOrigins...),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Routes(ctx),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes the queue and worker gauges. GetStats
// already updates the queue size.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats, err := svc.GetStats(ctx)
	if err != nil {
		logger.Get().Debug(ctx, "stats refresh failed", logger.Error(err))
		return
	}
	metrics.UpdateWorkerCount(stats.WorkerCount)
	metrics.UpdateQueueCapacity(stats.QueueCapacity)
}
