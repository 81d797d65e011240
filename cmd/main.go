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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/competemcgill/techgames/internal/adapters/github"
	"github.com/competemcgill/techgames/internal/adapters/http/api"
	"github.com/competemcgill/techgames/internal/adapters/http/site"
	"github.com/competemcgill/techgames/internal/adapters/http/swagger"
	"github.com/competemcgill/techgames/internal/adapters/repository"
	service "github.com/competemcgill/techgames/internal/app"
	"github.com/competemcgill/techgames/internal/config"
	"github.com/competemcgill/techgames/internal/domain/dedupe"
	"github.com/competemcgill/techgames/pkg/logger"
	"github.com/competemcgill/techgames/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// The custom registry carries our own system gauges.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "service exited", logger.Error(err))
		os.Exit(1)
	}
}

// run wires every component from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := repository.Close(db); err != nil {
			log.Warn(ctx, "closing database", logger.Error(err))
		}
	}()

	deduper, closeDeduper, err := buildDeduper(cfg)
	if err != nil {
		return err
	}
	defer closeDeduper()

	svc := newService(cfg, db, deduper, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("environment", cfg.Environment),
			logger.String("idempotency_backend", cfg.IdempotencyBackend))
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

// openDatabase connects and migrates the configured database.
func openDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	db, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repository.Migrate(ctx, db); err != nil {
		_ = repository.Close(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// buildDeduper returns the configured submission deduper, nil for "none",
// and a release func that is always safe to call.
func buildDeduper(cfg *config.Config) (dedupe.Deduper, func(), error) {
	ttl := time.Duration(cfg.IdempotencyTTLSeconds) * time.Second
	switch cfg.IdempotencyBackend {
	case "", "none":
		return nil, func() {}, nil
	case "memory":
		return dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.IdempotencyMaxKeys), dedupe.WithTTL(ttl)), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		release := func() { _ = client.Close() }
		return dedupe.NewRedisDeduper(client, dedupe.WithTTL(ttl), dedupe.WithPrefix("techgames:submission")), release, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown idempotency backend %q", config.ErrInvalidConfig, cfg.IdempotencyBackend)
	}
}

// newService assembles the orchestration layer over db and GitHub.
func newService(cfg *config.Config, db *gorm.DB, deduper dedupe.Deduper, log logger.Logger) *service.Service {
	store := repository.NewStore(db, repository.WithLogger(log.Named("repository")))
	gh := github.New(cfg.GitHubClientID, cfg.GitHubClientSecret,
		github.WithTokenURL(cfg.GitHubTokenURL),
		github.WithAPIURL(cfg.GitHubAPIURL),
		github.WithTemplate(cfg.TemplateOwner, cfg.TemplateRepo),
		github.WithTimeout(time.Duration(cfg.OutboundTimeoutMS)*time.Millisecond),
		github.WithLogger(log.Named("github")),
	)

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithStore(store),
		service.WithProvider(gh),
		service.WithRepoTemplate(cfg.GitHubWebURL, cfg.TemplateRepo),
	}
	if deduper != nil {
		opts = append(opts, service.WithDeduper(deduper))
	}
	return service.New(opts...)
}

// newRouter mounts the API, docs and landing page on a fresh chi router.
func newRouter(cfg *config.Config, svc *service.Service, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	api.NewServer(svc, svc,
		api.WithMode(cfg.Mode()),
		api.WithLogger(log.Named("http")),
	).Register(r)
	swagger.Register(r)
	site.Register(r)
	return r
}

// startSystemMetricsUpdater refreshes process gauges until ctx is done.
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

// startServiceMetricsUpdater refreshes the account gauge until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the accounts gauge as a side effect.
			_ = svc.GetStats(ctx)
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
