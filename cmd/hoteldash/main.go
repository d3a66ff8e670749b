package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"hoteldash/internal/amqp"
	"hoteldash/internal/backend"
	"hoteldash/internal/cache"
	"hoteldash/internal/cli"
	"hoteldash/internal/config"
	"hoteldash/internal/core"
	apphttp "hoteldash/internal/http"
	applog "hoteldash/internal/log"
	"hoteldash/internal/metrics"
	"hoteldash/internal/middleware/ratelimit"
	"hoteldash/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		cli.Fatal(logger, "Configuration validation failed", "error", err)
	}

	appLogger := applog.New(applog.Config{Handler: logger.Handler(), Component: applog.ComponentApp})
	m := metrics.New()
	ctx := context.Background()

	// The dataset is loaded once; the dashboard never starts without it.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid data source configuration", "error", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize data source", "error", err, "source", cfg.DataSource)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Data source cleanup error", "error", err)
			}
		}()
	}

	loadCtx, cancelLoad := context.WithTimeout(ctx, 2*time.Minute)
	ds, err := result.Loader.Load(loadCtx)
	cancelLoad()
	if err != nil {
		var dle *core.DataLoadError
		if errors.As(err, &dle) {
			cli.Fatal(logger, "Error loading data", "source", dle.Source, "error", dle.Err)
		}
		cli.Fatal(logger, "Error loading data", "error", err)
	}
	rows, cols := ds.Shape()
	m.DatasetLoaded(rows, cols)

	checks := map[string]apphttp.ReadyCheck{}
	opts := services.DashboardOptions{
		Metrics:     m,
		Logger:      appLogger.WithComponent(applog.ComponentViews),
		PreviewRows: cfg.PreviewRows,
	}

	var cacheManager *cache.Manager
	switch cfg.CacheBackend {
	case config.CacheMemory:
		views := cache.NewLRUCache[services.ViewsResult](cfg.CacheSize, cfg.CacheTTL)
		images := cache.NewLRUCache[[]byte](cfg.CacheSize, cfg.CacheTTL)
		cacheManager = cache.NewManager(m.CacheExpired)
		cacheManager.Register(views)
		cacheManager.Register(images)
		cacheManager.StartCleanup(time.Minute)
		opts.ViewCache, opts.ChartCache = views, images
	case config.CacheRedis:
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			cli.Fatal(logger, "Failed to connect to Redis", "error", err, "addr", cfg.RedisAddr)
		}
		defer client.Close()
		opts.ViewCache = cache.NewRedisCache[services.ViewsResult](client, "hoteldash:views", cfg.CacheTTL)
		opts.ChartCache = cache.NewRedisCache[[]byte](client, "hoteldash:charts", cfg.CacheTTL)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	if cacheManager != nil {
		defer cacheManager.Stop()
	}

	dash := services.NewDashboard(result.Loader.Name(), ds, opts)
	applog.NewStructuredLogger(appLogger).
		LogDatasetLoaded(ctx, dash.Source(), rows, cols, dash.Meta().RevenueAvailable)

	// AMQP is optional: a broker outage never blocks the dashboard.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, dataset events disabled", "error", err)
		} else {
			defer client.Close()
			publisher = client
		}
	}
	services.Announce(ctx, publisher, m, amqp.EventDatasetLoaded, result.Loader.Name(), ds)

	var limiter *ratelimit.Limiter
	if cfg.ChartRateLimit > 0 {
		limiter = ratelimit.NewLimiter(ratelimit.Config{Requests: cfg.ChartRateLimit, Window: time.Minute})
	}

	srv := apphttp.NewServer(":"+cfg.Port, dash, apphttp.Options{
		Metrics:      m,
		Logger:       appLogger.WithComponent(applog.ComponentHTTP),
		ChartLimiter: limiter,
		ReadyChecks:  checks,
	})

	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting hoteldash server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"source", result.Loader.Name(),
		"rows", rows,
		"columns", cols,
		"cache", cfg.CacheBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", "error", err, "port", cfg.Port)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	slog.Info("Server stopped gracefully")
}
