package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
	"expensetracker/internal/stats"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	statsOpts, err := cli.StatsOptions(cfg)
	if err != nil {
		logger.Error("Invalid statistics settings", applog.FieldError, err)
		os.Exit(1)
	}

	backend, err := cli.OpenBackend(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	cacheManager := cache.NewManager()
	directory := services.NewDirectoryService(backend.Backend, cfg.DirectoryCacheTTL)
	directory.RegisterCaches(cacheManager)
	cacheManager.StartCleanup(time.Minute)

	expenses := services.NewExpenseService(backend.Backend, backend.Publisher).
		WithRequestID(trace.GetRequestID)
	statistics := stats.NewService(backend.Backend, statsOpts)

	srv, err := apphttp.NewServer(":"+cfg.Port, statistics, expenses, directory, apphttp.Options{
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies:     cfg.TrustedProxies,
		Ready:              backend.Ready,
	})
	if err != nil {
		logger.Error("Failed to configure HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if err := backend.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting expense API",
		"addr", srv.Addr,
		"backend", cfg.DataBackend,
		"forecast_strategy", string(statsOpts.Forecast.Strategy),
		applog.FieldOperation, applog.OpStartup)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
