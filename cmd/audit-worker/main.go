package main

import (
	"context"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the audit worker")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	var resolver worker.NameResolver
	backend, err := cli.OpenBackend(context.Background(), logger, cfg)
	if err != nil {
		logger.Warn("Backend unavailable, audit entries will carry IDs only", applog.FieldError, err)
	} else {
		resolver = services.NewDirectoryService(backend.Backend, cfg.DirectoryCacheTTL)
	}

	audit := worker.NewAuditWorker(logger, resolver)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err)
		}
		if err := backend.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting audit worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"summary_schedule", cfg.AuditSummarySchedule,
		applog.FieldOperation, applog.OpStartup)

	if err := audit.Run(ctx, client, cfg.AuditSummarySchedule); err != nil {
		logger.Error("Audit worker stopped", applog.FieldError, err, applog.FieldOperation, applog.OpConsume)
		_ = client.Close()
		_ = backend.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
