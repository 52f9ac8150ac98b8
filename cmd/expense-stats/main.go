package main

import (
	"context"
	"os"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/stats"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentCLI)

	open := func(ctx context.Context) (stats.Ledger, func() error, *config.Config, error) {
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return nil, nil, nil, err
		}
		backend, err := cli.OpenBackend(ctx, logger, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		return backend.Backend, backend.Close, cfg, nil
	}

	if err := newRootCommand(open, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
