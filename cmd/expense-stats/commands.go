package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/stats"
)

// ledgerOpener returns the configured ledger, its cleanup and the loaded config.
type ledgerOpener func(ctx context.Context) (stats.Ledger, func() error, *config.Config, error)

type statsFlags struct {
	asOf      string
	strategy  string
	window    int
	minMonths int
	limit     int
	idleUsers bool
	pretty    bool
}

func newRootCommand(open ledgerOpener, out io.Writer) *cobra.Command {
	flags := &statsFlags{}

	rootCmd := &cobra.Command{
		Use:   "expense-stats",
		Short: "Print expense statistics from the configured ledger as JSON",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.asOf, "as-of", "", "evaluate relative to this date (YYYY-MM-DD) instead of today")
	pf.StringVar(&flags.strategy, "strategy", "", "forecast strategy: latest or rolling (default from STATS_FORECAST_STRATEGY)")
	pf.IntVar(&flags.window, "window", 0, "forecast window in months (default from STATS_FORECAST_WINDOW)")
	pf.IntVar(&flags.minMonths, "min-months", 0, "minimum months of history for a forecast (default from STATS_FORECAST_MIN_MONTHS)")
	pf.IntVar(&flags.limit, "limit", 0, "top days per user (default from STATS_TOP_DAYS_LIMIT)")
	pf.BoolVar(&flags.idleUsers, "idle-users", false, "include users without expenses in top-days")
	pf.BoolVar(&flags.pretty, "pretty", false, "indent JSON output")

	rootCmd.AddCommand(
		newStatCommand("top-days", "Top spending days per user", open, flags,
			func(ctx context.Context, s *stats.Service) (any, error) { return s.TopDays(ctx) }),
		newStatCommand("monthly-change", "Month-over-month spending change per user", open, flags,
			func(ctx context.Context, s *stats.Service) (any, error) { return s.MonthlyChange(ctx) }),
		newStatCommand("predict", "Next month spending forecast per user", open, flags,
			func(ctx context.Context, s *stats.Service) (any, error) { return s.PredictNextMonth(ctx) }),
		newStatCommand("report", "All statistics in one document", open, flags,
			func(ctx context.Context, s *stats.Service) (any, error) { return s.Report(ctx) }),
	)

	return rootCmd
}

func newStatCommand(use, short string, open ledgerOpener, flags *statsFlags, compute func(context.Context, *stats.Service) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			ledger, closeLedger, cfg, err := open(ctx)
			if err != nil {
				return fmt.Errorf("opening ledger: %w", err)
			}
			defer closeLedger()

			svc, err := flags.service(cmd, ledger, cfg)
			if err != nil {
				return err
			}

			result, err := compute(ctx, svc)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result, flags.pretty)
		},
	}
}

// service builds a stats.Service from the configuration with any flag overrides applied.
func (f *statsFlags) service(cmd *cobra.Command, ledger stats.Ledger, cfg *config.Config) (*stats.Service, error) {
	c := *cfg
	pf := cmd.Flags()
	if pf.Changed("strategy") {
		c.StatsForecastStrategy = f.strategy
	}
	if pf.Changed("window") {
		c.StatsForecastWindow = f.window
	}
	if pf.Changed("min-months") {
		c.StatsForecastMinMonths = f.minMonths
	}
	if pf.Changed("limit") {
		c.StatsTopDaysLimit = f.limit
	}
	if pf.Changed("idle-users") {
		c.StatsIncludeIdleUsers = f.idleUsers
	}

	opts, err := cli.StatsOptions(&c)
	if err != nil {
		return nil, fmt.Errorf("invalid statistics options: %w", err)
	}
	svc := stats.NewService(ledger, opts)

	if f.asOf != "" {
		d, err := core.ParseDate(f.asOf)
		if err != nil {
			return nil, fmt.Errorf("--as-of: %w", err)
		}
		svc.WithClock(func() time.Time { return d.Time })
	}
	return svc, nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
