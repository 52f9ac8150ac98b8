package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
)

type Options struct {
	// TopDaysLimit caps the number of ranked days per user.
	TopDaysLimit int
	// IncludeIdleUsers lists directory users without expenses in TopDays
	// with an empty top_days list instead of omitting them.
	IncludeIdleUsers bool
	Forecast         ForecastPolicy
}

func DefaultOptions() Options {
	return Options{TopDaysLimit: DefaultTopDaysLimit, Forecast: DefaultForecastPolicy()}
}

// Service is the statistics facade used by the HTTP and CLI layers.
// It holds no aggregate state; each call reads the ledger afresh.
type Service struct {
	ledger Ledger
	opts   Options
	now    func() time.Time
}

// Report bundles all three statistics computed from the same request.
type Report struct {
	TopDays          []UserTopDays   `json:"top_days"`
	MonthlyChange    []MonthlyChange `json:"monthly_change"`
	PredictNextMonth []Prediction    `json:"predict_next_month"`
}

func NewService(ledger Ledger, opts Options) *Service {
	if opts.TopDaysLimit <= 0 {
		opts.TopDaysLimit = DefaultTopDaysLimit
	}
	if opts.Forecast == (ForecastPolicy{}) {
		opts.Forecast = DefaultForecastPolicy()
	}
	return &Service{ledger: ledger, opts: opts, now: time.Now}
}

// WithClock replaces the clock used to pick the forecast month.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Options() Options { return s.opts }

func (s *Service) TopDays(ctx context.Context) ([]UserTopDays, error) {
	if !s.opts.IncludeIdleUsers {
		records, err := s.readExpenses(ctx)
		if err != nil {
			return nil, err
		}
		return TopDaysByUser(records, s.opts.TopDaysLimit), nil
	}

	var (
		records []core.Expense
		users   []core.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.readExpenses(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = s.readUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return withIdleUsers(TopDaysByUser(records, s.opts.TopDaysLimit), users), nil
}

func (s *Service) MonthlyChange(ctx context.Context) ([]MonthlyChange, error) {
	records, err := s.readExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return MonthlyChanges(records), nil
}

func (s *Service) PredictNextMonth(ctx context.Context) ([]Prediction, error) {
	records, err := s.readExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return PredictNextMonth(records, s.opts.Forecast, s.now()), nil
}

// Report computes the three statistics concurrently. Any failure fails the
// whole report.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	var rep Report
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rep.TopDays, err = s.TopDays(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rep.MonthlyChange, err = s.MonthlyChange(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rep.PredictNextMonth, err = s.PredictNextMonth(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &rep, nil
}

func (s *Service) readExpenses(ctx context.Context) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataSourceUnavailable, err)
	}
	start := time.Now()
	records, err := s.ledger.FetchAllExpenses(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Ledger read failed", "operation", "fetch_expenses", "error", err)
		return nil, fmt.Errorf("%w: fetch expenses: %w", ErrDataSourceUnavailable, err)
	}
	slog.DebugContext(ctx, "Ledger read", "operation", "fetch_expenses", "records", len(records), "duration", time.Since(start))
	return records, nil
}

func (s *Service) readUsers(ctx context.Context) ([]core.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataSourceUnavailable, err)
	}
	users, err := s.ledger.FetchUsers(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Ledger read failed", "operation", "fetch_users", "error", err)
		return nil, fmt.Errorf("%w: fetch users: %w", ErrDataSourceUnavailable, err)
	}
	return users, nil
}
