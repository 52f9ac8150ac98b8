// Package stats computes per-user spending statistics over an expense ledger:
// top spending days, month-over-month change and a next-month forecast.
//
// Every statistic is a pure function of a ledger snapshot. The Service facade
// reads the snapshot through a Ledger and never caches aggregate state.
package stats

import (
	"context"
	"errors"
	"sort"

	"expensetracker/internal/core"
)

// Ledger is the read-only view of the expense store the statistics need.
type Ledger interface {
	FetchAllExpenses(ctx context.Context) ([]core.Expense, error)
	FetchUsers(ctx context.Context) ([]core.User, error)
}

// ErrDataSourceUnavailable wraps every ledger read failure.
var ErrDataSourceUnavailable = errors.New("statistics data source unavailable")

type userMonths struct {
	UserID   int64
	UserName string
	Months   []core.MonthTotal // ascending
}

// groupMonthly sums records per (user, calendar month). Users are returned in
// ascending ID order and each user's months in chronological order.
func groupMonthly(records []core.Expense) []userMonths {
	type acc struct {
		name   string
		totals map[core.YearMonth]int64
	}
	byUser := make(map[int64]*acc)
	for _, r := range records {
		a, ok := byUser[r.UserID]
		if !ok {
			a = &acc{totals: make(map[core.YearMonth]int64)}
			byUser[r.UserID] = a
		}
		if a.name == "" {
			a.name = r.UserName
		}
		a.totals[r.Date.YearMonth()] += r.Amount.Cents
	}

	out := make([]userMonths, 0, len(byUser))
	for id, a := range byUser {
		um := userMonths{UserID: id, UserName: a.name, Months: make([]core.MonthTotal, 0, len(a.totals))}
		for ym, cents := range a.totals {
			um.Months = append(um.Months, core.MonthTotal{Month: ym, Total: core.Money{Cents: cents}})
		}
		sort.Slice(um.Months, func(i, j int) bool {
			return um.Months[i].Month.Before(um.Months[j].Month)
		})
		out = append(out, um)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
