// Package ledger defines the storage ports shared by every data backend.
package ledger

import (
	"context"
	"sort"

	"expensetracker/internal/core"
	"expensetracker/internal/stats"
)

// Ports for outbound adapters.
type (
	ExpenseReader interface {
		ListExpenses(ctx context.Context, filter core.ExpenseFilter) ([]core.Expense, error)
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
	}

	// ExpenseWriter mutates the ledger. Read-only backends return core.ErrReadOnly.
	ExpenseWriter interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, id int64, patch core.ExpensePatch) (core.Expense, error)
		DeleteExpense(ctx context.Context, id int64) error
	}

	DirectoryReader interface {
		ListUsers(ctx context.Context) ([]core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
	}

	// Repository is everything a data backend provides.
	Repository interface {
		stats.Ledger
		ExpenseReader
		ExpenseWriter
		DirectoryReader
	}
)

// FilterExpenses returns the expenses matching filter, newest first
// (date, then creation time, then ID).
func FilterExpenses(in []core.Expense, filter core.ExpenseFilter) []core.Expense {
	out := make([]core.Expense, 0, len(in))
	for _, e := range in {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c > 0
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// SortUsers orders users by name, as the directory listing expects.
func SortUsers(users []core.User) {
	sort.SliceStable(users, func(i, j int) bool { return users[i].Name < users[j].Name })
}

// SortCategories orders categories by name.
func SortCategories(categories []core.Category) {
	sort.SliceStable(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
}
