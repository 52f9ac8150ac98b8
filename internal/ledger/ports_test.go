package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"expensetracker/internal/core"
)

func TestFilterExpensesOrder(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	in := []core.Expense{
		{ID: 1, UserID: 1, Date: core.NewDate(2024, 1, 1), CreatedAt: t0},
		{ID: 2, UserID: 1, Date: core.NewDate(2024, 1, 3), CreatedAt: t0},
		{ID: 3, UserID: 2, Date: core.NewDate(2024, 1, 3), CreatedAt: t0.Add(time.Minute)},
		{ID: 4, UserID: 1, Date: core.NewDate(2024, 1, 3), CreatedAt: t0},
	}

	got := FilterExpenses(in, core.ExpenseFilter{})
	ids := make([]int64, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.Equal(t, []int64{3, 4, 2, 1}, ids)

	got = FilterExpenses(in, core.ExpenseFilter{UserID: 1, StartDate: core.NewDate(2024, 1, 2)})
	assert.Len(t, got, 2)
}
