package stats

import (
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

var hundred = decimal.NewFromInt(100)

type MonthlyChange struct {
	UserID           int64          `json:"user_id"`
	UserName         string         `json:"user_name"`
	CurrentMonth     core.YearMonth `json:"current_month"`
	PreviousMonth    core.YearMonth `json:"previous_month"`
	// BaselineMonth is the month PreviousAmount was taken from. It differs
	// from PreviousMonth when the user spent nothing in the month before.
	BaselineMonth    core.YearMonth `json:"baseline_month"`
	PreviousAmount   core.Money     `json:"previous_amount"`
	CurrentAmount    core.Money     `json:"current_amount"`
	PercentageChange core.Percent   `json:"percentage_change"`
}

// PercentageChange returns (curr-prev)/prev*100 rounded half away from zero
// to two decimals. A zero baseline yields exactly 100.
func PercentageChange(prev, curr core.Money) core.Percent {
	if prev.Cents == 0 {
		return core.NewPercent(hundred)
	}
	delta := decimal.NewFromInt(curr.Cents - prev.Cents).Mul(hundred)
	return core.NewPercent(delta.DivRound(decimal.NewFromInt(prev.Cents), 2))
}

// MonthlyChanges compares each user's monthly total with the closest earlier
// month that has data, which is not necessarily the previous calendar month.
// PreviousMonth is always the calendar month before CurrentMonth; the month
// actually compared against is reported as BaselineMonth. A user's first
// month has no baseline and is skipped. Rows are ordered by user ID, most
// recent month first.
func MonthlyChanges(records []core.Expense) []MonthlyChange {
	out := make([]MonthlyChange, 0)
	for _, um := range groupMonthly(records) {
		for i := len(um.Months) - 1; i > 0; i-- {
			curr, prev := um.Months[i], um.Months[i-1]
			out = append(out, MonthlyChange{
				UserID:           um.UserID,
				UserName:         um.UserName,
				CurrentMonth:     curr.Month,
				PreviousMonth:    curr.Month.Prev(),
				BaselineMonth:    prev.Month,
				PreviousAmount:   prev.Total,
				CurrentAmount:    curr.Total,
				PercentageChange: PercentageChange(prev.Total, curr.Total),
			})
		}
	}
	return out
}
