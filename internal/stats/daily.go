package stats

import (
	"sort"

	"expensetracker/internal/core"
)

const DefaultTopDaysLimit = 3

type DayAmount struct {
	Date   core.Date  `json:"date"`
	Amount core.Money `json:"amount"`
}

type UserTopDays struct {
	UserID   int64       `json:"user_id"`
	UserName string      `json:"user_name"`
	TopDays  []DayAmount `json:"top_days"`
}

// TopDaysByUser ranks each user's spending days by total, highest first, with
// later dates winning ties, and keeps the first limit of them. Users without
// any expense are not part of the result. A non-positive limit means
// DefaultTopDaysLimit.
func TopDaysByUser(records []core.Expense, limit int) []UserTopDays {
	if limit <= 0 {
		limit = DefaultTopDaysLimit
	}

	type acc struct {
		name   string
		totals map[core.Date]int64
	}
	byUser := make(map[int64]*acc)
	for _, r := range records {
		a, ok := byUser[r.UserID]
		if !ok {
			a = &acc{totals: make(map[core.Date]int64)}
			byUser[r.UserID] = a
		}
		if a.name == "" {
			a.name = r.UserName
		}
		a.totals[core.DateOf(r.Date.Time)] += r.Amount.Cents
	}

	out := make([]UserTopDays, 0, len(byUser))
	for id, a := range byUser {
		days := make([]core.DayTotal, 0, len(a.totals))
		for d, cents := range a.totals {
			days = append(days, core.DayTotal{Date: d, Total: core.Money{Cents: cents}})
		}
		sort.Slice(days, func(i, j int) bool {
			if days[i].Total.Cents != days[j].Total.Cents {
				return days[i].Total.Cents > days[j].Total.Cents
			}
			return days[i].Date.After(days[j].Date.Time)
		})
		if len(days) > limit {
			days = days[:limit]
		}

		top := make([]DayAmount, len(days))
		for i, d := range days {
			top[i] = DayAmount{Date: d.Date, Amount: d.Total}
		}
		out = append(out, UserTopDays{UserID: id, UserName: a.name, TopDays: top})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// withIdleUsers appends an empty entry for every directory user missing from
// result, keeping the userID ordering.
func withIdleUsers(result []UserTopDays, users []core.User) []UserTopDays {
	seen := make(map[int64]bool, len(result))
	for _, r := range result {
		seen[r.UserID] = true
	}
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		result = append(result, UserTopDays{UserID: u.ID, UserName: u.Name, TopDays: []DayAmount{}})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result
}
