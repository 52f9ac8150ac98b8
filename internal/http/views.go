package http

import (
	"time"

	"expensetracker/internal/core"
)

type (
	expenseView struct {
		ID           int64      `json:"id"`
		UserID       int64      `json:"user_id"`
		UserName     string     `json:"user_name"`
		CategoryID   int64      `json:"category_id"`
		CategoryName string     `json:"category_name"`
		Amount       core.Money `json:"amount"`
		Date         core.Date  `json:"date"`
		Description  *string    `json:"description"`
		CreatedAt    *time.Time `json:"created_at"`
		UpdatedAt    *time.Time `json:"updated_at"`
	}

	userView struct {
		ID        int64      `json:"id"`
		Name      string     `json:"name"`
		Email     string     `json:"email"`
		Status    string     `json:"status"`
		CreatedAt *time.Time `json:"created_at"`
	}

	categoryView struct {
		ID        int64      `json:"id"`
		Name      string     `json:"name"`
		CreatedAt *time.Time `json:"created_at"`
	}
)

func newExpenseView(e core.Expense) expenseView {
	v := expenseView{
		ID:           e.ID,
		UserID:       e.UserID,
		UserName:     e.UserName,
		CategoryID:   e.CategoryID,
		CategoryName: e.CategoryName,
		Amount:       e.Amount,
		Date:         e.Date,
		CreatedAt:    timePtr(e.CreatedAt),
		UpdatedAt:    timePtr(e.UpdatedAt),
	}
	if e.Description != "" {
		desc := e.Description
		v.Description = &desc
	}
	return v
}

func newExpenseViews(in []core.Expense) []expenseView {
	out := make([]expenseView, 0, len(in))
	for _, e := range in {
		out = append(out, newExpenseView(e))
	}
	return out
}

func newUserViews(in []core.User) []userView {
	out := make([]userView, 0, len(in))
	for _, u := range in {
		out = append(out, newUserView(u))
	}
	return out
}

func newUserView(u core.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, Status: u.Status, CreatedAt: timePtr(u.CreatedAt)}
}

func newCategoryViews(in []core.Category) []categoryView {
	out := make([]categoryView, 0, len(in))
	for _, c := range in {
		out = append(out, newCategoryView(c))
	}
	return out
}

func newCategoryView(c core.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, CreatedAt: timePtr(c.CreatedAt)}
}

// timePtr maps the zero time to JSON null.
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
