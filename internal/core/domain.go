package core

import (
	"errors"
	"strings"
	"time"
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"

	maxDescriptionLength = 500
)

type (
	User struct {
		ID        int64
		Name      string
		Email     string
		Status    string
		CreatedAt time.Time
	}

	Category struct {
		ID        int64
		Name      string
		CreatedAt time.Time
	}

	// Expense is a single ledger row. UserName and CategoryName are
	// denormalized at read time and ignored on writes.
	Expense struct {
		ID           int64
		UserID       int64
		UserName     string
		CategoryID   int64
		CategoryName string
		Amount       Money
		Date         Date
		Description  string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// ExpensePatch carries a partial update; nil fields are left untouched.
	ExpensePatch struct {
		UserID      *int64
		CategoryID  *int64
		Amount      *Money
		Date        *Date
		Description *string
	}

	// ExpenseFilter narrows ledger listings. Zero values mean "no filter".
	ExpenseFilter struct {
		UserID     int64
		CategoryID int64
		StartDate  Date
		EndDate    Date
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidUser        = errors.New("invalid user ID")
	ErrInvalidCategory    = errors.New("invalid category ID")
	ErrInvalidAmount      = errors.New("amount must be a positive number greater than 0")
	ErrInvalidDate        = errors.New("invalid date format")
	ErrDescriptionTooLong = errors.New("description cannot exceed 500 characters")
	ErrEmptyPatch         = errors.New("no fields to update")
)

func (e Expense) Validate() error {
	if e.UserID < 1 {
		return ErrInvalidUser
	}
	if e.CategoryID < 1 {
		return ErrInvalidCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len([]rune(e.Description)) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.UserID == nil && p.CategoryID == nil && p.Amount == nil && p.Date == nil && p.Description == nil
}

func (p ExpensePatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.UserID != nil && *p.UserID < 1 {
		return ErrInvalidUser
	}
	if p.CategoryID != nil && *p.CategoryID < 1 {
		return ErrInvalidCategory
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if err := p.Date.Validate(); err != nil {
			return err
		}
	}
	if p.Description != nil && len([]rune(*p.Description)) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// Apply returns a copy of e with the patch fields applied.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.UserID != nil {
		e.UserID = *p.UserID
	}
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	return e
}

// Matches reports whether e passes every non-zero filter criterion.
func (f ExpenseFilter) Matches(e Expense) bool {
	if f.UserID != 0 && e.UserID != f.UserID {
		return false
	}
	if f.CategoryID != 0 && e.CategoryID != f.CategoryID {
		return false
	}
	if !f.StartDate.IsZero() && e.Date.Before(f.StartDate.Time) {
		return false
	}
	if !f.EndDate.IsZero() && e.Date.After(f.EndDate.Time) {
		return false
	}
	return true
}

// ErrReadOnly is returned by ledgers that cannot be written to.
var ErrReadOnly = errors.New("ledger is read-only")
