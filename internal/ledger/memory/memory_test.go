package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"expensetracker/internal/core"
)

func TestMemoryStoreCreateAndList(t *testing.T) {
	s := New([]string{"Bob", "Alice", "Bob"}, []string{"Food", "Food", "Rent"})
	ctx := context.Background()

	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 2 || users[0].Name != "Alice" {
		t.Fatalf("unexpected users: %v err=%v", users, err)
	}

	e, err := s.CreateExpense(ctx, core.Expense{
		UserID:      1,
		CategoryID:  2,
		Date:        core.NewDate(2024, 1, 1),
		Description: " t ",
		Amount:      core.Money{Cents: 123},
	})
	if err != nil || e.ID != 1 {
		t.Fatalf("unexpected create: %+v err=%v", e, err)
	}
	if e.UserName != "Bob" || e.CategoryName != "Rent" || e.Description != "t" {
		t.Fatalf("expense not decorated: %+v", e)
	}

	all, _ := s.FetchAllExpenses(ctx)
	if len(all) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(all))
	}
}

func TestMemoryStoreRejectsUnknownRefs(t *testing.T) {
	s := New([]string{"Alice"}, []string{"Food"})
	_, err := s.CreateExpense(context.Background(), core.Expense{
		UserID: 7, CategoryID: 1, Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 1},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreUpdateDelete(t *testing.T) {
	s := New([]string{"Alice"}, []string{"Food"})
	ctx := context.Background()
	e, _ := s.CreateExpense(ctx, core.Expense{UserID: 1, CategoryID: 1, Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 1}})

	if _, err := s.UpdateExpense(ctx, e.ID, core.ExpensePatch{}); !errors.Is(err, core.ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}
	d := core.NewDate(2024, 2, 2)
	got, err := s.UpdateExpense(ctx, e.ID, core.ExpensePatch{Date: &d})
	if err != nil || got.Date.String() != "2024-02-02" {
		t.Fatalf("unexpected update: %+v err=%v", got, err)
	}
	if err := s.DeleteExpense(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetExpense(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	// No files -> defaults
	s := NewFromFiles(dir)
	users, _ := s.ListUsers(context.Background())
	cats, _ := s.ListCategories(context.Background())
	if len(users) == 0 || len(cats) == 0 {
		t.Fatalf("expected defaults when files missing")
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("seed_users.txt", "# header\nZoe\nAnn\nZoe\n\n")
	mustWrite("seed_categories.txt", "# header\nX\nX\nY\n\n")

	s = NewFromFiles(dir)
	users, _ = s.ListUsers(context.Background())
	cats, _ = s.ListCategories(context.Background())
	if len(users) != 2 || users[0].Name != "Ann" || users[0].ID != 2 {
		t.Fatalf("unexpected users: %v", users)
	}
	if len(cats) != 2 || cats[0].Name != "X" || cats[1].Name != "Y" {
		t.Fatalf("unexpected cats: %v", cats)
	}
}
