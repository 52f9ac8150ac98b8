package google

import (
	"slices"
	"testing"
)

func TestParseLedgerRows(t *testing.T) {
	values := [][]any{
		{"Date", "User", "Category", "Amount", "Description"},
		{"2024-01-03", "Alice", "Food", "12.50", "lunch"},
		{"2024-01-04", "Bob", "Transport", 3.2, ""},
		{"2024-01-05", "alice", "food", "€ 7,25", "snack"},
		{"", "", "", "", ""},
		{"03/01/2024", "Alice", "Food", "1.00", "bad date"},
		{"2024-01-06", "Alice", "Food", "-4", "negative"},
	}

	snap, err := parseLedgerRows(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(snap.expenses) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(snap.expenses))
	}
	if !slices.Equal(snap.skipped, []int{6, 7}) {
		t.Fatalf("expected sheet rows 6 and 7 skipped, got %v", snap.skipped)
	}
	if len(snap.users) != 2 || len(snap.categories) != 2 {
		t.Fatalf("unexpected directory: users=%v categories=%v", snap.users, snap.categories)
	}

	first, third := snap.expenses[0], snap.expenses[2]
	if first.ID != 1 || first.UserID != 1 || first.Amount.Cents != 1250 {
		t.Fatalf("unexpected first expense: %+v", first)
	}
	if third.UserID != first.UserID || third.CategoryID != first.CategoryID {
		t.Fatalf("names should match case-insensitively: %+v", third)
	}
	if third.Amount.Cents != 725 {
		t.Fatalf("expected 725 cents, got %d", third.Amount.Cents)
	}
	if snap.expenses[1].Amount.Cents != 320 {
		t.Fatalf("expected 320 cents, got %d", snap.expenses[1].Amount.Cents)
	}
}

func TestParseLedgerRows_GroupingSeparators(t *testing.T) {
	values := [][]any{
		{"Date", "User", "Amount"},
		{"2024-01-03", "Alice", "1,234.56"},
		{"2024-01-04", "Alice", "€ 1.234,56"},
		{"2024-01-05", "Alice", "1 234,56"},
		{"2024-01-06", "Alice", "1,234,567"},
		{"2024-01-07", "Alice", "12,5"},
		{"2024-01-08", "Alice", "1.2.3,4.5"},
	}

	snap, err := parseLedgerRows(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	want := []int64{123456, 123456, 123456, 123456700, 1250}
	if len(snap.expenses) != len(want) {
		t.Fatalf("expected %d expenses, got %d (skipped rows %v)", len(want), len(snap.expenses), snap.skipped)
	}
	for i, e := range snap.expenses {
		if e.Amount.Cents != want[i] {
			t.Errorf("row %d: expected %d cents, got %d", i+2, want[i], e.Amount.Cents)
		}
	}
	if !slices.Equal(snap.skipped, []int{7}) {
		t.Fatalf("expected sheet row 7 skipped, got %v", snap.skipped)
	}
}

func TestParseLedgerRows_ExplicitIDs(t *testing.T) {
	values := [][]any{
		{"ID", "Date", "User ID", "User", "Category ID", "Category", "Amount"},
		{"101", "2024-02-01", "7", "Carol", "3", "Rent", "900"},
		{"", "2024-02-02", "", "Dan", "", "Food", "10"},
	}
	snap, err := parseLedgerRows(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if snap.expenses[0].ID != 101 || snap.expenses[0].UserID != 7 || snap.expenses[0].CategoryID != 3 {
		t.Fatalf("explicit IDs not honoured: %+v", snap.expenses[0])
	}
	if snap.expenses[1].ID != 2 || snap.expenses[1].UserID != 1 {
		t.Fatalf("unexpected assigned IDs: %+v", snap.expenses[1])
	}
}

func TestParseLedgerRows_MissingHeader(t *testing.T) {
	_, err := parseLedgerRows([][]any{{"When", "Who", "How much"}})
	if err == nil {
		t.Fatal("expected header error")
	}
}
