package google

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

type fakeReader struct {
	values [][]any
	err    error
	ranges []string
}

func (f *fakeReader) Values(_ context.Context, rng string) ([][]any, error) {
	f.ranges = append(f.ranges, rng)
	return f.values, f.err
}

func sampleValues() [][]any {
	return [][]any{
		{"Date", "User", "Category", "Amount", "Description"},
		{"2024-01-03", "Zed", "Food", "12.50", "lunch"},
		{"2024-02-04", "Amy", "Transport", "3.20", "bus"},
		{"2024-03-05", "Zed", "Food", "7.25", "snack"},
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}

func TestLedgerReads(t *testing.T) {
	reader := &fakeReader{values: sampleValues()}
	l := newLedger(reader, "")
	ctx := context.Background()

	all, err := l.FetchAllExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Expenses!A:H", reader.ranges[0])

	users, err := l.FetchUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Amy", users[0].Name)

	listed, err := l.ListExpenses(ctx, core.ExpenseFilter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "2024-03-05", listed[0].Date.String())

	_, err = l.GetExpense(ctx, 99)
	assert.ErrorIs(t, err, core.ErrNotFound)

	cat, err := l.GetCategory(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Transport", cat.Name)
}

func TestLedgerIsReadOnly(t *testing.T) {
	l := newLedger(&fakeReader{values: sampleValues()}, "Ledger")
	ctx := context.Background()

	_, err := l.CreateExpense(ctx, core.Expense{})
	assert.ErrorIs(t, err, core.ErrReadOnly)
	_, err = l.UpdateExpense(ctx, 1, core.ExpensePatch{})
	assert.ErrorIs(t, err, core.ErrReadOnly)
	assert.ErrorIs(t, l.DeleteExpense(ctx, 1), core.ErrReadOnly)
}

func TestLedgerPropagatesReadErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	l := newLedger(&fakeReader{err: boom}, "Ledger")

	_, err := l.FetchAllExpenses(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, l.Ping(context.Background()), boom)
}
