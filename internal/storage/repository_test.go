package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreate(t *testing.T, repo *SQLiteRepository, userID, categoryID int64, date string, cents int64) core.Expense {
	t.Helper()
	d, err := core.ParseDate(date)
	require.NoError(t, err)
	e, err := repo.CreateExpense(context.Background(), core.Expense{
		UserID:      userID,
		CategoryID:  categoryID,
		Amount:      core.Money{Cents: cents},
		Date:        d,
		Description: "test",
	})
	require.NoError(t, err)
	return e
}

func TestMigrationsSeedDirectory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 4)
	assert.Equal(t, "Alice Johnson", users[0].Name, "ordered by name")
	assert.False(t, users[0].CreatedAt.IsZero())

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 6)

	fetched, err := repo.FetchUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, users, fetched)
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	v, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, RunMigrations(path))
}

func TestExpenseCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := mustCreate(t, repo, 1, 2, "2024-03-15", 1250)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Alice Johnson", created.UserName)
	assert.NotEmpty(t, created.CategoryName)
	assert.Equal(t, "2024-03-15", created.Date.String())
	assert.Equal(t, "12.50", created.Amount.String())

	amount := core.Money{Cents: 999}
	desc := "  updated  "
	updated, err := repo.UpdateExpense(ctx, created.ID, core.ExpensePatch{Amount: &amount, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, int64(999), updated.Amount.Cents)
	assert.Equal(t, "updated", updated.Description)
	assert.Equal(t, created.Date, updated.Date)

	_, err = repo.UpdateExpense(ctx, created.ID, core.ExpensePatch{})
	assert.ErrorIs(t, err, core.ErrEmptyPatch)
	_, err = repo.UpdateExpense(ctx, 9999, core.ExpensePatch{Amount: &amount})
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, repo.DeleteExpense(ctx, created.ID))
	_, err = repo.GetExpense(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteExpense(ctx, created.ID), core.ErrNotFound)
}

func TestListExpensesFiltersAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, 1, 1, "2024-01-10", 100)
	mustCreate(t, repo, 1, 2, "2024-02-10", 200)
	mustCreate(t, repo, 2, 1, "2024-03-10", 300)
	last := mustCreate(t, repo, 1, 1, "2024-03-10", 400)

	all, err := repo.FetchAllExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, last.ID, all[0].ID, "same date: newest insert first")
	assert.Equal(t, "2024-01-10", all[3].Date.String())

	byUser, err := repo.ListExpenses(ctx, core.ExpenseFilter{UserID: 1, CategoryID: 1})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	ranged, err := repo.ListExpenses(ctx, core.ExpenseFilter{
		StartDate: core.NewDate(2024, 2, 1),
		EndDate:   core.NewDate(2024, 2, 29),
	})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, int64(200), ranged[0].Amount.Cents)
}

func TestDirectoryNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetUser(ctx, 42)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = repo.GetCategory(ctx, 42)
	assert.ErrorIs(t, err, core.ErrNotFound)

	u, err := repo.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", u.Email)
}
