// Package memory is an in-process ledger used for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
)

var _ ledger.Repository = (*Store)(nil)

type Store struct {
	mu         sync.RWMutex
	users      []core.User
	categories []core.Category
	items      []core.Expense
	nextID     int64
	now        func() time.Time
}

// New builds a store with the given directory. IDs are assigned from 1 in
// input order; duplicate names are dropped.
func New(userNames, categoryNames []string) *Store {
	s := &Store{nextID: 1, now: time.Now}
	created := s.now().UTC()
	for i, name := range dedupe(userNames) {
		s.users = append(s.users, core.User{
			ID:        int64(i + 1),
			Name:      name,
			Email:     emailFor(name),
			Status:    core.UserStatusActive,
			CreatedAt: created,
		})
	}
	for i, name := range dedupe(categoryNames) {
		s.categories = append(s.categories, core.Category{ID: int64(i + 1), Name: name, CreatedAt: created})
	}
	return s
}

// NewFromFiles reads seed_users.txt and seed_categories.txt from base,
// falling back to a small default directory when they are missing.
func NewFromFiles(base string) *Store {
	users := readLines(filepath.Join(base, "seed_users.txt"))
	cats := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(users) == 0 {
		users = []string{"Alice Johnson", "Bob Smith", "Carol Davis"}
	}
	if len(cats) == 0 {
		cats = []string{"Food", "Transport", "Entertainment", "Utilities", "Healthcare", "Shopping"}
	}
	return New(users, cats)
}

// WithClock replaces the clock used for created_at/updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) FetchAllExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Expense, len(s.items))
	for i, e := range s.items {
		out[i] = s.decorate(e)
	}
	return out, nil
}

func (s *Store) FetchUsers(ctx context.Context) ([]core.User, error) {
	return s.ListUsers(ctx)
}

func (s *Store) ListExpenses(ctx context.Context, filter core.ExpenseFilter) ([]core.Expense, error) {
	all, err := s.FetchAllExpenses(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.FilterExpenses(all, filter), nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, core.ErrNotFound)
	}
	return s.decorate(s.items[i]), nil
}

// CreateExpense stores the expense under a fresh ID.
func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRefs(e); err != nil {
		return core.Expense{}, err
	}
	now := s.now().UTC()
	e.ID = s.nextID
	e.Description = strings.TrimSpace(e.Description)
	e.CreatedAt, e.UpdatedAt = now, now
	e.UserName, e.CategoryName = "", ""
	s.nextID++
	s.items = append(s.items, e)
	return s.decorate(e), nil
}

func (s *Store) UpdateExpense(_ context.Context, id int64, patch core.ExpensePatch) (core.Expense, error) {
	if patch.IsEmpty() {
		return core.Expense{}, core.ErrEmptyPatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, core.ErrNotFound)
	}
	updated := patch.Apply(s.items[i])
	if err := s.checkRefs(updated); err != nil {
		return core.Expense{}, err
	}
	updated.UpdatedAt = s.now().UTC()
	s.items[i] = updated
	return s.decorate(updated), nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("delete expense %d: %w", id, core.ErrNotFound)
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.RLock()
	users := append([]core.User(nil), s.users...)
	s.mu.RUnlock()
	if users == nil {
		users = []core.User{}
	}
	ledger.SortUsers(users)
	return users, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.user(id); ok {
		return u, nil
	}
	return core.User{}, fmt.Errorf("get user %d: %w", id, core.ErrNotFound)
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	cats := append([]core.Category(nil), s.categories...)
	s.mu.RUnlock()
	if cats == nil {
		cats = []core.Category{}
	}
	ledger.SortCategories(cats)
	return cats, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.category(id); ok {
		return c, nil
	}
	return core.Category{}, fmt.Errorf("get category %d: %w", id, core.ErrNotFound)
}

// checkRefs mirrors the foreign keys of the SQL schema. Caller holds mu.
func (s *Store) checkRefs(e core.Expense) error {
	if _, ok := s.user(e.UserID); !ok {
		return fmt.Errorf("user %d: %w", e.UserID, core.ErrNotFound)
	}
	if _, ok := s.category(e.CategoryID); !ok {
		return fmt.Errorf("category %d: %w", e.CategoryID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) decorate(e core.Expense) core.Expense {
	if u, ok := s.user(e.UserID); ok {
		e.UserName = u.Name
	}
	if c, ok := s.category(e.CategoryID); ok {
		e.CategoryName = c.Name
	}
	return e
}

func (s *Store) indexOf(id int64) int {
	for i, e := range s.items {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) user(id int64) (core.User, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return core.User{}, false
}

func (s *Store) category(id int64) (core.Category, bool) {
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

func emailFor(name string) string {
	local := strings.ToLower(strings.Fields(name + " user")[0])
	return local + "@example.com"
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe trims, drops blanks and keeps the first occurrence of each value.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
