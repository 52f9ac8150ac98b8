package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
)

var (
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrCategoryNotFound = errors.New("category not found")
)

// EventPublisher announces ledger changes. *amqp.Client implements it.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// RequestIDFunc extracts a correlation ID from a request context.
type RequestIDFunc func(ctx context.Context) string

// ExpenseService validates expense writes against the directory and
// publishes change events after each successful write.
type ExpenseService struct {
	store     ledger.Repository
	publisher EventPublisher
	requestID RequestIDFunc
}

// NewExpenseService creates the service. publisher may be nil, in which case
// no events are sent.
func NewExpenseService(store ledger.Repository, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{store: store, publisher: publisher}
}

// WithRequestID tags published events with the request correlation ID.
func (s *ExpenseService) WithRequestID(fn RequestIDFunc) *ExpenseService {
	s.requestID = fn
	return s
}

func (s *ExpenseService) List(ctx context.Context, filter core.ExpenseFilter) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.Expense{}, ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// Create validates e, checks its user and category exist, then stores it.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.checkRefs(ctx, &e.UserID, &e.CategoryID); err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"id", created.ID,
		"user_id", created.UserID,
		"amount", created.Amount.String())
	s.publish(ctx, amqp.ExpenseCreated, created)
	return created, nil
}

func (s *ExpenseService) Update(ctx context.Context, id int64, patch core.ExpensePatch) (core.Expense, error) {
	if err := patch.Validate(); err != nil {
		return core.Expense{}, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return core.Expense{}, err
	}
	if err := s.checkRefs(ctx, patch.UserID, patch.CategoryID); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, id, patch)
	if errors.Is(err, core.ErrNotFound) {
		return core.Expense{}, ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense updated", "id", id)
	s.publish(ctx, amqp.ExpenseUpdated, updated)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrExpenseNotFound
		}
		return fmt.Errorf("delete expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	s.publish(ctx, amqp.ExpenseDeleted, existing)
	return nil
}

// checkRefs verifies the referenced user and category; nil IDs are skipped.
func (s *ExpenseService) checkRefs(ctx context.Context, userID, categoryID *int64) error {
	if userID != nil {
		if _, err := s.store.GetUser(ctx, *userID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("verify user: %w", err)
		}
	}
	if categoryID != nil {
		if _, err := s.store.GetCategory(ctx, *categoryID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return ErrCategoryNotFound
			}
			return fmt.Errorf("verify category: %w", err)
		}
	}
	return nil
}

// publish is best effort: the write already succeeded, so failures are logged only.
func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, e core.Expense) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping event", "type", t, "id", e.ID)
		return
	}
	ev := amqp.NewExpenseEvent(t, e)
	if s.requestID != nil {
		ev.RequestID = s.requestID(ctx)
	}
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", t, "id", e.ID, "error", err)
	}
}
