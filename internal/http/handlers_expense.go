package http

import (
	"errors"
	"log/slog"
	"net/http"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, errs := ParseExpenseFilter(r.URL.Query())
	if len(errs) > 0 {
		ValidationError(errs).Write(w)
		return
	}

	items, err := s.expenses.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching expenses")
		return
	}
	views := newExpenseViews(items)
	NewResponse().Count(len(views)).Data(views).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		NotFoundError("Expense not found").Write(w)
		return
	}

	e, err := s.expenses.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, "Error fetching expense")
		return
	}
	NewResponse().Data(newExpenseView(e)).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(w, r)
	if err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	patch, errs := parseExpenseFields(body, false)
	if len(errs) > 0 {
		ValidationError(errs).Write(w)
		return
	}

	e := patch.Apply(core.Expense{})
	created, err := s.expenses.Create(r.Context(), e)
	if err != nil {
		s.writeServiceError(w, r, err, "Error adding expense")
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Message("Expense added successfully").
		Data(newExpenseView(created)).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		NotFoundError("Expense not found").Write(w)
		return
	}
	body, err := decodeBody(w, r)
	if err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}
	patch, errs := parseExpenseFields(body, true)
	if len(errs) > 0 {
		ValidationError(errs).Write(w)
		return
	}

	updated, err := s.expenses.Update(r.Context(), id, patch)
	if err != nil {
		s.writeServiceError(w, r, err, "Error updating expense")
		return
	}
	NewResponse().Message("Expense updated successfully").Data(newExpenseView(updated)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		NotFoundError("Expense not found").Write(w)
		return
	}

	if err := s.expenses.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "Error deleting expense")
		return
	}
	NewResponse().Message("Expense deleted successfully").Write(w)
}

// writeServiceError maps service and domain errors onto status codes.
// Anything unrecognised is a 500 carrying fallback as the message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrExpenseNotFound):
		NotFoundError("Expense not found").Write(w)
	case errors.Is(err, services.ErrUserNotFound):
		NotFoundError("User not found").Write(w)
	case errors.Is(err, services.ErrCategoryNotFound):
		NotFoundError("Category not found").Write(w)
	case errors.Is(err, core.ErrEmptyPatch):
		BadRequestError("No fields to update").Write(w)
	case errors.Is(err, core.ErrReadOnly):
		MethodNotAllowedError("The configured ledger is read-only", http.MethodGet).Write(w)
	case isValidationError(err):
		ValidationError([]FieldError{{Field: fieldFor(err), Message: err.Error()}}).Write(w)
	default:
		slog.ErrorContext(r.Context(), fallback,
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		InternalServerError(fallback, err).Write(w)
	}
}

var validationFields = map[error]string{
	core.ErrInvalidUser:        "user_id",
	core.ErrInvalidCategory:    "category_id",
	core.ErrInvalidAmount:      "amount",
	core.ErrInvalidDate:        "date",
	core.ErrDescriptionTooLong: "description",
}

func isValidationError(err error) bool {
	return fieldFor(err) != ""
}

func fieldFor(err error) string {
	for target, field := range validationFields {
		if errors.Is(err, target) {
			return field
		}
	}
	return ""
}
