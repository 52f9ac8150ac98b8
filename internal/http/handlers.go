package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	applog "expensetracker/internal/log"
)

// Version is reported by the API index.
const Version = "1.0.0"

type apiIndex struct {
	Message   string         `json:"message"`
	Version   string         `json:"version"`
	Endpoints map[string]any `json:"endpoints"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	idx := apiIndex{
		Message: "Expense Tracker API",
		Version: Version,
		Endpoints: map[string]any{
			"expenses":   "/api/expenses",
			"users":      "/api/users",
			"categories": "/api/categories",
			"statistics": map[string]string{
				"report":           "/api/statistics",
				"topDays":          "/api/statistics/top-days",
				"monthlyChange":    "/api/statistics/monthly-change",
				"predictNextMonth": "/api/statistics/predict-next-month",
			},
		},
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(idx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFoundError("Route not found").Write(w)
}

// recoverer converts handler panics into the generic 500 envelope.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.ErrorContext(r.Context(), "Handler panic",
					"panic", rec,
					applog.FieldPath, r.URL.Path,
					"stack", string(debug.Stack()))
				ErrorResponse(http.StatusInternalServerError, "Something went wrong!", "").Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
