package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/ledger"
	"expensetracker/internal/ledger/memory"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/stats"
)

var testNow = time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Count   *int            `json:"count"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Errors  []FieldError    `json:"errors"`
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New([]string{"Alice", "Bob"}, []string{"Food", "Transport"})
	seed := []struct {
		user  int64
		date  string
		cents int64
	}{
		{1, "2024-01-01", 5000},
		{1, "2024-01-02", 15000},
		{1, "2024-01-03", 15000},
		{1, "2024-02-10", 17500},
		{2, "2024-02-05", 10000},
	}
	for _, s := range seed {
		d, err := core.ParseDate(s.date)
		require.NoError(t, err)
		_, err = store.CreateExpense(context.Background(), core.Expense{
			UserID: s.user, CategoryID: 1, Amount: core.Money{Cents: s.cents}, Date: d,
		})
		require.NoError(t, err)
	}
	return store
}

func newTestServer(t *testing.T, repo ledger.Repository, opts Options) *Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	st := stats.NewService(repo, stats.DefaultOptions()).WithClock(func() time.Time { return testNow })
	srv, err := NewServer(":0", st, services.NewExpenseService(repo, nil), services.NewDirectoryService(repo, time.Minute), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestIndexHealthAndNotFound(t *testing.T) {
	srv := newTestServer(t, seededStore(t), Options{})

	rec, _ := do(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Expense Tracker API"`)
	assert.Contains(t, rec.Body.String(), "/api/statistics/predict-next-month")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	for _, path := range []string{"/healthz", "/readyz"} {
		rec, _ := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec, env := do(t, srv, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Route not found", env.Message)

	rec, env = do(t, srv, http.MethodPatch, "/api/expenses/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", env.Message)
}

func TestReadyzReportsBackendFailure(t *testing.T) {
	srv := newTestServer(t, seededStore(t), Options{
		Ready: func(context.Context) error { return errors.New("db down") },
	})
	rec, _ := do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTopDaysEndpoint(t *testing.T) {
	srv := newTestServer(t, seededStore(t), Options{})

	for _, path := range []string{"/api/statistics/top-days", "/statistics/top-days"} {
		rec, env := do(t, srv, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, env.Success)
		assert.Equal(t, msgTopDays, env.Message)

		var data []stats.UserTopDays
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.Len(t, data, 2)
		assert.Equal(t, "Alice", data[0].UserName)
		require.Len(t, data[0].TopDays, 3)
		assert.Equal(t, "2024-02-10", data[0].TopDays[0].Date.String())
		assert.Equal(t, "2024-01-03", data[0].TopDays[1].Date.String())
		assert.Equal(t, "2024-01-02", data[0].TopDays[2].Date.String())
		assert.Equal(t, "Bob", data[1].UserName)
	}

	rec, _ := do(t, srv, http.MethodGet, "/api/statistics/top-days", "")
	assert.Contains(t, rec.Body.String(), `{"date":"2024-01-03","amount":"150.00"}`)
}

func TestMonthlyChangeEndpoint(t *testing.T) {
	srv := newTestServer(t, seededStore(t), Options{})

	rec, env := do(t, srv, http.MethodGet, "/api/statistics/monthly-change", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msgMonthlyChange, env.Message)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0]["user_name"])
	assert.Equal(t, "2024-02", rows[0]["current_month"])
	assert.Equal(t, "2024-01", rows[0]["previous_month"])
	assert.Equal(t, "2024-01", rows[0]["baseline_month"])
	assert.Equal(t, "350.00", rows[0]["previous_amount"])
	assert.Equal(t, "175.00", rows[0]["current_amount"])
	assert.Equal(t, "-50.00", rows[0]["percentage_change"])
}

func TestPredictNextMonthEndpoint(t *testing.T) {
	srv := newTestServer(t, seededStore(t), Options{})

	rec, env := do(t, srv, http.MethodGet, "/api/statistics/predict-next-month", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msgPrediction, env.Message)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-05", rows[0]["next_month"])
	assert.Equal(t, float64(2), rows[0]["months_analyzed"])
	assert.Equal(t, "262.50", rows[0]["predicted_amount"])
	assert.Equal(t, "2024-02: 175.00, 2024-01: 350.00", rows[0]["last_months_data"])
	assert.Equal(t, "100.00", rows[1]["predicted_amount"])
}

func TestReportEndpoint(t *testing.T) {
	srv := newTestServer(t, seededStore(t), Options{})

	rec, env := do(t, srv, http.MethodGet, "/api/statistics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, msgReport, env.Message)

	var report stats.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Len(t, report.TopDays, 2)
	assert.Len(t, report.MonthlyChange, 1)
	assert.Len(t, report.PredictNextMonth, 2)
}

func TestStatisticsOnEmptyLedger(t *testing.T) {
	srv := newTestServer(t, memory.New([]string{"Alice"}, []string{"Food"}), Options{})

	for _, path := range []string{
		"/api/statistics/top-days",
		"/api/statistics/monthly-change",
		"/api/statistics/predict-next-month",
	} {
		rec, env := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.True(t, env.Success, path)
		assert.JSONEq(t, `[]`, string(env.Data), path)
	}
}

type failingLedger struct{}

func (failingLedger) FetchAllExpenses(context.Context) ([]core.Expense, error) {
	return nil, errors.New("connection refused")
}

func (failingLedger) FetchUsers(context.Context) ([]core.User, error) {
	return nil, errors.New("connection refused")
}

func TestStatisticsReadFailure(t *testing.T) {
	store := seededStore(t)
	st := stats.NewService(failingLedger{}, stats.DefaultOptions())
	srv, err := NewServer(":0", st, services.NewExpenseService(store, nil), services.NewDirectoryService(store, time.Minute), Options{Logger: quietLogger()})
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	cases := map[string]string{
		"/api/statistics/top-days":           errTopDays,
		"/api/statistics/monthly-change":     errMonthlyChange,
		"/api/statistics/predict-next-month": errPrediction,
		"/api/statistics":                    errReport,
	}
	for path, msg := range cases {
		rec, env := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.False(t, env.Success)
		assert.Equal(t, msg, env.Message)
		assert.Contains(t, env.Error, "connection refused")
		assert.Nil(t, env.Data)
	}
}

type panickingStats struct{ StatsProvider }

func (panickingStats) TopDays(context.Context) ([]stats.UserTopDays, error) {
	panic("boom")
}

func TestRecoverer(t *testing.T) {
	store := seededStore(t)
	srv, err := NewServer(":0", panickingStats{}, services.NewExpenseService(store, nil), services.NewDirectoryService(store, time.Minute), Options{Logger: quietLogger()})
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	rec, env := do(t, srv, http.MethodGet, "/api/statistics/top-days", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong!", env.Message)
	assert.Equal(t, int64(1), srv.Metrics().ServerErrors)
}

func TestExpenseLifecycle(t *testing.T) {
	srv := newTestServer(t, seededStore(t), Options{})

	rec, env := do(t, srv, http.MethodPost, "/api/expenses",
		`{"user_id":2,"category_id":"2","amount":"12.5","date":"2024-03-01","description":"  bus pass "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Expense added successfully", env.Message)

	var created map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "12.50", created["amount"])
	assert.Equal(t, "Bob", created["user_name"])
	assert.Equal(t, "Transport", created["category_name"])
	assert.Equal(t, "bus pass", created["description"])
	id := int64(created["id"].(float64))
	path := "/api/expenses/" + jsonNumber(id)

	rec, env = do(t, srv, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, srv, http.MethodGet, "/api/expenses?user_id=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Count)
	assert.Equal(t, 2, *env.Count)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, "2024-03-01", list[0]["date"])

	rec, env = do(t, srv, http.MethodPut, path, `{"amount":20}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Expense updated successfully", env.Message)
	assert.Contains(t, string(env.Data), `"amount":"20.00"`)

	rec, env = do(t, srv, http.MethodPut, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No fields to update", env.Message)

	rec, env = do(t, srv, http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Expense deleted successfully", env.Message)

	rec, env = do(t, srv, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Expense not found", env.Message)

	rec, _ = do(t, srv, http.MethodDelete, "/api/expenses/abc", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestCreateExpenseValidation(t *testing.T) {
	srv := newTestServer(t, seededStore(t), Options{})

	rec, env := do(t, srv, http.MethodPost, "/api/expenses", `{"user_id":0,"amount":"-3","date":"2024-02-30"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", env.Message)
	assert.ElementsMatch(t, []FieldError{
		{Field: "user_id", Message: "invalid user ID"},
		{Field: "category_id", Message: "Category is required"},
		{Field: "amount", Message: "amount must be a positive number greater than 0"},
		{Field: "date", Message: "invalid date format"},
	}, env.Errors)

	rec, env = do(t, srv, http.MethodPost, "/api/expenses", `{"user_id":9,"category_id":1,"amount":5,"date":"2024-02-01"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", env.Message)

	rec, env = do(t, srv, http.MethodPost, "/api/expenses", `{"user_id":1,"category_id":9,"amount":5,"date":"2024-02-01"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Category not found", env.Message)

	rec, env = do(t, srv, http.MethodPost, "/api/expenses", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", env.Message)

	rec, env = do(t, srv, http.MethodGet, "/api/expenses?start_date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []FieldError{{Field: "start_date", Message: "invalid date format"}}, env.Errors)
}

type readOnlyStore struct{ *memory.Store }

func (readOnlyStore) CreateExpense(context.Context, core.Expense) (core.Expense, error) {
	return core.Expense{}, core.ErrReadOnly
}

func TestCreateExpenseOnReadOnlyLedger(t *testing.T) {
	srv := newTestServer(t, readOnlyStore{seededStore(t)}, Options{})

	rec, env := do(t, srv, http.MethodPost, "/api/expenses", `{"user_id":1,"category_id":1,"amount":5,"date":"2024-02-01"}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}

func TestDirectoryEndpoints(t *testing.T) {
	srv := newTestServer(t, seededStore(t), Options{})

	rec, env := do(t, srv, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, *env.Count)
	assert.Contains(t, string(env.Data), `"name":"Alice"`)

	rec, env = do(t, srv, http.MethodGet, "/api/users/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"status":"active"`)

	rec, env = do(t, srv, http.MethodGet, "/api/users/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", env.Message)

	rec, env = do(t, srv, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, *env.Count)

	rec, env = do(t, srv, http.MethodGet, "/api/categories/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Category not found", env.Message)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, seededStore(t), Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		rec, _ := do(t, srv, http.MethodGet, "/healthz", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, env := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, int64(1), srv.Metrics().RateLimitHits)
}
