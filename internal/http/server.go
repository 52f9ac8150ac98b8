package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/stats"
)

type (
	// StatsProvider computes the expense statistics. *stats.Service implements it.
	StatsProvider interface {
		TopDays(ctx context.Context) ([]stats.UserTopDays, error)
		MonthlyChange(ctx context.Context) ([]stats.MonthlyChange, error)
		PredictNextMonth(ctx context.Context) ([]stats.Prediction, error)
		Report(ctx context.Context) (*stats.Report, error)
	}

	// ExpenseManager is the expense CRUD surface. *services.ExpenseService implements it.
	ExpenseManager interface {
		List(ctx context.Context, filter core.ExpenseFilter) ([]core.Expense, error)
		Get(ctx context.Context, id int64) (core.Expense, error)
		Create(ctx context.Context, e core.Expense) (core.Expense, error)
		Update(ctx context.Context, id int64, patch core.ExpensePatch) (core.Expense, error)
		Delete(ctx context.Context, id int64) error
	}

	// DirectoryProvider lists users and categories. *services.DirectoryService implements it.
	DirectoryProvider interface {
		ListUsers(ctx context.Context) ([]core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
	}
)

// Options tunes the middleware stack. Zero values fall back to defaults.
type Options struct {
	Logger             *applog.Logger
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	TrustedProxies     []string
	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	stats     StatsProvider
	expenses  ExpenseManager
	directory DirectoryProvider
	ready     func(ctx context.Context) error

	events      *applog.StructuredLogger
	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, st StatsProvider, ex ExpenseManager, dir DirectoryProvider, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 7 * time.Second
	}

	detector, err := security.NewDetector(logger, opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		stats:       st,
		expenses:    ex,
		directory:   dir,
		ready:       opts.Ready,
		events:      applog.NewStructuredLogger(logger.WithComponent(applog.ComponentStats)),
		tracer:      trace.NewMiddleware(logger, detector.ExtractClientIP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:    detector,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	cors := security.DefaultCORSConfig()
	if len(opts.CORSAllowedOrigins) > 0 {
		cors.AllowedOrigins = opts.CORSAllowedOrigins
	}

	var h http.Handler = mux
	h = withTimeout(opts.RequestTimeout)(h)
	h = s.rateLimiter.Middleware(detector.ExtractClientIP, writeRateLimited)(h)
	h = detector.Middleware(h)
	h = security.CORSMiddleware(cors)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = recoverer(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/statistics", s.handleReport)
	for _, prefix := range []string{"/api/statistics", "/statistics"} {
		mux.HandleFunc("GET "+prefix+"/top-days", s.handleTopDays)
		mux.HandleFunc("GET "+prefix+"/monthly-change", s.handleMonthlyChange)
		mux.HandleFunc("GET "+prefix+"/predict-next-month", s.handlePredictNextMonth)
	}

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/users", s.handleListUsers)
	mux.HandleFunc("GET /api/users/{id}", s.handleGetUser)
	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("GET /api/categories/{id}", s.handleGetCategory)

	mux.HandleFunc("/", handleNotFound)
}

// withTimeout bounds every request context, and with it every ledger read.
func withTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please try again later.", "").Write(w)
}

// Metrics is a snapshot of the middleware counters.
type Metrics struct {
	Requests           int64 `json:"requests"`
	ServerErrors       int64 `json:"server_errors"`
	RateLimitHits      int64 `json:"rate_limit_hits"`
	SuspiciousRequests int64 `json:"suspicious_requests"`
}

func (s *Server) Metrics() Metrics {
	tm := s.tracer.GetMetrics()
	return Metrics{
		Requests:           tm.TotalRequests,
		ServerErrors:       tm.ServerErrors,
		RateLimitHits:      s.rateLimiter.GetMetrics().TotalHits,
		SuspiciousRequests: s.detector.GetMetrics().SuspiciousRequests,
	}
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
