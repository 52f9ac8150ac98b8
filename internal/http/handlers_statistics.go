package http

import (
	"log/slog"
	"net/http"
	"time"

	applog "expensetracker/internal/log"
)

const (
	msgTopDays       = "Top 3 days by expenditure for each user"
	msgMonthlyChange = "Percentage change in expenditure from previous month"
	msgPrediction    = "Next month expenditure prediction based on last 3 months average"
	msgReport        = "Expense statistics report"
	errTopDays       = "Error fetching top days statistics"
	errMonthlyChange = "Error fetching monthly change statistics"
	errPrediction    = "Error fetching prediction statistics"
	errReport        = "Error fetching statistics report"
)

func (s *Server) handleTopDays(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	data, err := s.stats.TopDays(r.Context())
	if err != nil {
		s.statisticFailed(r, "top_days", err)
		InternalServerError(errTopDays, err).Write(w)
		return
	}
	s.events.LogStatistic(r.Context(), "top_days", len(data), time.Since(start))
	NewResponse().Message(msgTopDays).Data(data).Write(w)
}

func (s *Server) handleMonthlyChange(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	data, err := s.stats.MonthlyChange(r.Context())
	if err != nil {
		s.statisticFailed(r, "monthly_change", err)
		InternalServerError(errMonthlyChange, err).Write(w)
		return
	}
	s.events.LogStatistic(r.Context(), "monthly_change", len(data), time.Since(start))
	NewResponse().Message(msgMonthlyChange).Data(data).Write(w)
}

func (s *Server) handlePredictNextMonth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	data, err := s.stats.PredictNextMonth(r.Context())
	if err != nil {
		s.statisticFailed(r, "predict_next_month", err)
		InternalServerError(errPrediction, err).Write(w)
		return
	}
	s.events.LogStatistic(r.Context(), "predict_next_month", len(data), time.Since(start))
	NewResponse().Message(msgPrediction).Data(data).Write(w)
}

// handleReport returns all three statistics computed from one request.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, err := s.stats.Report(r.Context())
	if err != nil {
		s.statisticFailed(r, "report", err)
		InternalServerError(errReport, err).Write(w)
		return
	}
	rows := len(report.TopDays) + len(report.MonthlyChange) + len(report.PredictNextMonth)
	s.events.LogStatistic(r.Context(), "report", rows, time.Since(start))
	NewResponse().Message(msgReport).Data(report).Write(w)
}

func (s *Server) statisticFailed(r *http.Request, statistic string, err error) {
	slog.ErrorContext(r.Context(), "Statistic failed",
		applog.FieldStatistic, statistic,
		applog.FieldError, err,
		applog.FieldOperation, applog.OpCompute)
}
