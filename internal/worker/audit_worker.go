package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// EventConsumer delivers expense events until ctx is done. *amqp.Client implements it.
type EventConsumer interface {
	ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// NameResolver looks up display names for audit entries.
// *services.DirectoryService implements it.
type NameResolver interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
}

// Summary counts the events audited since the worker started.
type Summary struct {
	Created  int64
	Updated  int64
	Deleted  int64
	LastSeen time.Time
}

func (s Summary) Total() int64 { return s.Created + s.Updated + s.Deleted }

// AuditWorker writes one structured log entry per expense change event.
type AuditWorker struct {
	logger   *applog.Logger
	resolver NameResolver

	mu      sync.Mutex
	summary Summary
	now     func() time.Time
}

// NewAuditWorker creates a worker. resolver may be nil, in which case
// entries carry IDs only.
func NewAuditWorker(logger *applog.Logger, resolver NameResolver) *AuditWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &AuditWorker{
		logger:   logger.WithComponent(applog.ComponentWorker),
		resolver: resolver,
		now:      time.Now,
	}
}

// HandleExpenseEvent records ev in the audit log. Name lookups are best
// effort; only a nil or untyped event is rejected.
func (w *AuditWorker) HandleExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	if ev == nil {
		return errors.New("nil expense event")
	}

	fields := applog.NewFields().
		WithRequestID(ev.RequestID).
		WithExpenseEvent(string(ev.Type), ev.ExpenseID, ev.UserID, ev.CategoryID, ev.Amount.String(), ev.Date.String())
	fields["published_at"] = ev.Timestamp.Format(time.RFC3339)

	if w.resolver != nil {
		if u, err := w.resolver.GetUser(ctx, ev.UserID); err == nil {
			fields["user_name"] = u.Name
		}
		if c, err := w.resolver.GetCategory(ctx, ev.CategoryID); err == nil {
			fields["category_name"] = c.Name
		}
	}

	if err := w.count(ev.Type); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Expense audit", fields.ToSlice()...)
	return nil
}

func (w *AuditWorker) count(t amqp.EventType) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch t {
	case amqp.ExpenseCreated:
		w.summary.Created++
	case amqp.ExpenseUpdated:
		w.summary.Updated++
	case amqp.ExpenseDeleted:
		w.summary.Deleted++
	default:
		return fmt.Errorf("unknown event type %q", t)
	}
	w.summary.LastSeen = w.now()
	return nil
}

func (w *AuditWorker) Summary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.summary
}

// LogSummary writes the running event counts.
func (w *AuditWorker) LogSummary(ctx context.Context) {
	s := w.Summary()
	args := []any{
		"total", s.Total(),
		"created", s.Created,
		"updated", s.Updated,
		"deleted", s.Deleted,
	}
	if !s.LastSeen.IsZero() {
		args = append(args, "last_seen", s.LastSeen.Format(time.RFC3339))
	}
	w.logger.InfoContext(ctx, "Audit summary", args...)
}

// Run consumes events until ctx is cancelled. When summarySchedule is a
// cron expression (for example "@every 15m" or "0 * * * *") the running counts are
// logged on that schedule; an empty expression disables the summary.
func (w *AuditWorker) Run(ctx context.Context, consumer EventConsumer, summarySchedule string) error {
	if summarySchedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(summarySchedule, func() { w.LogSummary(ctx) }); err != nil {
			return fmt.Errorf("summary schedule %q: %w", summarySchedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	err := consumer.ConsumeExpenseEvents(ctx, w.HandleExpenseEvent)
	w.LogSummary(context.WithoutCancel(ctx))
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("consume expense events: %w", err)
}
