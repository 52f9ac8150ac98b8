package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/ledger/memory"
	applog "expensetracker/internal/log"
)

func jsonLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{Format: "json", Output: buf})
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func event(t amqp.EventType, id int64) *amqp.ExpenseEvent {
	return &amqp.ExpenseEvent{
		Type:       t,
		ExpenseID:  id,
		UserID:     1,
		CategoryID: 2,
		Amount:     core.Money{Cents: 1250},
		Date:       core.NewDate(2024, 3, 1),
		RequestID:  "req-1",
		Timestamp:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestHandleExpenseEventLogsAuditEntry(t *testing.T) {
	var buf bytes.Buffer
	dir := memory.New([]string{"Alice"}, []string{"Food", "Transport"})
	w := NewAuditWorker(jsonLogger(&buf), dir)

	require.NoError(t, w.HandleExpenseEvent(context.Background(), event(amqp.ExpenseCreated, 7)))

	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "Expense audit", entry["msg"])
	assert.Equal(t, applog.ComponentWorker, entry["component"])
	assert.Equal(t, "expense.created", entry["event_type"])
	assert.Equal(t, float64(7), entry["expense_id"])
	assert.Equal(t, "12.50", entry["amount"])
	assert.Equal(t, "2024-03-01", entry["date"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "Alice", entry["user_name"])
	assert.Equal(t, "Transport", entry["category_name"])
}

func TestHandleExpenseEventWithoutResolver(t *testing.T) {
	var buf bytes.Buffer
	w := NewAuditWorker(jsonLogger(&buf), nil)

	require.NoError(t, w.HandleExpenseEvent(context.Background(), event(amqp.ExpenseDeleted, 3)))

	entry := logLines(t, &buf)[0]
	assert.NotContains(t, entry, "user_name")
	assert.Equal(t, int64(1), w.Summary().Deleted)
}

func TestHandleExpenseEventRejectsBadEvents(t *testing.T) {
	w := NewAuditWorker(jsonLogger(&bytes.Buffer{}), nil)

	assert.Error(t, w.HandleExpenseEvent(context.Background(), nil))
	assert.Error(t, w.HandleExpenseEvent(context.Background(), event("expense.archived", 1)))
	assert.Equal(t, int64(0), w.Summary().Total())
}

func TestSummaryCounts(t *testing.T) {
	w := NewAuditWorker(jsonLogger(&bytes.Buffer{}), nil)
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	ctx := context.Background()
	for _, typ := range []amqp.EventType{amqp.ExpenseCreated, amqp.ExpenseCreated, amqp.ExpenseUpdated, amqp.ExpenseDeleted} {
		require.NoError(t, w.HandleExpenseEvent(ctx, event(typ, 1)))
	}

	s := w.Summary()
	assert.Equal(t, Summary{Created: 2, Updated: 1, Deleted: 1, LastSeen: fixed}, s)
	assert.Equal(t, int64(4), s.Total())
}

type fakeConsumer struct {
	events []*amqp.ExpenseEvent
	err    error
}

func (f *fakeConsumer) ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error {
	for _, ev := range f.events {
		if err := handler(ctx, ev); err != nil {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	w := NewAuditWorker(jsonLogger(&buf), nil)
	consumer := &fakeConsumer{events: []*amqp.ExpenseEvent{event(amqp.ExpenseCreated, 1), event(amqp.ExpenseUpdated, 1)}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer, "@every 1h") }()

	require.Eventually(t, func() bool { return w.Summary().Total() == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Contains(t, buf.String(), "Audit summary")
}

func TestRunReturnsConsumerError(t *testing.T) {
	w := NewAuditWorker(jsonLogger(&bytes.Buffer{}), nil)
	boom := errors.New("access refused")

	err := w.Run(context.Background(), &fakeConsumer{err: boom}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRunRejectsBadSchedule(t *testing.T) {
	w := NewAuditWorker(jsonLogger(&bytes.Buffer{}), nil)

	err := w.Run(context.Background(), &fakeConsumer{}, "every so often")
	assert.ErrorContains(t, err, "summary schedule")
}
