package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent describes a change to the expense ledger. Deleted events carry
// the expense as it was before removal.
type ExpenseEvent struct {
	Type       EventType  `json:"type"`
	ExpenseID  int64      `json:"expense_id"`
	UserID     int64      `json:"user_id"`
	CategoryID int64      `json:"category_id"`
	Amount     core.Money `json:"amount"`
	Date       core.Date  `json:"date"`
	RequestID  string     `json:"request_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewExpenseEvent snapshots e into an event of the given type.
func NewExpenseEvent(t EventType, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:       t,
		ExpenseID:  e.ID,
		UserID:     e.UserID,
		CategoryID: e.CategoryID,
		Amount:     e.Amount,
		Date:       e.Date,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and sanity-checks an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case ExpenseCreated, ExpenseUpdated, ExpenseDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.ExpenseID < 1 {
		return nil, fmt.Errorf("event without expense id")
	}
	return &msg, nil
}
