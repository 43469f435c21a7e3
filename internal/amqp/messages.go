package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hisaab/internal/core"
)

type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseUpdated EventType = "expense.updated"
	EventExpenseDeleted EventType = "expense.deleted"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted:
		return true
	default:
		return false
	}
}

// ExpensePayload is the wire form of an expense. Amount travels as a decimal
// string so no precision is lost between publisher and worker.
type ExpensePayload struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Month       string    `json:"month"`
	Date        time.Time `json:"date"`
}

// ExpenseEvent announces a committed change to one expense.
type ExpenseEvent struct {
	Type      EventType      `json:"type"`
	Expense   ExpensePayload `json:"expense"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewExpenseEvent(t EventType, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type: t,
		Expense: ExpensePayload{
			ID:          e.ID,
			UserID:      e.UserID,
			Amount:      e.Amount.String(),
			Category:    e.Category,
			Description: e.Description,
			Month:       e.Month,
			Date:        e.Date,
		},
		Timestamp: time.Now(),
	}
}

// ToExpense converts the payload back into a domain expense.
func (p ExpensePayload) ToExpense() (core.Expense, error) {
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse amount %q: %w", p.Amount, err)
	}
	return core.Expense{
		ID:          p.ID,
		UserID:      p.UserID,
		Amount:      amount,
		Category:    p.Category,
		Description: p.Description,
		Month:       p.Month,
		Date:        p.Date,
	}, nil
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.Expense.ID == "" {
		return nil, fmt.Errorf("event without expense id")
	}
	if _, err := decimal.NewFromString(msg.Expense.Amount); err != nil {
		return nil, fmt.Errorf("event %s: invalid amount %q", msg.Expense.ID, msg.Expense.Amount)
	}
	if _, err := core.ParseMonth(msg.Expense.Month); err != nil {
		return nil, fmt.Errorf("event %s: %w", msg.Expense.ID, err)
	}
	return &msg, nil
}
