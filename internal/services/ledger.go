package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"hisaab/internal/amqp"
	"hisaab/internal/core"
	"hisaab/internal/log"
	"hisaab/internal/storage"
)

// Publisher sends expense events to the sync pipeline.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, event *amqp.ExpenseEvent) error
}

// Ledger is a storage.Store that announces every committed expense change.
// Publishing is best effort: the write has already succeeded, so a publish
// failure is logged and swallowed.
type Ledger struct {
	storage.Store
	publisher Publisher
}

var _ storage.Store = (*Ledger)(nil)

// NewLedger wraps store. A nil publisher disables events.
func NewLedger(store storage.Store, publisher Publisher) *Ledger {
	return &Ledger{
		Store:     store,
		publisher: publisher,
	}
}

func (l *Ledger) AddExpense(ctx context.Context, userID string, e core.NewExpense) (core.Expense, error) {
	expense, err := l.Store.AddExpense(ctx, userID, e)
	if err != nil {
		return core.Expense{}, err
	}
	l.publish(ctx, amqp.EventExpenseCreated, expense)
	return expense, nil
}

func (l *Ledger) UpdateExpense(ctx context.Context, expenseID string, p core.ExpensePatch) (core.Expense, error) {
	expense, err := l.Store.UpdateExpense(ctx, expenseID, p)
	if err != nil {
		return core.Expense{}, err
	}
	l.publish(ctx, amqp.EventExpenseUpdated, expense)
	return expense, nil
}

func (l *Ledger) DeleteExpense(ctx context.Context, expenseID string) (core.Expense, error) {
	expense, err := l.Store.DeleteExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	l.publish(ctx, amqp.EventExpenseDeleted, expense)
	return expense, nil
}

func (l *Ledger) publish(ctx context.Context, t amqp.EventType, e core.Expense) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, e)); err != nil {
		log.ForComponent(log.ComponentLedger).ErrorContext(ctx, "Failed to publish expense event",
			log.FieldEventType, t,
			log.FieldExpenseID, e.ID,
			log.FieldUserID, e.UserID,
			log.FieldError, err)
	}
}

// Close closes the store and, when it holds resources, the publisher.
func (l *Ledger) Close() error {
	var errs []error

	if l.Store != nil {
		if err := l.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := l.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger: %w", errors.Join(errs...))
	}
	return nil
}
