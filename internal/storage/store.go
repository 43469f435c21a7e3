package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"hisaab/internal/core"
)

// Store is the persistence gateway for users and expenses.
//
// Failures talking to the database are wrapped with core.ErrStoreUnavailable
// and missing rows are reported as core.ErrNotFound. Nothing is retried.
type Store interface {
	GetOrCreateUser(ctx context.Context, externalID, name string) (core.User, error)
	GetUser(ctx context.Context, userID string) (core.User, error)
	SetMonthlyIncome(ctx context.Context, userID string, amount decimal.Decimal) (core.User, error)

	AddExpense(ctx context.Context, userID string, e core.NewExpense) (core.Expense, error)
	GetMonthExpenses(ctx context.Context, userID, month string) ([]core.Expense, error)
	GetCategoryTotal(ctx context.Context, userID, category, month string) (core.CategoryTotal, error)
	GetMonthSummary(ctx context.Context, userID, month string) (core.MonthSummary, error)
	GetRemainingCash(ctx context.Context, userID, month string) (core.RemainingCash, error)

	// DeleteExpense and UpdateExpense address the row by id only; they do
	// not check which user owns it.
	DeleteExpense(ctx context.Context, expenseID string) (core.Expense, error)
	UpdateExpense(ctx context.Context, expenseID string, p core.ExpensePatch) (core.Expense, error)

	Ping(ctx context.Context) error
	Close() error
}

// DefaultUserName is stored when the chat platform gives no display name.
const DefaultUserName = "User"

// Options shared by the store implementations.
type Options struct {
	Now func() time.Time
}

type Option func(*Options)

// WithClock overrides the clock used for expense timestamps and the default
// month bucket.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

func BuildOptions(opts ...Option) Options {
	o := Options{Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
