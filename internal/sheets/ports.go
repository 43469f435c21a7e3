package sheets

import (
	"context"

	"hisaab/internal/core"
)

// ExpenseSink mirrors expense changes into an external ledger.
type ExpenseSink interface {
	// UpsertExpense writes the expense row, replacing an existing row with
	// the same id.
	UpsertExpense(ctx context.Context, e core.Expense) error
	// RemoveExpense drops the row for the expense. Missing rows are not an error.
	RemoveExpense(ctx context.Context, e core.Expense) error
}
