package worker

import (
	"context"
	"errors"
	"fmt"

	"hisaab/internal/amqp"
	"hisaab/internal/core"
	"hisaab/internal/log"
	"hisaab/internal/sheets"
)

// SyncWorker applies expense events to the spreadsheet mirror.
type SyncWorker struct {
	sink sheets.ExpenseSink
}

func NewSyncWorker(sink sheets.ExpenseSink) *SyncWorker {
	return &SyncWorker{sink: sink}
}

// HandleEvent processes one expense event from AMQP. A returned error makes
// the consumer requeue the delivery unless it wraps amqp.ErrPermanent.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEvent) error {
	logger := log.ForComponent(log.ComponentWorker).With(
		log.FieldEventType, msg.Type,
		log.FieldExpenseID, msg.Expense.ID)

	logger.InfoContext(ctx, "Processing expense event", "timestamp", msg.Timestamp)

	expense, err := msg.Expense.ToExpense()
	if err != nil {
		return fmt.Errorf("decode expense: %w: %w", amqp.ErrPermanent, err)
	}

	switch msg.Type {
	case amqp.EventExpenseCreated, amqp.EventExpenseUpdated:
		if err := w.sink.UpsertExpense(ctx, expense); err != nil {
			return fmt.Errorf("sync expense to sheets: %w", permanentIfInvalid(err))
		}
	case amqp.EventExpenseDeleted:
		if err := w.sink.RemoveExpense(ctx, expense); err != nil {
			return fmt.Errorf("delete expense from sheets: %w", permanentIfInvalid(err))
		}
	default:
		logger.WarnContext(ctx, "Ignoring unknown event type")
		return nil
	}

	logger.InfoContext(ctx, "Successfully synced expense", log.FieldMonth, expense.Month)
	return nil
}

// permanentIfInvalid tags errors caused by the event itself, such as a month
// that does not parse, so the delivery is not retried.
func permanentIfInvalid(err error) error {
	if errors.Is(err, core.ErrInvalidMonth) {
		return fmt.Errorf("%w: %w", amqp.ErrPermanent, err)
	}
	return err
}
