package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hisaab/internal/amqp"
	"hisaab/internal/core"
)

type fakeSink struct {
	upserts []core.Expense
	removes []core.Expense
	err     error
}

func (s *fakeSink) UpsertExpense(_ context.Context, e core.Expense) error {
	s.upserts = append(s.upserts, e)
	return s.err
}

func (s *fakeSink) RemoveExpense(_ context.Context, e core.Expense) error {
	s.removes = append(s.removes, e)
	return s.err
}

func testExpense() core.Expense {
	return core.Expense{
		ID:       "e-1",
		UserID:   "u-1",
		Amount:   decimal.NewFromInt(450),
		Category: "sabji",
		Month:    "2024-03",
		Date:     time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestHandleEvent(t *testing.T) {
	tests := []struct {
		name        string
		eventType   amqp.EventType
		wantUpserts int
		wantRemoves int
	}{
		{"created", amqp.EventExpenseCreated, 1, 0},
		{"updated", amqp.EventExpenseUpdated, 1, 0},
		{"deleted", amqp.EventExpenseDeleted, 0, 1},
		{"unknown", amqp.EventType("expense.archived"), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{}
			w := NewSyncWorker(sink)

			err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent(tt.eventType, testExpense()))
			require.NoError(t, err)

			assert.Len(t, sink.upserts, tt.wantUpserts)
			assert.Len(t, sink.removes, tt.wantRemoves)
		})
	}
}

func TestHandleEventCarriesExpense(t *testing.T) {
	sink := &fakeSink{}
	w := NewSyncWorker(sink)

	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewExpenseEvent(amqp.EventExpenseCreated, testExpense())))

	require.Len(t, sink.upserts, 1)
	got := sink.upserts[0]
	assert.Equal(t, "e-1", got.ID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(450)))
	assert.Equal(t, "2024-03", got.Month)
}

func TestHandleEventSinkError(t *testing.T) {
	sink := &fakeSink{err: errors.New("quota exceeded")}
	w := NewSyncWorker(sink)

	err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent(amqp.EventExpenseDeleted, testExpense()))
	assert.ErrorContains(t, err, "quota exceeded")
	assert.NotErrorIs(t, err, amqp.ErrPermanent, "sink outages should be retried")
}

func TestHandleEventInvalidMonthIsPermanent(t *testing.T) {
	sink := &fakeSink{err: fmt.Errorf("%w: %q", core.ErrInvalidMonth, "March")}
	w := NewSyncWorker(sink)

	err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent(amqp.EventExpenseCreated, testExpense()))
	assert.ErrorIs(t, err, amqp.ErrPermanent)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)
}

func TestHandleEventBadAmount(t *testing.T) {
	sink := &fakeSink{}
	w := NewSyncWorker(sink)

	msg := amqp.NewExpenseEvent(amqp.EventExpenseCreated, testExpense())
	msg.Expense.Amount = "not-a-number"

	assert.ErrorIs(t, w.HandleEvent(context.Background(), msg), amqp.ErrPermanent)
	assert.Empty(t, sink.upserts)
}
