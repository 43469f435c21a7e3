package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hisaab/internal/amqp"
	"hisaab/internal/core"
	"hisaab/internal/storage"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.ExpenseEvent
	err    error
	closed bool
}

func (p *fakePublisher) PublishExpenseEvent(_ context.Context, event *amqp.ExpenseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func newTestLedger(t *testing.T, pub Publisher) (*Ledger, core.User) {
	t.Helper()

	clock := func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), storage.WithClock(clock))
	require.NoError(t, err)

	ledger := NewLedger(repo, pub)
	t.Cleanup(func() { ledger.Close() })

	u, err := ledger.GetOrCreateUser(context.Background(), "tg-1", "Rahul")
	require.NoError(t, err)
	return ledger, u
}

func TestLedgerPublishesWrites(t *testing.T) {
	pub := &fakePublisher{}
	ledger, u := newTestLedger(t, pub)
	ctx := context.Background()

	e, err := ledger.AddExpense(ctx, u.ID, core.NewExpense{Amount: decimal.NewFromInt(450), Category: "sabji"})
	require.NoError(t, err)

	desc := "mandi"
	_, err = ledger.UpdateExpense(ctx, e.ID, core.ExpensePatch{Description: &desc})
	require.NoError(t, err)

	_, err = ledger.DeleteExpense(ctx, e.ID)
	require.NoError(t, err)

	require.Len(t, pub.events, 3)
	assert.Equal(t, amqp.EventExpenseCreated, pub.events[0].Type)
	assert.Equal(t, amqp.EventExpenseUpdated, pub.events[1].Type)
	assert.Equal(t, "mandi", pub.events[1].Expense.Description)
	assert.Equal(t, amqp.EventExpenseDeleted, pub.events[2].Type)
	for _, ev := range pub.events {
		assert.Equal(t, e.ID, ev.Expense.ID)
	}
}

func TestLedgerReadsDoNotPublish(t *testing.T) {
	pub := &fakePublisher{}
	ledger, u := newTestLedger(t, pub)

	_, err := ledger.GetMonthSummary(context.Background(), u.ID, "2024-03")
	require.NoError(t, err)
	_, err = ledger.SetMonthlyIncome(context.Background(), u.ID, decimal.NewFromInt(50000))
	require.NoError(t, err)

	assert.Empty(t, pub.events)
}

func TestLedgerFailedWriteDoesNotPublish(t *testing.T) {
	pub := &fakePublisher{}
	ledger, u := newTestLedger(t, pub)

	_, err := ledger.AddExpense(context.Background(), u.ID, core.NewExpense{Amount: decimal.Zero, Category: "sabji"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = ledger.DeleteExpense(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Empty(t, pub.events)
}

func TestLedgerPublishFailureKeepsWrite(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	ledger, u := newTestLedger(t, pub)
	ctx := context.Background()

	_, err := ledger.AddExpense(ctx, u.ID, core.NewExpense{Amount: decimal.NewFromInt(100), Category: "chai"})
	require.NoError(t, err)

	summary, err := ledger.GetMonthSummary(ctx, u.ID, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
}

func TestLedgerWithoutPublisher(t *testing.T) {
	ledger, u := newTestLedger(t, nil)

	_, err := ledger.AddExpense(context.Background(), u.ID, core.NewExpense{Amount: decimal.NewFromInt(100), Category: "chai"})
	assert.NoError(t, err)
}

func TestLedgerCloseClosesPublisher(t *testing.T) {
	pub := &fakePublisher{}
	clock := func() time.Time { return time.Now() }
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), storage.WithClock(clock))
	require.NoError(t, err)

	ledger := NewLedger(repo, pub)
	require.NoError(t, ledger.Close())
	assert.True(t, pub.closed)
}
