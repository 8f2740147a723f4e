package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/amqp"
	"hearth/internal/core"
	"hearth/internal/export/memory"
)

type fakeSource struct {
	expenses map[string]core.Expense
	incomes  map[string]core.Income
}

func (f *fakeSource) GetExpense(_ context.Context, id string) (core.Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return core.Expense{}, errors.New("expense not found")
	}
	return e, nil
}

func (f *fakeSource) GetIncome(_ context.Context, id string) (core.Income, error) {
	in, ok := f.incomes[id]
	if !ok {
		return core.Income{}, errors.New("income not found")
	}
	return in, nil
}

func newWorker() (*fakeSource, *memory.Store, *ExportWorker) {
	source := &fakeSource{
		expenses: map[string]core.Expense{
			"e1": {ID: "e1", Amount: 12.5, Currency: "USD", CategoryID: "groceries", Date: time.Now().UTC()},
		},
		incomes: map[string]core.Income{
			"i1": {ID: "i1", Amount: 2500, Currency: "USD", Source: "salary", Date: time.Now().UTC()},
		},
	}
	store := memory.New()
	return source, store, NewExportWorker(source, store)
}

func TestHandleRecordEventExpense(t *testing.T) {
	_, store, w := newWorker()

	err := w.HandleRecordEvent(context.Background(), amqp.NewRecordEvent(amqp.KindExpense, amqp.ActionCreated, "e1"))
	require.NoError(t, err)

	got := store.Expenses()
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
	assert.Empty(t, store.Incomes())
}

func TestHandleRecordEventIncome(t *testing.T) {
	_, store, w := newWorker()

	err := w.HandleRecordEvent(context.Background(), amqp.NewRecordEvent(amqp.KindIncome, amqp.ActionCreated, "i1"))
	require.NoError(t, err)

	got := store.Incomes()
	require.Len(t, got, 1)
	assert.Equal(t, "salary", got[0].Source)
}

func TestHandleRecordEventSkipsDeletes(t *testing.T) {
	_, store, w := newWorker()

	err := w.HandleRecordEvent(context.Background(), amqp.NewRecordEvent(amqp.KindExpense, amqp.ActionDeleted, "e1"))
	require.NoError(t, err)
	assert.Empty(t, store.Expenses())
}

func TestHandleRecordEventUnknownKind(t *testing.T) {
	_, _, w := newWorker()

	err := w.HandleRecordEvent(context.Background(), amqp.NewRecordEvent("budget", amqp.ActionCreated, "x"))
	require.Error(t, err)
}

func TestHandleRecordEventMissingRecord(t *testing.T) {
	_, _, w := newWorker()

	err := w.HandleRecordEvent(context.Background(), amqp.NewRecordEvent(amqp.KindExpense, amqp.ActionCreated, "nope"))
	require.Error(t, err)
}
