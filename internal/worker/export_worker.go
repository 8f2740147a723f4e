package worker

import (
	"context"
	"fmt"
	"log/slog"

	"hearth/internal/amqp"
	"hearth/internal/core"
	"hearth/internal/export"
	applog "hearth/internal/log"
)

// RecordSource resolves the full record referenced by an event.
type RecordSource interface {
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	GetIncome(ctx context.Context, id string) (core.Income, error)
}

// ExportWorker mirrors created records into an external spreadsheet.
type ExportWorker struct {
	source   RecordSource
	appender export.RecordAppender
}

func NewExportWorker(source RecordSource, appender export.RecordAppender) *ExportWorker {
	return &ExportWorker{source: source, appender: appender}
}

// HandleRecordEvent processes a single record event from AMQP.
func (w *ExportWorker) HandleRecordEvent(ctx context.Context, msg amqp.RecordEventMessage) error {
	if msg.Action != amqp.ActionCreated {
		// Spreadsheet rows are append-only; deletions stay in the database.
		slog.InfoContext(ctx, "Skipping non-create record event",
			applog.FieldRecordKind, msg.Kind,
			"action", msg.Action,
			applog.FieldRecordID, msg.ID)
		return nil
	}

	switch msg.Kind {
	case amqp.KindExpense:
		return w.exportExpense(ctx, msg.ID)
	case amqp.KindIncome:
		return w.exportIncome(ctx, msg.ID)
	default:
		return fmt.Errorf("unknown record kind: %q", msg.Kind)
	}
}

func (w *ExportWorker) exportExpense(ctx context.Context, id string) error {
	expense, err := w.source.GetExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	ref, err := w.appender.AppendExpense(ctx, expense)
	if err != nil {
		return fmt.Errorf("append expense: %w", err)
	}

	slog.InfoContext(ctx, "Exported expense",
		applog.FieldRecordID, id,
		applog.FieldRowRef, ref,
		applog.FieldCategoryID, expense.CategoryID,
		applog.FieldAmount, expense.Amount)
	return nil
}

func (w *ExportWorker) exportIncome(ctx context.Context, id string) error {
	income, err := w.source.GetIncome(ctx, id)
	if err != nil {
		return fmt.Errorf("get income from storage: %w", err)
	}

	ref, err := w.appender.AppendIncome(ctx, income)
	if err != nil {
		return fmt.Errorf("append income: %w", err)
	}

	slog.InfoContext(ctx, "Exported income",
		applog.FieldRecordID, id,
		applog.FieldRowRef, ref,
		"source", income.Source,
		applog.FieldAmount, income.Amount)
	return nil
}
