package export

import (
	"context"

	"hearth/internal/core"
)

// Ports for outbound record exporters.
type (
	ExpenseAppender interface {
		AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	IncomeAppender interface {
		AppendIncome(ctx context.Context, in core.Income) (rowRef string, err error)
	}

	// RecordAppender exports both record kinds.
	RecordAppender interface {
		ExpenseAppender
		IncomeAppender
	}
)
