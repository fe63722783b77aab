package repositories

import (
	"context"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
)

// ExpenseActionReader defines read operations for the audit trail
type ExpenseActionReader interface {
	// ListActionsByExpenseID returns the actions of one expense ordered by
	// (timestamp, action id).
	ListActionsByExpenseID(ctx context.Context, expenseID int64) ([]domain.ExpenseAction, error)

	// FindLatestActionByExpenseID returns the most recent action of an expense,
	// or apperrors.ErrNotFound when it has none.
	FindLatestActionByExpenseID(ctx context.Context, expenseID int64) (*domain.ExpenseAction, error)
}

// ExpenseActionWriter appends to the audit trail. There is no update or delete.
type ExpenseActionWriter interface {
	// SaveAction persists a new action and assigns its ActionID.
	SaveAction(ctx context.Context, action *domain.ExpenseAction) error
}

// ExpenseActionRepositoryFacade combines all audit trail repository interfaces
type ExpenseActionRepositoryFacade interface {
	ExpenseActionReader
	ExpenseActionWriter
}
