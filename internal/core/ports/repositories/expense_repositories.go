package repositories

import (
	"context"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
)

// ExpenseReader defines read operations for expense data
type ExpenseReader interface {
	// FindExpenseByID retrieves a specific expense by its ID.
	// Returns apperrors.ErrNotFound when no such expense exists.
	FindExpenseByID(ctx context.Context, expenseID int64) (*domain.Expense, error)

	// ListExpensesByUser retrieves every expense owned by a user, oldest first.
	ListExpensesByUser(ctx context.Context, ownerID int64) ([]domain.Expense, error)

	// ListExpensesByStatus retrieves every expense in the given status, oldest first.
	ListExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]domain.Expense, error)
}

// ExpenseWriter defines write operations for expense data
type ExpenseWriter interface {
	// SaveExpense inserts the expense when ExpenseID is 0 and assigns its id and
	// version. Otherwise it updates the row only if the stored version still equals
	// expense.Version, then bumps expense.Version. A lost race yields
	// apperrors.ErrStaleVersion.
	SaveExpense(ctx context.Context, expense *domain.Expense) error
}

// ExpenseTxSupport defines operations only meaningful inside a unit of work
type ExpenseTxSupport interface {
	// FindExpenseByIDForUpdate loads an expense and holds it exclusively until the
	// surrounding unit of work ends.
	FindExpenseByIDForUpdate(ctx context.Context, expenseID int64) (*domain.Expense, error)
}

// ExpenseRepositoryFacade combines all expense-related repository interfaces
type ExpenseRepositoryFacade interface {
	ExpenseReader
	ExpenseWriter
	ExpenseTxSupport
}
