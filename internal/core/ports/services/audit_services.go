package services

import (
	"context"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/repositories"
)

// AuditRecorderSvc owns the append-only expense audit trail
type AuditRecorderSvc interface {
	// RecordAction appends one action for expense performed by actor, using the
	// repositories of the caller's unit of work.
	RecordAction(ctx context.Context, repos portsrepo.TxRepositories, expense *domain.Expense, actor *domain.User, actionType domain.ActionType, comment *string) (*domain.ExpenseAction, error)

	// History returns the actions of an expense ordered oldest first.
	History(ctx context.Context, expenseID int64) ([]domain.ExpenseAction, error)
}
