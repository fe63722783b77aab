package services

import (
	"context"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	"github.com/SscSPs/expense_reimbursement_app/internal/dto"
)

// ExpenseReaderSvc defines read operations for expense data
type ExpenseReaderSvc interface {
	// GetExpenseByID retrieves a single expense.
	GetExpenseByID(ctx context.Context, expenseID int64) (*dto.ExpenseResponse, error)

	// ListExpensesByUser retrieves every expense owned by userID.
	ListExpensesByUser(ctx context.Context, userID int64) ([]dto.ExpenseResponse, error)

	// ListExpensesByStatus retrieves every expense currently in status.
	ListExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]dto.ExpenseResponse, error)

	// GetExpenseHistory returns the audit trail of an expense, oldest first.
	GetExpenseHistory(ctx context.Context, expenseID int64) ([]domain.ExpenseAction, error)
}

// ExpenseWorkflowSvc defines the lifecycle transitions of an expense
type ExpenseWorkflowSvc interface {
	// SubmitExpense creates a SUBMITTED expense owned by ownerID and records SUBMIT.
	SubmitExpense(ctx context.Context, ownerID int64, input dto.SubmitExpenseInput) (*dto.ExpenseResponse, error)

	// ApproveExpense moves a SUBMITTED expense to APPROVED. Actor must be a MANAGER.
	ApproveExpense(ctx context.Context, actorID int64, expenseID int64) (*dto.ExpenseResponse, error)

	// RejectExpense moves a SUBMITTED expense to REJECTED. Actor must be a MANAGER.
	RejectExpense(ctx context.Context, actorID int64, expenseID int64, reason *string) (*dto.ExpenseResponse, error)

	// ReimburseExpense moves an APPROVED expense to REIMBURSED. Actor must be FINANCE.
	ReimburseExpense(ctx context.Context, actorID int64, expenseID int64, comment *string) (*dto.ExpenseResponse, error)
}

// ExpenseSvcFacade combines all expense-related service interfaces
type ExpenseSvcFacade interface {
	ExpenseReaderSvc
	ExpenseWorkflowSvc
}
