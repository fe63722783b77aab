package dto

import (
	"fmt"
	"time"

	"github.com/SscSPs/expense_reimbursement_app/internal/apperrors"
	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// SubmitExpenseRequest defines the data needed to submit a new expense.
type SubmitExpenseRequest struct {
	Amount      decimal.Decimal        `json:"amount" binding:"positive_decimal" swaggertype:"string" example:"125.50"`
	Currency    string                 `json:"currency" binding:"omitempty,len=3,alpha" example:"USD"` // Optional, defaults to USD
	Category    domain.ExpenseCategory `json:"category" binding:"required,oneof=TRAVEL MEALS LODGING SUPPLIES OTHER"`
	Description string                 `json:"description" binding:"required,max=500"`
	ExpenseDate string                 `json:"expenseDate" binding:"required,datetime=2006-01-02" example:"2024-03-01"`
}

// ToInput parses the request into the engine's submission input.
func (r SubmitExpenseRequest) ToInput() (SubmitExpenseInput, error) {
	date, err := time.Parse(DateLayout, r.ExpenseDate)
	if err != nil {
		return SubmitExpenseInput{}, fmt.Errorf("%w: expenseDate must be YYYY-MM-DD", apperrors.ErrValidation)
	}
	return SubmitExpenseInput{
		Amount:      r.Amount,
		Currency:    r.Currency,
		Category:    r.Category,
		Description: r.Description,
		ExpenseDate: date,
	}, nil
}

// SubmitExpenseInput is what the lifecycle engine needs to create an expense.
type SubmitExpenseInput struct {
	Amount      decimal.Decimal
	Currency    string
	Category    domain.ExpenseCategory
	Description string
	ExpenseDate time.Time
}

// RejectExpenseRequest is the optional body of a reject call.
type RejectExpenseRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}

// ReimburseExpenseRequest is the optional body of a reimburse call.
type ReimburseExpenseRequest struct {
	Comment *string `json:"comment" binding:"omitempty,max=500"`
}

// ListExpensesParams defines query parameters for listing expenses.
// At most one filter is honoured; userId wins over status.
type ListExpensesParams struct {
	UserID *int64  `form:"userId" binding:"omitempty,gt=0"`
	Status *string `form:"status" binding:"omitempty,oneof=SUBMITTED APPROVED REJECTED REIMBURSED"`
}

// ExportExpensesParams defines query parameters for the xlsx export.
type ExportExpensesParams struct {
	Status *string `form:"status" binding:"omitempty,oneof=SUBMITTED APPROVED REJECTED REIMBURSED"`
}

// ExpenseResponse is the externally visible shape of an expense.
type ExpenseResponse struct {
	ExpenseID   int64                  `json:"expenseID"`
	UserID      int64                  `json:"userID"`
	Amount      decimal.Decimal        `json:"amount" swaggertype:"string"`
	Currency    string                 `json:"currency"`
	Category    domain.ExpenseCategory `json:"category"`
	Description string                 `json:"description"`
	ExpenseDate string                 `json:"expenseDate"`
	Status      domain.ExpenseStatus   `json:"status"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

// ListExpensesResponse wraps a list of expenses.
type ListExpensesResponse struct {
	Expenses []ExpenseResponse `json:"expenses"`
}

// ToExpenseResponse projects a domain.Expense to its response shape.
// An expense without an owner or missing any required field is an integrity
// violation and yields apperrors.ErrInternal.
func ToExpenseResponse(exp *domain.Expense) (*ExpenseResponse, error) {
	if exp == nil {
		return nil, fmt.Errorf("%w: expense is nil", apperrors.ErrInternal)
	}
	if exp.OwnerID <= 0 {
		return nil, fmt.Errorf("%w: expense %d has no owner", apperrors.ErrInternal, exp.ExpenseID)
	}
	switch {
	case exp.ExpenseID <= 0:
		return nil, fmt.Errorf("%w: expense has no id", apperrors.ErrInternal)
	case exp.Currency == "":
		return nil, fmt.Errorf("%w: expense %d has no currency", apperrors.ErrInternal, exp.ExpenseID)
	case !exp.Category.IsValid():
		return nil, fmt.Errorf("%w: expense %d has invalid category %q", apperrors.ErrInternal, exp.ExpenseID, exp.Category)
	case !exp.Status.IsValid():
		return nil, fmt.Errorf("%w: expense %d has invalid status %q", apperrors.ErrInternal, exp.ExpenseID, exp.Status)
	case exp.Description == "":
		return nil, fmt.Errorf("%w: expense %d has no description", apperrors.ErrInternal, exp.ExpenseID)
	case exp.ExpenseDate.IsZero(), exp.CreatedAt.IsZero(), exp.UpdatedAt.IsZero():
		return nil, fmt.Errorf("%w: expense %d is missing a timestamp", apperrors.ErrInternal, exp.ExpenseID)
	}

	return &ExpenseResponse{
		ExpenseID:   exp.ExpenseID,
		UserID:      exp.OwnerID,
		Amount:      exp.Amount,
		Currency:    exp.Currency,
		Category:    exp.Category,
		Description: exp.Description,
		ExpenseDate: exp.ExpenseDate.Format(DateLayout),
		Status:      exp.Status,
		CreatedAt:   exp.CreatedAt,
		UpdatedAt:   exp.UpdatedAt,
	}, nil
}

// ToListExpenseResponse projects a slice of expenses, failing on the first bad one.
func ToListExpenseResponse(expenses []domain.Expense) ([]ExpenseResponse, error) {
	res := make([]ExpenseResponse, 0, len(expenses))
	for i := range expenses {
		r, err := ToExpenseResponse(&expenses[i])
		if err != nil {
			return nil, err
		}
		res = append(res, *r)
	}
	return res, nil
}
