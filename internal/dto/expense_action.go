package dto

import (
	"time"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
)

// ExpenseActionResponse is one entry of an expense's audit trail.
type ExpenseActionResponse struct {
	ActionID   int64             `json:"actionID"`
	ExpenseID  int64             `json:"expenseID"`
	ActorID    int64             `json:"actorID"`
	ActionType domain.ActionType `json:"actionType"`
	Comment    *string           `json:"comment,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// ListExpenseActionsResponse wraps an audit trail, oldest first.
type ListExpenseActionsResponse struct {
	Actions []ExpenseActionResponse `json:"actions"`
}

// ToExpenseActionResponse converts a domain.ExpenseAction to its response shape.
func ToExpenseActionResponse(a domain.ExpenseAction) ExpenseActionResponse {
	return ExpenseActionResponse{
		ActionID:   a.ActionID,
		ExpenseID:  a.ExpenseID,
		ActorID:    a.ActorID,
		ActionType: a.ActionType,
		Comment:    a.Comment,
		Timestamp:  a.Timestamp,
	}
}

// ToListExpenseActionsResponse converts an audit trail, keeping its order.
func ToListExpenseActionsResponse(actions []domain.ExpenseAction) ListExpenseActionsResponse {
	res := make([]ExpenseActionResponse, len(actions))
	for i, a := range actions {
		res[i] = ToExpenseActionResponse(a)
	}
	return ListExpenseActionsResponse{Actions: res}
}
