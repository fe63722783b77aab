package domain

import "time"

// ActionType names a lifecycle event recorded in the audit trail.
// It is persisted as its string name.
type ActionType string

const (
	ActionSubmit    ActionType = "SUBMIT"
	ActionApprove   ActionType = "APPROVE"
	ActionReject    ActionType = "REJECT"
	ActionReimburse ActionType = "REIMBURSE"
)

// IsValid reports whether a is one of the known action types.
func (a ActionType) IsValid() bool {
	switch a {
	case ActionSubmit, ActionApprove, ActionReject, ActionReimburse:
		return true
	}
	return false
}

// ExpenseAction is an immutable audit record of one transition.
type ExpenseAction struct {
	ActionID   int64      `json:"actionID"`
	ExpenseID  int64      `json:"expenseID"`
	ActorID    int64      `json:"actorID"`
	ActionType ActionType `json:"actionType"`
	Comment    *string    `json:"comment,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}
