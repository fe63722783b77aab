package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus is the lifecycle state of an expense.
type ExpenseStatus string

const (
	StatusSubmitted  ExpenseStatus = "SUBMITTED"
	StatusApproved   ExpenseStatus = "APPROVED"
	StatusRejected   ExpenseStatus = "REJECTED"
	StatusReimbursed ExpenseStatus = "REIMBURSED"
)

// IsValid reports whether s is one of the known statuses.
func (s ExpenseStatus) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusApproved, StatusRejected, StatusReimbursed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can leave s.
func (s ExpenseStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusReimbursed
}

// ExpenseCategory classifies what an expense was spent on.
type ExpenseCategory string

const (
	CategoryTravel   ExpenseCategory = "TRAVEL"
	CategoryMeals    ExpenseCategory = "MEALS"
	CategoryLodging  ExpenseCategory = "LODGING"
	CategorySupplies ExpenseCategory = "SUPPLIES"
	CategoryOther    ExpenseCategory = "OTHER"
)

// IsValid reports whether c is one of the known categories.
func (c ExpenseCategory) IsValid() bool {
	switch c {
	case CategoryTravel, CategoryMeals, CategoryLodging, CategorySupplies, CategoryOther:
		return true
	}
	return false
}

const (
	// DefaultCurrency is used when a submission leaves the currency empty.
	DefaultCurrency = "USD"
	// MaxTextLength bounds descriptions and action comments, counted in characters.
	MaxTextLength = 500
	// AmountScale is the number of decimal places an amount may carry.
	AmountScale = 4
)

// MaxAmount is the largest amount a NUMERIC(19, 4) column holds.
var MaxAmount = decimal.RequireFromString("999999999999999.9999")

// Expense is a single reimbursement claim owned by one user.
type Expense struct {
	ExpenseID   int64           `json:"expenseID"` // Assigned by the store, 0 until persisted
	OwnerID     int64           `json:"ownerID"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    ExpenseCategory `json:"category"`
	Description string          `json:"description"`
	ExpenseDate time.Time       `json:"expenseDate"` // Date part only
	Status      ExpenseStatus   `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Version     int64           `json:"version"` // Bumped by every persisted mutation
}

// IsPersisted reports whether the store has assigned an id.
func (e *Expense) IsPersisted() bool {
	return e != nil && e.ExpenseID > 0
}

// Transition describes one edge of the expense state machine.
type Transition struct {
	Action       ActionType
	RequiredRole UserRole
	From         ExpenseStatus
	To           ExpenseStatus
}

var transitions = map[ActionType]Transition{
	ActionApprove:   {Action: ActionApprove, RequiredRole: RoleManager, From: StatusSubmitted, To: StatusApproved},
	ActionReject:    {Action: ActionReject, RequiredRole: RoleManager, From: StatusSubmitted, To: StatusRejected},
	ActionReimburse: {Action: ActionReimburse, RequiredRole: RoleFinance, From: StatusApproved, To: StatusReimbursed},
}

// TransitionFor returns the state machine edge driven by action.
// SUBMIT has no edge: it creates the expense in StatusSubmitted.
func TransitionFor(action ActionType) (Transition, bool) {
	t, ok := transitions[action]
	return t, ok
}

// CanTransition reports whether the expense may move along t from its current status.
func (e *Expense) CanTransition(t Transition) bool {
	return e.Status == t.From
}

// ApplyTransition moves the expense to t.To and stamps UpdatedAt.
// Callers must check CanTransition first.
func (e *Expense) ApplyTransition(t Transition, now time.Time) {
	e.Status = t.To
	e.UpdatedAt = now
}
