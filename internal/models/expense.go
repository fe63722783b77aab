package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is the row shape of the expenses table.
type Expense struct {
	ExpenseID   int64           `db:"expense_id"`
	UserID      int64           `db:"user_id"`
	Amount      decimal.Decimal `db:"amount"`
	Currency    string          `db:"currency"`
	Category    string          `db:"category"`
	Description string          `db:"description"`
	ExpenseDate time.Time       `db:"expense_date"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	Version     int64           `db:"version"`
}

// ExpenseAction is the row shape of the append-only expense_actions table.
type ExpenseAction struct {
	ActionID   int64          `db:"action_id"`
	ExpenseID  int64          `db:"expense_id"`
	ActorID    int64          `db:"actor_id"`
	ActionType string         `db:"action_type"`
	Comment    sql.NullString `db:"comment"`
	CreatedAt  time.Time      `db:"created_at"`
}
