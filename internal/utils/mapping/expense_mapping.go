package mapping

import (
	"database/sql"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	"github.com/SscSPs/expense_reimbursement_app/internal/models"
)

// ToModelExpense converts a domain Expense to a model Expense
func ToModelExpense(d domain.Expense) models.Expense {
	return models.Expense{
		ExpenseID:   d.ExpenseID,
		UserID:      d.OwnerID,
		Amount:      d.Amount,
		Currency:    d.Currency,
		Category:    string(d.Category),
		Description: d.Description,
		ExpenseDate: d.ExpenseDate,
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Version:     d.Version,
	}
}

// ToDomainExpense converts a model Expense to a domain Expense
func ToDomainExpense(m models.Expense) domain.Expense {
	return domain.Expense{
		ExpenseID:   m.ExpenseID,
		OwnerID:     m.UserID,
		Amount:      m.Amount,
		Currency:    m.Currency,
		Category:    domain.ExpenseCategory(m.Category),
		Description: m.Description,
		ExpenseDate: m.ExpenseDate.UTC(),
		Status:      domain.ExpenseStatus(m.Status),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
		Version:     m.Version,
	}
}

// ToDomainExpenseSlice converts a slice of model Expenses to a slice of domain Expenses
func ToDomainExpenseSlice(ms []models.Expense) []domain.Expense {
	ds := make([]domain.Expense, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainExpense(m)
	}
	return ds
}

// ToModelExpenseAction converts a domain ExpenseAction to a model ExpenseAction
func ToModelExpenseAction(d domain.ExpenseAction) models.ExpenseAction {
	m := models.ExpenseAction{
		ActionID:   d.ActionID,
		ExpenseID:  d.ExpenseID,
		ActorID:    d.ActorID,
		ActionType: string(d.ActionType),
		CreatedAt:  d.Timestamp,
	}
	if d.Comment != nil {
		m.Comment = sql.NullString{String: *d.Comment, Valid: true}
	}
	return m
}

// ToDomainExpenseAction converts a model ExpenseAction to a domain ExpenseAction
func ToDomainExpenseAction(m models.ExpenseAction) domain.ExpenseAction {
	d := domain.ExpenseAction{
		ActionID:   m.ActionID,
		ExpenseID:  m.ExpenseID,
		ActorID:    m.ActorID,
		ActionType: domain.ActionType(m.ActionType),
		Timestamp:  m.CreatedAt.UTC(),
	}
	if m.Comment.Valid {
		comment := m.Comment.String
		d.Comment = &comment
	}
	return d
}

// ToDomainExpenseActionSlice converts a slice of model actions, keeping order
func ToDomainExpenseActionSlice(ms []models.ExpenseAction) []domain.ExpenseAction {
	ds := make([]domain.ExpenseAction, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainExpenseAction(m)
	}
	return ds
}
