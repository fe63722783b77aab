package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/expense_reimbursement_app/internal/apperrors"
	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/repositories"
	"github.com/SscSPs/expense_reimbursement_app/internal/models"
	"github.com/SscSPs/expense_reimbursement_app/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
)

type PgxExpenseRepository struct {
	db DBTX
}

func newPgxExpenseRepository(db DBTX) *PgxExpenseRepository {
	return &PgxExpenseRepository{db: db}
}

var _ portsrepo.ExpenseRepositoryFacade = (*PgxExpenseRepository)(nil)

const (
	expensesTable = "expenses"

	selectExpenseFields = `
		expense_id, user_id, amount, currency, category, description,
		expense_date, status, created_at, updated_at, version
	`

	insertExpenseQuery = `
		INSERT INTO ` + expensesTable + ` (
			user_id, amount, currency, category, description,
			expense_date, status, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
		RETURNING expense_id, version
	`

	// Only status and updated_at ever change after submission.
	updateExpenseQuery = `
		UPDATE ` + expensesTable + `
		SET status = $2, updated_at = $3, version = version + 1
		WHERE expense_id = $1 AND version = $4
		RETURNING version
	`

	findExpenseByIDQuery = `SELECT ` + selectExpenseFields + ` FROM ` + expensesTable + ` WHERE expense_id = $1`

	findExpenseByIDForUpdateQuery = findExpenseByIDQuery + ` FOR UPDATE`

	listExpensesByUserQuery = `
		SELECT ` + selectExpenseFields + `
		FROM ` + expensesTable + `
		WHERE user_id = $1
		ORDER BY created_at, expense_id
	`

	listExpensesByStatusQuery = `
		SELECT ` + selectExpenseFields + `
		FROM ` + expensesTable + `
		WHERE status = $1
		ORDER BY created_at, expense_id
	`
)

func (r *PgxExpenseRepository) SaveExpense(ctx context.Context, expense *domain.Expense) error {
	m := mapping.ToModelExpense(*expense)

	if m.ExpenseID == 0 {
		err := r.db.QueryRow(ctx, insertExpenseQuery,
			m.UserID, m.Amount, m.Currency, m.Category, m.Description,
			m.ExpenseDate, m.Status, m.CreatedAt, m.UpdatedAt,
		).Scan(&expense.ExpenseID, &expense.Version)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}
		return nil
	}

	err := r.db.QueryRow(ctx, updateExpenseQuery, m.ExpenseID, m.Status, m.UpdatedAt, m.Version).Scan(&expense.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: expense %d at version %d", apperrors.ErrStaleVersion, m.ExpenseID, m.Version)
		}
		return fmt.Errorf("failed to update expense %d: %w", m.ExpenseID, err)
	}
	return nil
}

func (r *PgxExpenseRepository) FindExpenseByID(ctx context.Context, expenseID int64) (*domain.Expense, error) {
	return r.findOne(ctx, findExpenseByIDQuery, expenseID)
}

func (r *PgxExpenseRepository) FindExpenseByIDForUpdate(ctx context.Context, expenseID int64) (*domain.Expense, error) {
	return r.findOne(ctx, findExpenseByIDForUpdateQuery, expenseID)
}

func (r *PgxExpenseRepository) ListExpensesByUser(ctx context.Context, ownerID int64) ([]domain.Expense, error) {
	return r.findMany(ctx, listExpensesByUserQuery, ownerID)
}

func (r *PgxExpenseRepository) ListExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]domain.Expense, error) {
	return r.findMany(ctx, listExpensesByStatusQuery, string(status))
}

func (r *PgxExpenseRepository) findOne(ctx context.Context, query string, expenseID int64) (*domain.Expense, error) {
	m, err := scanExpense(r.db.QueryRow(ctx, query, expenseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: expense %d", apperrors.ErrNotFound, expenseID)
		}
		return nil, fmt.Errorf("failed to find expense %d: %w", expenseID, err)
	}
	exp := mapping.ToDomainExpense(m)
	return &exp, nil
}

func (r *PgxExpenseRepository) findMany(ctx context.Context, query string, arg any) ([]domain.Expense, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var ms []models.Expense
	for rows.Next() {
		m, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense row: %w", err)
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense rows: %w", err)
	}
	return mapping.ToDomainExpenseSlice(ms), nil
}

func scanExpense(row pgx.Row) (models.Expense, error) {
	var m models.Expense
	err := row.Scan(
		&m.ExpenseID,
		&m.UserID,
		&m.Amount,
		&m.Currency,
		&m.Category,
		&m.Description,
		&m.ExpenseDate,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.Version,
	)
	return m, err
}
