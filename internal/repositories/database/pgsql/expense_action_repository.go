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

type PgxExpenseActionRepository struct {
	db DBTX
}

func newPgxExpenseActionRepository(db DBTX) *PgxExpenseActionRepository {
	return &PgxExpenseActionRepository{db: db}
}

var _ portsrepo.ExpenseActionRepositoryFacade = (*PgxExpenseActionRepository)(nil)

const (
	selectActionFields = `action_id, expense_id, actor_id, action_type, comment, created_at`

	insertActionQuery = `
		INSERT INTO expense_actions (expense_id, actor_id, action_type, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING action_id
	`

	listActionsByExpenseQuery = `
		SELECT ` + selectActionFields + `
		FROM expense_actions
		WHERE expense_id = $1
		ORDER BY created_at, action_id
	`

	latestActionByExpenseQuery = `
		SELECT ` + selectActionFields + `
		FROM expense_actions
		WHERE expense_id = $1
		ORDER BY created_at DESC, action_id DESC
		LIMIT 1
	`
)

func (r *PgxExpenseActionRepository) SaveAction(ctx context.Context, action *domain.ExpenseAction) error {
	m := mapping.ToModelExpenseAction(*action)
	err := r.db.QueryRow(ctx, insertActionQuery, m.ExpenseID, m.ActorID, m.ActionType, m.Comment, m.CreatedAt).Scan(&action.ActionID)
	if err != nil {
		return fmt.Errorf("failed to insert expense action: %w", err)
	}
	return nil
}

func (r *PgxExpenseActionRepository) ListActionsByExpenseID(ctx context.Context, expenseID int64) ([]domain.ExpenseAction, error) {
	rows, err := r.db.Query(ctx, listActionsByExpenseQuery, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query expense actions: %w", err)
	}
	defer rows.Close()

	var ms []models.ExpenseAction
	for rows.Next() {
		m, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense action row: %w", err)
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense action rows: %w", err)
	}
	return mapping.ToDomainExpenseActionSlice(ms), nil
}

func (r *PgxExpenseActionRepository) FindLatestActionByExpenseID(ctx context.Context, expenseID int64) (*domain.ExpenseAction, error) {
	m, err := scanAction(r.db.QueryRow(ctx, latestActionByExpenseQuery, expenseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no actions for expense %d", apperrors.ErrNotFound, expenseID)
		}
		return nil, fmt.Errorf("failed to find latest action for expense %d: %w", expenseID, err)
	}
	action := mapping.ToDomainExpenseAction(m)
	return &action, nil
}

func scanAction(row pgx.Row) (models.ExpenseAction, error) {
	var m models.ExpenseAction
	err := row.Scan(&m.ActionID, &m.ExpenseID, &m.ActorID, &m.ActionType, &m.Comment, &m.CreatedAt)
	return m, err
}
