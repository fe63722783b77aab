package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/SscSPs/expense_reimbursement_app/internal/apperrors"
	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/services"
)

// auditRecorder appends and reads the expense audit trail.
type auditRecorder struct {
	BaseService
	expenseRepo portsrepo.ExpenseReader
	actionRepo  portsrepo.ExpenseActionReader
}

// NewAuditRecorder creates the audit trail service. A nil clock means time.Now.
func NewAuditRecorder(expenseRepo portsrepo.ExpenseReader, actionRepo portsrepo.ExpenseActionReader, clock Clock) portssvc.AuditRecorderSvc {
	return &auditRecorder{
		BaseService: BaseService{clock: clock},
		expenseRepo: expenseRepo,
		actionRepo:  actionRepo,
	}
}

var _ portssvc.AuditRecorderSvc = (*auditRecorder)(nil)

// RecordAction must run inside the unit of work that performed the transition.
// The timestamp never precedes the expense's latest action so history order
// matches commit order even if the clock steps backwards.
func (s *auditRecorder) RecordAction(ctx context.Context, repos portsrepo.TxRepositories, expense *domain.Expense, actor *domain.User, actionType domain.ActionType, comment *string) (*domain.ExpenseAction, error) {
	if !expense.IsPersisted() {
		return nil, fmt.Errorf("%w: cannot record %s for an unsaved expense", apperrors.ErrInternal, actionType)
	}
	if actor == nil || actor.UserID <= 0 {
		return nil, fmt.Errorf("%w: cannot record %s without an actor", apperrors.ErrInternal, actionType)
	}
	if !actionType.IsValid() {
		return nil, fmt.Errorf("%w: unknown action type %q", apperrors.ErrValidation, actionType)
	}
	if comment != nil && utf8.RuneCountInString(*comment) > domain.MaxTextLength {
		return nil, fmt.Errorf("%w: comment must be at most %d characters", apperrors.ErrValidation, domain.MaxTextLength)
	}

	ts := s.Now()
	latest, err := repos.Actions.FindLatestActionByExpenseID(ctx, expense.ExpenseID)
	switch {
	case err == nil:
		if latest.Timestamp.After(ts) {
			ts = latest.Timestamp
		}
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	action := &domain.ExpenseAction{
		ExpenseID:  expense.ExpenseID,
		ActorID:    actor.UserID,
		ActionType: actionType,
		Comment:    comment,
		Timestamp:  ts,
	}
	if err := repos.Actions.SaveAction(ctx, action); err != nil {
		s.LogError(ctx, err, "Failed to save expense action",
			slog.Int64("expense_id", expense.ExpenseID),
			slog.String("action_type", string(actionType)))
		return nil, err
	}

	s.LogDebug(ctx, "Expense action recorded",
		slog.Int64("action_id", action.ActionID),
		slog.Int64("expense_id", expense.ExpenseID),
		slog.String("action_type", string(actionType)))
	return action, nil
}

func (s *auditRecorder) History(ctx context.Context, expenseID int64) ([]domain.ExpenseAction, error) {
	if _, err := s.expenseRepo.FindExpenseByID(ctx, expenseID); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find expense for history", slog.Int64("expense_id", expenseID))
		}
		return nil, err
	}

	actions, err := s.actionRepo.ListActionsByExpenseID(ctx, expenseID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list expense actions", slog.Int64("expense_id", expenseID))
		return nil, err
	}
	if actions == nil {
		return []domain.ExpenseAction{}, nil
	}
	return actions, nil
}
