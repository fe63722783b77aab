package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SscSPs/expense_reimbursement_app/internal/apperrors"
	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/services"
	"github.com/SscSPs/expense_reimbursement_app/internal/dto"
	"github.com/SscSPs/expense_reimbursement_app/internal/metrics"
)

// expenseService is the expense lifecycle engine. Every operation that
// writes runs as a single unit of work so an expense's status and its audit
// record are committed together or not at all.
type expenseService struct {
	BaseService
	expenseRepo     portsrepo.ExpenseReader
	txManager       portsrepo.TransactionManager
	auditor         portssvc.AuditRecorderSvc
	defaultCurrency string
}

// ExpenseServiceOption is a functional option for configuring the expense service
type ExpenseServiceOption func(*expenseService)

// WithClock sets the clock used for CreatedAt/UpdatedAt. Action timestamps
// come from the audit recorder's own clock, so pass the same one to
// NewAuditRecorder. NewServiceContainer does this.
func WithClock(clock Clock) ExpenseServiceOption {
	return func(s *expenseService) {
		s.clock = clock
	}
}

// WithDefaultCurrency overrides the currency applied when a submission has none.
func WithDefaultCurrency(code string) ExpenseServiceOption {
	return func(s *expenseService) {
		if code = strings.TrimSpace(code); code != "" {
			s.defaultCurrency = strings.ToUpper(code)
		}
	}
}

// NewExpenseService creates the lifecycle engine.
func NewExpenseService(expenseRepo portsrepo.ExpenseReader, txManager portsrepo.TransactionManager, auditor portssvc.AuditRecorderSvc, options ...ExpenseServiceOption) portssvc.ExpenseSvcFacade {
	svc := &expenseService{
		expenseRepo:     expenseRepo,
		txManager:       txManager,
		auditor:         auditor,
		defaultCurrency: domain.DefaultCurrency,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

var _ portssvc.ExpenseSvcFacade = (*expenseService)(nil)

// activities name each transition in error messages.
var activities = map[domain.ActionType]struct{ verb, past string }{
	domain.ActionSubmit:    {"submit expenses", "submitted"},
	domain.ActionApprove:   {"approve expenses", "approved"},
	domain.ActionReject:    {"reject expenses", "rejected"},
	domain.ActionReimburse: {"reimburse expenses", "reimbursed"},
}

func (s *expenseService) SubmitExpense(ctx context.Context, ownerID int64, input dto.SubmitExpenseInput) (*dto.ExpenseResponse, error) {
	start := time.Now()
	res, err := s.submit(ctx, ownerID, input)
	observeTransition(domain.ActionSubmit, start, err)
	return res, err
}

func (s *expenseService) submit(ctx context.Context, ownerID int64, input dto.SubmitExpenseInput) (*dto.ExpenseResponse, error) {
	exp, err := s.newExpense(input)
	if err != nil {
		s.LogDebug(ctx, "Rejected invalid expense submission", slog.Int64("owner_id", ownerID), slog.String("error", err.Error()))
		return nil, err
	}

	var res *dto.ExpenseResponse
	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		owner, err := repos.Users.FindUserByID(ctx, ownerID)
		if err != nil {
			return err
		}

		now := s.Now()
		exp.OwnerID = owner.UserID
		exp.CreatedAt = now
		exp.UpdatedAt = now
		if err := repos.Expenses.SaveExpense(ctx, exp); err != nil {
			return err
		}

		if _, err := s.auditor.RecordAction(ctx, repos, exp, owner, domain.ActionSubmit, nil); err != nil {
			return err
		}

		res, err = dto.ToExpenseResponse(exp)
		return err
	})
	if err != nil {
		s.logFailure(ctx, err, "Failed to submit expense", slog.Int64("owner_id", ownerID))
		return nil, err
	}

	s.LogInfo(ctx, "Expense submitted",
		slog.Int64("expense_id", res.ExpenseID),
		slog.Int64("owner_id", ownerID))
	return res, nil
}

// newExpense validates a submission and builds the unsaved SUBMITTED expense.
func (s *expenseService) newExpense(input dto.SubmitExpenseInput) (*domain.Expense, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", apperrors.ErrValidation)
	}
	if !input.Amount.Equal(input.Amount.Truncate(domain.AmountScale)) {
		return nil, fmt.Errorf("%w: amount must have at most %d decimal places", apperrors.ErrValidation, domain.AmountScale)
	}
	if input.Amount.GreaterThan(domain.MaxAmount) {
		return nil, fmt.Errorf("%w: amount must not exceed %s", apperrors.ErrValidation, domain.MaxAmount)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !isCurrencyCode(currency) {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", apperrors.ErrValidation)
	}

	if !input.Category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", apperrors.ErrValidation, input.Category)
	}

	if strings.TrimSpace(input.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", apperrors.ErrValidation)
	}
	if utf8.RuneCountInString(input.Description) > domain.MaxTextLength {
		return nil, fmt.Errorf("%w: description must be at most %d characters", apperrors.ErrValidation, domain.MaxTextLength)
	}

	if input.ExpenseDate.IsZero() {
		return nil, fmt.Errorf("%w: expenseDate is required", apperrors.ErrValidation)
	}
	y, m, d := input.ExpenseDate.Date()

	return &domain.Expense{
		Amount:      input.Amount,
		Currency:    currency,
		Category:    input.Category,
		Description: input.Description,
		ExpenseDate: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Status:      domain.StatusSubmitted,
	}, nil
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (s *expenseService) ApproveExpense(ctx context.Context, actorID int64, expenseID int64) (*dto.ExpenseResponse, error) {
	return s.transition(ctx, actorID, expenseID, domain.ActionApprove, nil)
}

func (s *expenseService) RejectExpense(ctx context.Context, actorID int64, expenseID int64, reason *string) (*dto.ExpenseResponse, error) {
	return s.transition(ctx, actorID, expenseID, domain.ActionReject, reason)
}

func (s *expenseService) ReimburseExpense(ctx context.Context, actorID int64, expenseID int64, comment *string) (*dto.ExpenseResponse, error) {
	return s.transition(ctx, actorID, expenseID, domain.ActionReimburse, comment)
}

// transition drives one state machine edge. Checks run in a fixed order:
// actor exists, actor role, expense exists, expense status.
func (s *expenseService) transition(ctx context.Context, actorID int64, expenseID int64, action domain.ActionType, comment *string) (res *dto.ExpenseResponse, err error) {
	start := time.Now()
	defer func() { observeTransition(action, start, err) }()

	logger := s.GetLogger(ctx).With(
		slog.Int64("actor_id", actorID),
		slog.Int64("expense_id", expenseID),
		slog.String("action", string(action)))

	tr, ok := domain.TransitionFor(action)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a transition", apperrors.ErrInternal, action)
	}
	activity := activities[action]
	comment = normalizeComment(comment)

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		actor, err := repos.Users.FindUserByID(ctx, actorID)
		if err != nil {
			return err
		}
		if err := s.AuthorizeRole(ctx, actor, tr.RequiredRole, activity.verb); err != nil {
			return err
		}

		exp, err := repos.Expenses.FindExpenseByIDForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}
		if !exp.CanTransition(tr) {
			return fmt.Errorf("%w: only %s expenses can be %s; current status is %s",
				apperrors.ErrInvalidState, tr.From, activity.past, exp.Status)
		}

		exp.ApplyTransition(tr, s.Now())
		if err := repos.Expenses.SaveExpense(ctx, exp); err != nil {
			if errors.Is(err, apperrors.ErrStaleVersion) {
				return staleTransitionError(ctx, repos, expenseID, err)
			}
			return err
		}

		if _, err := s.auditor.RecordAction(ctx, repos, exp, actor, action, comment); err != nil {
			return err
		}

		res, err = dto.ToExpenseResponse(exp)
		return err
	})
	if err != nil {
		s.logFailure(ctx, err, "Expense transition failed",
			slog.Int64("actor_id", actorID),
			slog.Int64("expense_id", expenseID),
			slog.String("action", string(action)))
		return nil, err
	}

	logger.Info("Expense transitioned", slog.String("status", string(res.Status)))
	return res, nil
}

// staleTransitionError reports a lost race as InvalidState carrying whatever
// status won.
func staleTransitionError(ctx context.Context, repos portsrepo.TxRepositories, expenseID int64, cause error) error {
	current, err := repos.Expenses.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return fmt.Errorf("%w: expense %d changed concurrently: %v", apperrors.ErrInvalidState, expenseID, cause)
	}
	return fmt.Errorf("%w: expense %d changed concurrently; current status is %s",
		apperrors.ErrInvalidState, expenseID, current.Status)
}

// normalizeComment treats a blank comment as no comment.
func normalizeComment(comment *string) *string {
	if comment == nil || strings.TrimSpace(*comment) == "" {
		return nil
	}
	c := *comment
	return &c
}

func (s *expenseService) GetExpenseByID(ctx context.Context, expenseID int64) (*dto.ExpenseResponse, error) {
	exp, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find expense by ID", slog.Int64("expense_id", expenseID))
		}
		return nil, err
	}
	return dto.ToExpenseResponse(exp)
}

func (s *expenseService) ListExpensesByUser(ctx context.Context, userID int64) ([]dto.ExpenseResponse, error) {
	expenses, err := s.expenseRepo.ListExpensesByUser(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list expenses by user", slog.Int64("user_id", userID))
		return nil, fmt.Errorf("failed to list expenses for user %d: %w", userID, err)
	}
	return dto.ToListExpenseResponse(expenses)
}

func (s *expenseService) ListExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]dto.ExpenseResponse, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, status)
	}

	expenses, err := s.expenseRepo.ListExpensesByStatus(ctx, status)
	if err != nil {
		s.LogError(ctx, err, "Failed to list expenses by status", slog.String("status", string(status)))
		return nil, fmt.Errorf("failed to list %s expenses: %w", status, err)
	}
	return dto.ToListExpenseResponse(expenses)
}

func (s *expenseService) GetExpenseHistory(ctx context.Context, expenseID int64) ([]domain.ExpenseAction, error) {
	return s.auditor.History(ctx, expenseID)
}

// logFailure logs expected refusals at debug and everything else at error.
func (s *expenseService) logFailure(ctx context.Context, err error, msg string, keyvals ...any) {
	if failureReason(err) == "internal" {
		s.LogError(ctx, err, msg, keyvals...)
		return
	}
	s.LogDebug(ctx, msg, append(keyvals, slog.String("error", err.Error()))...)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, apperrors.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}

func observeTransition(action domain.ActionType, start time.Time, err error) {
	metrics.TransitionDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TransitionErrorsTotal.WithLabelValues(string(action), failureReason(err)).Inc()
		return
	}
	metrics.TransitionsTotal.WithLabelValues(string(action)).Inc()
}
