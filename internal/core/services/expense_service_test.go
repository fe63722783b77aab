package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/expense_reimbursement_app/internal/apperrors"
	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/services"
	"github.com/SscSPs/expense_reimbursement_app/internal/core/services"
	"github.com/SscSPs/expense_reimbursement_app/internal/dto"
	"github.com/SscSPs/expense_reimbursement_app/internal/repositories/database/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func ptr[T any](v T) *T { return &v }

func lunch() dto.SubmitExpenseInput {
	return dto.SubmitExpenseInput{
		Amount:      decimal.RequireFromString("42.10"),
		Currency:    "usd",
		Category:    domain.CategoryMeals,
		Description: "Client lunch",
		ExpenseDate: time.Date(2024, 3, 1, 15, 4, 5, 0, time.FixedZone("X", 3600)),
	}
}

// --- Lifecycle suite backed by the in-memory store ---
type ExpenseLifecycleTestSuite struct {
	suite.Suite
	repos    portsrepo.RepositoryProvider
	clock    *stepClock
	svc      portssvc.ExpenseSvcFacade
	employee *domain.User
	manager  *domain.User
	finance  *domain.User
}

func (suite *ExpenseLifecycleTestSuite) SetupTest() {
	ctx := context.Background()
	suite.repos = memory.NewRepositoryProvider()
	suite.clock = &stepClock{now: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), step: time.Second}
	suite.svc = suite.newService(suite.repos.TxManager)

	suite.employee = &domain.User{Name: "Employee 1", Email: "emp@demo.com", Role: domain.RoleEmployee}
	suite.manager = &domain.User{Name: "Manager 1", Email: "mgr@demo.com", Role: domain.RoleManager}
	suite.finance = &domain.User{Name: "Finance 1", Email: "fin@demo.com", Role: domain.RoleFinance}
	for _, u := range []*domain.User{suite.employee, suite.manager, suite.finance} {
		suite.Require().NoError(suite.repos.UserRepo.SaveUser(ctx, u))
	}
}

func (suite *ExpenseLifecycleTestSuite) newService(tx portsrepo.TransactionManager) portssvc.ExpenseSvcFacade {
	auditor := services.NewAuditRecorder(suite.repos.ExpenseRepo, suite.repos.ActionRepo, suite.clock.Now)
	return services.NewExpenseService(suite.repos.ExpenseRepo, tx, auditor, services.WithClock(suite.clock.Now))
}

func (suite *ExpenseLifecycleTestSuite) submit() *dto.ExpenseResponse {
	res, err := suite.svc.SubmitExpense(context.Background(), suite.employee.UserID, lunch())
	suite.Require().NoError(err)
	return res
}

func (suite *ExpenseLifecycleTestSuite) history(expenseID int64) []domain.ExpenseAction {
	actions, err := suite.svc.GetExpenseHistory(context.Background(), expenseID)
	suite.Require().NoError(err)
	return actions
}

func (suite *ExpenseLifecycleTestSuite) TestSubmit_NormalizesAndRecordsAction() {
	res := suite.submit()

	suite.Equal(int64(1), res.ExpenseID)
	suite.Equal(suite.employee.UserID, res.UserID)
	suite.Equal(domain.StatusSubmitted, res.Status)
	suite.Equal("USD", res.Currency)
	suite.Equal("2024-03-01", res.ExpenseDate)
	suite.True(res.Amount.Equal(decimal.RequireFromString("42.10")))
	suite.Equal(res.CreatedAt, res.UpdatedAt)

	actions := suite.history(res.ExpenseID)
	suite.Require().Len(actions, 1)
	suite.Equal(domain.ActionSubmit, actions[0].ActionType)
	suite.Equal(suite.employee.UserID, actions[0].ActorID)
	suite.Nil(actions[0].Comment)
}

func (suite *ExpenseLifecycleTestSuite) TestSubmit_DefaultCurrency() {
	input := lunch()
	input.Currency = "  "
	res, err := suite.svc.SubmitExpense(context.Background(), suite.employee.UserID, input)
	suite.Require().NoError(err)
	suite.Equal(domain.DefaultCurrency, res.Currency)

	eur := services.NewExpenseService(suite.repos.ExpenseRepo, suite.repos.TxManager,
		services.NewAuditRecorder(suite.repos.ExpenseRepo, suite.repos.ActionRepo, nil),
		services.WithDefaultCurrency("eur"))
	res, err = eur.SubmitExpense(context.Background(), suite.employee.UserID, input)
	suite.Require().NoError(err)
	suite.Equal("EUR", res.Currency)
}

func (suite *ExpenseLifecycleTestSuite) TestSubmit_Validation() {
	tests := []struct {
		name   string
		mutate func(in *dto.SubmitExpenseInput)
	}{
		{"zero amount", func(in *dto.SubmitExpenseInput) { in.Amount = decimal.Zero }},
		{"negative amount", func(in *dto.SubmitExpenseInput) { in.Amount = decimal.RequireFromString("-1") }},
		{"too many decimal places", func(in *dto.SubmitExpenseInput) { in.Amount = decimal.RequireFromString("12.34567") }},
		{"below smallest unit", func(in *dto.SubmitExpenseInput) { in.Amount = decimal.RequireFromString("0.00001") }},
		{"above maximum", func(in *dto.SubmitExpenseInput) { in.Amount = decimal.RequireFromString("1000000000000000") }},
		{"bad currency", func(in *dto.SubmitExpenseInput) { in.Currency = "US1" }},
		{"long currency", func(in *dto.SubmitExpenseInput) { in.Currency = "EURO" }},
		{"unknown category", func(in *dto.SubmitExpenseInput) { in.Category = "LOGIN" }},
		{"blank description", func(in *dto.SubmitExpenseInput) { in.Description = "   " }},
		{"long description", func(in *dto.SubmitExpenseInput) { in.Description = strings.Repeat("é", domain.MaxTextLength+1) }},
		{"missing date", func(in *dto.SubmitExpenseInput) { in.ExpenseDate = time.Time{} }},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			input := lunch()
			tt.mutate(&input)
			res, err := suite.svc.SubmitExpense(context.Background(), suite.employee.UserID, input)
			suite.Nil(res)
			suite.ErrorIs(err, apperrors.ErrValidation)
		})
	}

	list, err := suite.svc.ListExpensesByUser(context.Background(), suite.employee.UserID)
	suite.Require().NoError(err)
	suite.Empty(list)
}

func (suite *ExpenseLifecycleTestSuite) TestSubmit_MaxLengthDescriptionAccepted() {
	input := lunch()
	input.Description = strings.Repeat("é", domain.MaxTextLength)
	_, err := suite.svc.SubmitExpense(context.Background(), suite.employee.UserID, input)
	suite.NoError(err)
}

func (suite *ExpenseLifecycleTestSuite) TestSubmit_AmountAtStorageLimits() {
	ctx := context.Background()
	for _, amount := range []string{"0.0001", "12.3400000", "999999999999999.9999"} {
		input := lunch()
		input.Amount = decimal.RequireFromString(amount)
		res, err := suite.svc.SubmitExpense(ctx, suite.employee.UserID, input)
		suite.Require().NoError(err, amount)

		stored, err := suite.svc.GetExpenseByID(ctx, res.ExpenseID)
		suite.Require().NoError(err)
		suite.True(res.Amount.Equal(stored.Amount), amount)
	}
}

func (suite *ExpenseLifecycleTestSuite) TestSubmit_UnknownOwner() {
	res, err := suite.svc.SubmitExpense(context.Background(), 999, lunch())
	suite.Nil(res)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *ExpenseLifecycleTestSuite) TestApproveThenReimburse() {
	ctx := context.Background()
	exp := suite.submit()

	approved, err := suite.svc.ApproveExpense(ctx, suite.manager.UserID, exp.ExpenseID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusApproved, approved.Status)
	suite.True(approved.UpdatedAt.After(exp.UpdatedAt))
	suite.Equal(exp.CreatedAt, approved.CreatedAt)

	reimbursed, err := suite.svc.ReimburseExpense(ctx, suite.finance.UserID, exp.ExpenseID, ptr("paid via payroll"))
	suite.Require().NoError(err)
	suite.Equal(domain.StatusReimbursed, reimbursed.Status)

	actions := suite.history(exp.ExpenseID)
	suite.Require().Len(actions, 3)
	suite.Equal([]domain.ActionType{domain.ActionSubmit, domain.ActionApprove, domain.ActionReimburse},
		[]domain.ActionType{actions[0].ActionType, actions[1].ActionType, actions[2].ActionType})
	suite.Equal(suite.manager.UserID, actions[1].ActorID)
	suite.Equal(suite.finance.UserID, actions[2].ActorID)
	suite.Require().NotNil(actions[2].Comment)
	suite.Equal("paid via payroll", *actions[2].Comment)
	suite.False(actions[2].Timestamp.Before(reimbursed.UpdatedAt))
}

func (suite *ExpenseLifecycleTestSuite) TestRejectThenReimburseIsInvalid() {
	ctx := context.Background()
	exp := suite.submit()

	rejected, err := suite.svc.RejectExpense(ctx, suite.manager.UserID, exp.ExpenseID, ptr("missing receipt"))
	suite.Require().NoError(err)
	suite.Equal(domain.StatusRejected, rejected.Status)

	_, err = suite.svc.ReimburseExpense(ctx, suite.finance.UserID, exp.ExpenseID, nil)
	suite.ErrorIs(err, apperrors.ErrInvalidState)
	suite.Contains(err.Error(), "REJECTED")

	actions := suite.history(exp.ExpenseID)
	suite.Require().Len(actions, 2)
	suite.Equal("missing receipt", *actions[1].Comment)
}

func (suite *ExpenseLifecycleTestSuite) TestDoubleApproveIsInvalid() {
	ctx := context.Background()
	exp := suite.submit()

	_, err := suite.svc.ApproveExpense(ctx, suite.manager.UserID, exp.ExpenseID)
	suite.Require().NoError(err)

	_, err = suite.svc.ApproveExpense(ctx, suite.manager.UserID, exp.ExpenseID)
	suite.ErrorIs(err, apperrors.ErrInvalidState)
	suite.Contains(err.Error(), "APPROVED")
	suite.Len(suite.history(exp.ExpenseID), 2)
}

func (suite *ExpenseLifecycleTestSuite) TestReimburseSubmittedIsInvalid() {
	exp := suite.submit()

	_, err := suite.svc.ReimburseExpense(context.Background(), suite.finance.UserID, exp.ExpenseID, nil)
	suite.ErrorIs(err, apperrors.ErrInvalidState)
	suite.Contains(err.Error(), "current status is SUBMITTED")
}

func (suite *ExpenseLifecycleTestSuite) TestRoleEnforcement() {
	ctx := context.Background()
	exp := suite.submit()

	tests := []struct {
		name string
		run  func() error
	}{
		{"employee approves", func() error {
			_, err := suite.svc.ApproveExpense(ctx, suite.employee.UserID, exp.ExpenseID)
			return err
		}},
		{"finance approves", func() error {
			_, err := suite.svc.ApproveExpense(ctx, suite.finance.UserID, exp.ExpenseID)
			return err
		}},
		{"finance rejects", func() error {
			_, err := suite.svc.RejectExpense(ctx, suite.finance.UserID, exp.ExpenseID, nil)
			return err
		}},
		{"manager reimburses", func() error {
			_, err := suite.svc.ReimburseExpense(ctx, suite.manager.UserID, exp.ExpenseID, nil)
			return err
		}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.ErrorIs(tt.run(), apperrors.ErrForbidden)
		})
	}

	got, err := suite.svc.GetExpenseByID(ctx, exp.ExpenseID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusSubmitted, got.Status)
	suite.Len(suite.history(exp.ExpenseID), 1)
}

func (suite *ExpenseLifecycleTestSuite) TestRoleCheckedBeforeExpenseLookup() {
	_, err := suite.svc.ApproveExpense(context.Background(), suite.employee.UserID, 999)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *ExpenseLifecycleTestSuite) TestNotFound() {
	ctx := context.Background()
	exp := suite.submit()

	_, err := suite.svc.ApproveExpense(ctx, suite.manager.UserID, 999)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.svc.ApproveExpense(ctx, 999, exp.ExpenseID)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.svc.GetExpenseByID(ctx, 999)
	suite.ErrorIs(err, apperrors.ErrNotFound)

	_, err = suite.svc.GetExpenseHistory(ctx, 999)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *ExpenseLifecycleTestSuite) TestBlankCommentStoredAsNone() {
	exp := suite.submit()

	_, err := suite.svc.RejectExpense(context.Background(), suite.manager.UserID, exp.ExpenseID, ptr("   "))
	suite.Require().NoError(err)

	actions := suite.history(exp.ExpenseID)
	suite.Require().Len(actions, 2)
	suite.Nil(actions[1].Comment)
}

func (suite *ExpenseLifecycleTestSuite) TestOverlongCommentRollsBack() {
	exp := suite.submit()

	_, err := suite.svc.RejectExpense(context.Background(), suite.manager.UserID, exp.ExpenseID,
		ptr(strings.Repeat("x", domain.MaxTextLength+1)))
	suite.ErrorIs(err, apperrors.ErrValidation)

	got, err := suite.svc.GetExpenseByID(context.Background(), exp.ExpenseID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusSubmitted, got.Status)
	suite.Len(suite.history(exp.ExpenseID), 1)
}

func (suite *ExpenseLifecycleTestSuite) TestAuditFailureRollsBackTransition() {
	ctx := context.Background()
	exp := suite.submit()

	failing := suite.newService(&failingActionsTx{inner: suite.repos.TxManager})
	_, err := failing.ApproveExpense(ctx, suite.manager.UserID, exp.ExpenseID)
	suite.ErrorIs(err, assert.AnError)

	got, err := suite.svc.GetExpenseByID(ctx, exp.ExpenseID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusSubmitted, got.Status)
	suite.Equal(exp.UpdatedAt, got.UpdatedAt)
	suite.Len(suite.history(exp.ExpenseID), 1)

	// The expense is still actionable afterwards.
	_, err = suite.svc.ApproveExpense(ctx, suite.manager.UserID, exp.ExpenseID)
	suite.NoError(err)
}

func (suite *ExpenseLifecycleTestSuite) TestConcurrentApproveAndRejectHaveOneWinner() {
	ctx := context.Background()
	exp := suite.submit()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = suite.svc.ApproveExpense(ctx, suite.manager.UserID, exp.ExpenseID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = suite.svc.RejectExpense(ctx, suite.manager.UserID, exp.ExpenseID, nil)
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		suite.ErrorIs(err, apperrors.ErrInvalidState)
	}
	suite.Equal(1, succeeded)
	suite.Len(suite.history(exp.ExpenseID), 2)
}

func (suite *ExpenseLifecycleTestSuite) TestHistoryOrderedWhenClockStepsBack() {
	ctx := context.Background()
	exp := suite.submit()

	suite.clock.mu.Lock()
	suite.clock.now = suite.clock.now.Add(-time.Hour)
	suite.clock.mu.Unlock()

	_, err := suite.svc.ApproveExpense(ctx, suite.manager.UserID, exp.ExpenseID)
	suite.Require().NoError(err)

	actions := suite.history(exp.ExpenseID)
	suite.Require().Len(actions, 2)
	suite.Equal(domain.ActionSubmit, actions[0].ActionType)
	suite.Equal(domain.ActionApprove, actions[1].ActionType)
	suite.False(actions[1].Timestamp.Before(actions[0].Timestamp))
}

func (suite *ExpenseLifecycleTestSuite) TestListings() {
	ctx := context.Background()
	first := suite.submit()
	second := suite.submit()
	_, err := suite.svc.ApproveExpense(ctx, suite.manager.UserID, second.ExpenseID)
	suite.Require().NoError(err)

	mine, err := suite.svc.ListExpensesByUser(ctx, suite.employee.UserID)
	suite.Require().NoError(err)
	suite.Require().Len(mine, 2)
	suite.Equal(first.ExpenseID, mine[0].ExpenseID)

	none, err := suite.svc.ListExpensesByUser(ctx, 999)
	suite.Require().NoError(err)
	suite.NotNil(none)
	suite.Empty(none)

	pending, err := suite.svc.ListExpensesByStatus(ctx, domain.StatusSubmitted)
	suite.Require().NoError(err)
	suite.Require().Len(pending, 1)
	suite.Equal(first.ExpenseID, pending[0].ExpenseID)

	_, err = suite.svc.ListExpensesByStatus(ctx, "PAID")
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func TestExpenseLifecycle(t *testing.T) {
	suite.Run(t, new(ExpenseLifecycleTestSuite))
}

// failingActionsTx runs units of work on the real store but fails every audit append.
type failingActionsTx struct {
	inner portsrepo.TransactionManager
}

type failingActions struct {
	portsrepo.ExpenseActionRepositoryFacade
}

func (failingActions) SaveAction(context.Context, *domain.ExpenseAction) error {
	return assert.AnError
}

func (f *failingActionsTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos portsrepo.TxRepositories) error) error {
	return f.inner.WithinTransaction(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		repos.Actions = failingActions{repos.Actions}
		return fn(ctx, repos)
	})
}

// --- Mock-backed tests for check order and error mapping ---

type mockHarness struct {
	users    *MockUserRepository
	expenses *MockExpenseRepository
	actions  *MockActionRepository
	tx       *MockTxManager
	svc      portssvc.ExpenseSvcFacade
}

func newMockHarness() *mockHarness {
	h := &mockHarness{
		users:    new(MockUserRepository),
		expenses: new(MockExpenseRepository),
		actions:  new(MockActionRepository),
	}
	h.tx = &MockTxManager{}
	h.tx.repos = portsrepo.TxRepositories{Users: h.users, Expenses: h.expenses, Actions: h.actions}
	now := func() time.Time { return time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC) }
	auditor := services.NewAuditRecorder(h.expenses, h.actions, now)
	h.svc = services.NewExpenseService(h.expenses, h.tx, auditor, services.WithClock(now))
	return h
}

func TestApprove_ForbiddenNeverLoadsExpense(t *testing.T) {
	ctx := context.Background()
	h := newMockHarness()
	h.users.On("FindUserByID", mock.Anything, int64(1)).Return(&domain.User{UserID: 1, Role: domain.RoleEmployee}, nil)

	_, err := h.svc.ApproveExpense(ctx, 1, 10)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	h.expenses.AssertNotCalled(t, "FindExpenseByIDForUpdate", mock.Anything, mock.Anything)
	h.expenses.AssertNotCalled(t, "SaveExpense", mock.Anything, mock.Anything)
	h.actions.AssertNotCalled(t, "SaveAction", mock.Anything, mock.Anything)
	assert.Equal(t, 1, h.tx.Aborted)
}

func TestApprove_LostRaceReportsWinningStatus(t *testing.T) {
	ctx := context.Background()
	h := newMockHarness()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	loaded := &domain.Expense{
		ExpenseID: 10, OwnerID: 2, Amount: decimal.NewFromInt(5), Currency: "USD",
		Category: domain.CategoryOther, Description: "taxi", ExpenseDate: created,
		Status: domain.StatusSubmitted, CreatedAt: created, UpdatedAt: created, Version: 1,
	}
	winner := *loaded
	winner.Status = domain.StatusRejected
	winner.Version = 2

	h.users.On("FindUserByID", mock.Anything, int64(1)).Return(&domain.User{UserID: 1, Role: domain.RoleManager}, nil)
	h.expenses.On("FindExpenseByIDForUpdate", mock.Anything, int64(10)).Return(loaded, nil).Once()
	h.expenses.On("SaveExpense", mock.Anything, mock.AnythingOfType("*domain.Expense")).Return(apperrors.ErrStaleVersion).Once()
	h.expenses.On("FindExpenseByID", mock.Anything, int64(10)).Return(&winner, nil).Once()

	_, err := h.svc.ApproveExpense(ctx, 1, 10)

	require.ErrorIs(t, err, apperrors.ErrInvalidState)
	assert.Contains(t, err.Error(), "REJECTED")
	h.actions.AssertNotCalled(t, "SaveAction", mock.Anything, mock.Anything)
	h.expenses.AssertExpectations(t)
}

func TestApprove_OwnerlessExpenseIsInternal(t *testing.T) {
	ctx := context.Background()
	h := newMockHarness()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	orphan := &domain.Expense{
		ExpenseID: 10, Amount: decimal.NewFromInt(5), Currency: "USD",
		Category: domain.CategoryOther, Description: "taxi", ExpenseDate: created,
		Status: domain.StatusSubmitted, CreatedAt: created, UpdatedAt: created, Version: 1,
	}

	h.users.On("FindUserByID", mock.Anything, int64(1)).Return(&domain.User{UserID: 1, Role: domain.RoleManager}, nil)
	h.expenses.On("FindExpenseByIDForUpdate", mock.Anything, int64(10)).Return(orphan, nil)
	h.expenses.On("SaveExpense", mock.Anything, mock.Anything).Return(nil)
	h.actions.On("FindLatestActionByExpenseID", mock.Anything, int64(10)).Return(nil, apperrors.ErrNotFound)
	h.actions.On("SaveAction", mock.Anything, mock.Anything).Return(nil)

	res, err := h.svc.ApproveExpense(ctx, 1, 10)

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperrors.ErrInternal)
	assert.Equal(t, 1, h.tx.Aborted)
	assert.Equal(t, 0, h.tx.Committed)
}
