package services_test

import (
	"context"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/repositories"
	"github.com/stretchr/testify/mock"
)

// --- Mock UserRepository ---
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) SaveUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	var user *domain.User
	if args.Get(0) != nil {
		user = args.Get(0).(*domain.User)
	}
	return user, args.Error(1)
}

func (m *MockUserRepository) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock ExpenseRepository ---
type MockExpenseRepository struct {
	mock.Mock
}

func (m *MockExpenseRepository) SaveExpense(ctx context.Context, expense *domain.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) FindExpenseByID(ctx context.Context, expenseID int64) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID)
	var exp *domain.Expense
	if args.Get(0) != nil {
		exp = args.Get(0).(*domain.Expense)
	}
	return exp, args.Error(1)
}

func (m *MockExpenseRepository) FindExpenseByIDForUpdate(ctx context.Context, expenseID int64) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID)
	var exp *domain.Expense
	if args.Get(0) != nil {
		exp = args.Get(0).(*domain.Expense)
	}
	return exp, args.Error(1)
}

func (m *MockExpenseRepository) ListExpensesByUser(ctx context.Context, ownerID int64) ([]domain.Expense, error) {
	args := m.Called(ctx, ownerID)
	var list []domain.Expense
	if args.Get(0) != nil {
		list = args.Get(0).([]domain.Expense)
	}
	return list, args.Error(1)
}

func (m *MockExpenseRepository) ListExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]domain.Expense, error) {
	args := m.Called(ctx, status)
	var list []domain.Expense
	if args.Get(0) != nil {
		list = args.Get(0).([]domain.Expense)
	}
	return list, args.Error(1)
}

// --- Mock ExpenseActionRepository ---
type MockActionRepository struct {
	mock.Mock
}

func (m *MockActionRepository) SaveAction(ctx context.Context, action *domain.ExpenseAction) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

func (m *MockActionRepository) ListActionsByExpenseID(ctx context.Context, expenseID int64) ([]domain.ExpenseAction, error) {
	args := m.Called(ctx, expenseID)
	var list []domain.ExpenseAction
	if args.Get(0) != nil {
		list = args.Get(0).([]domain.ExpenseAction)
	}
	return list, args.Error(1)
}

func (m *MockActionRepository) FindLatestActionByExpenseID(ctx context.Context, expenseID int64) (*domain.ExpenseAction, error) {
	args := m.Called(ctx, expenseID)
	var a *domain.ExpenseAction
	if args.Get(0) != nil {
		a = args.Get(0).(*domain.ExpenseAction)
	}
	return a, args.Error(1)
}

// --- Mock TransactionManager ---

// MockTxManager runs the unit of work directly against the mock repositories
// and records whether it was committed.
type MockTxManager struct {
	repos     portsrepo.TxRepositories
	Committed int
	Aborted   int
}

func (m *MockTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos portsrepo.TxRepositories) error) error {
	if err := fn(ctx, m.repos); err != nil {
		m.Aborted++
		return err
	}
	m.Committed++
	return nil
}

var (
	_ portsrepo.UserRepositoryFacade          = (*MockUserRepository)(nil)
	_ portsrepo.ExpenseRepositoryFacade       = (*MockExpenseRepository)(nil)
	_ portsrepo.ExpenseActionRepositoryFacade = (*MockActionRepository)(nil)
	_ portsrepo.TransactionManager            = (*MockTxManager)(nil)
)
