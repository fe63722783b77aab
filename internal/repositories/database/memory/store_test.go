package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/expense_reimbursement_app/internal/apperrors"
	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/repositories"
	"github.com/SscSPs/expense_reimbursement_app/internal/repositories/database/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newExpense(owner int64) *domain.Expense {
	return &domain.Expense{
		OwnerID:     owner,
		Amount:      decimal.RequireFromString("12.50"),
		Currency:    "USD",
		Category:    domain.CategoryMeals,
		Description: "lunch",
		ExpenseDate: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
		Status:      domain.StatusSubmitted,
		CreatedAt:   t0,
		UpdatedAt:   t0,
	}
}

func TestStore_UsersSequentialAndUniqueEmail(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositoryProvider()

	a := &domain.User{Name: "A", Email: "a@x.com", Role: domain.RoleEmployee}
	b := &domain.User{Name: "B", Email: "b@x.com", Role: domain.RoleManager}
	require.NoError(t, repos.UserRepo.SaveUser(ctx, a))
	require.NoError(t, repos.UserRepo.SaveUser(ctx, b))
	assert.Equal(t, int64(1), a.UserID)
	assert.Equal(t, int64(2), b.UserID)

	err := repos.UserRepo.SaveUser(ctx, &domain.User{Name: "dup", Email: "A@X.com"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	found, err := repos.UserRepo.FindUserByEmail(ctx, "B@x.COM")
	require.NoError(t, err)
	assert.Equal(t, b.UserID, found.UserID)

	_, err = repos.UserRepo.FindUserByID(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	n, err := repos.UserRepo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestStore_SaveExpenseVersionGuard(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositoryProvider()

	exp := newExpense(1)
	require.NoError(t, repos.ExpenseRepo.SaveExpense(ctx, exp))
	assert.Equal(t, int64(1), exp.ExpenseID)
	assert.Equal(t, int64(1), exp.Version)

	first, err := repos.ExpenseRepo.FindExpenseByID(ctx, exp.ExpenseID)
	require.NoError(t, err)
	second, err := repos.ExpenseRepo.FindExpenseByID(ctx, exp.ExpenseID)
	require.NoError(t, err)

	first.Status = domain.StatusApproved
	require.NoError(t, repos.ExpenseRepo.SaveExpense(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Status = domain.StatusRejected
	err = repos.ExpenseRepo.SaveExpense(ctx, second)
	assert.ErrorIs(t, err, apperrors.ErrStaleVersion)

	stored, err := repos.ExpenseRepo.FindExpenseByID(ctx, exp.ExpenseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, stored.Status)
}

func TestStore_ReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositoryProvider()

	exp := newExpense(1)
	require.NoError(t, repos.ExpenseRepo.SaveExpense(ctx, exp))

	loaded, err := repos.ExpenseRepo.FindExpenseByID(ctx, exp.ExpenseID)
	require.NoError(t, err)
	loaded.Status = domain.StatusReimbursed

	again, err := repos.ExpenseRepo.FindExpenseByID(ctx, exp.ExpenseID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, again.Status)
}

func TestStore_ListsOrderedAndNeverNil(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositoryProvider()

	empty, err := repos.ExpenseRepo.ListExpensesByUser(ctx, 42)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	late := newExpense(1)
	late.CreatedAt = t0.Add(time.Minute)
	early := newExpense(1)
	other := newExpense(2)
	require.NoError(t, repos.ExpenseRepo.SaveExpense(ctx, late))
	require.NoError(t, repos.ExpenseRepo.SaveExpense(ctx, early))
	require.NoError(t, repos.ExpenseRepo.SaveExpense(ctx, other))

	mine, err := repos.ExpenseRepo.ListExpensesByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, early.ExpenseID, mine[0].ExpenseID)
	assert.Equal(t, late.ExpenseID, mine[1].ExpenseID)

	submitted, err := repos.ExpenseRepo.ListExpensesByStatus(ctx, domain.StatusSubmitted)
	require.NoError(t, err)
	assert.Len(t, submitted, 3)
}

func TestStore_ActionsOrderedByTimestampThenID(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositoryProvider()

	exp := newExpense(1)
	require.NoError(t, repos.ExpenseRepo.SaveExpense(ctx, exp))

	_, err := repos.ActionRepo.FindLatestActionByExpenseID(ctx, exp.ExpenseID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	a1 := &domain.ExpenseAction{ExpenseID: exp.ExpenseID, ActorID: 1, ActionType: domain.ActionSubmit, Timestamp: t0}
	a2 := &domain.ExpenseAction{ExpenseID: exp.ExpenseID, ActorID: 2, ActionType: domain.ActionApprove, Timestamp: t0}
	require.NoError(t, repos.ActionRepo.SaveAction(ctx, a1))
	require.NoError(t, repos.ActionRepo.SaveAction(ctx, a2))

	list, err := repos.ActionRepo.ListActionsByExpenseID(ctx, exp.ExpenseID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a1.ActionID, list[0].ActionID)
	assert.Equal(t, a2.ActionID, list[1].ActionID)

	latest, err := repos.ActionRepo.FindLatestActionByExpenseID(ctx, exp.ExpenseID)
	require.NoError(t, err)
	assert.Equal(t, a2.ActionID, latest.ActionID)

	err = repos.ActionRepo.SaveAction(ctx, &domain.ExpenseAction{ExpenseID: 99, ActorID: 1, ActionType: domain.ActionSubmit, Timestamp: t0})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_WithinTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositoryProvider()
	boom := errors.New("boom")

	err := repos.TxManager.WithinTransaction(ctx, func(ctx context.Context, tx portsrepo.TxRepositories) error {
		exp := newExpense(1)
		if err := tx.Expenses.SaveExpense(ctx, exp); err != nil {
			return err
		}
		if err := tx.Actions.SaveAction(ctx, &domain.ExpenseAction{ExpenseID: exp.ExpenseID, ActorID: 1, ActionType: domain.ActionSubmit, Timestamp: t0}); err != nil {
			return err
		}
		// Writes are visible inside the unit of work.
		got, err := tx.Expenses.FindExpenseByID(ctx, exp.ExpenseID)
		if err != nil {
			return err
		}
		assert.Equal(t, exp.ExpenseID, got.ExpenseID)
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := repos.ExpenseRepo.ListExpensesByStatus(ctx, domain.StatusSubmitted)
	require.NoError(t, err)
	assert.Empty(t, list)

	// Ids handed out by a discarded unit of work are handed out again.
	exp := newExpense(1)
	require.NoError(t, repos.ExpenseRepo.SaveExpense(ctx, exp))
	assert.Equal(t, int64(1), exp.ExpenseID)
}

func TestStore_WithinTransactionCommits(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositoryProvider()

	var id int64
	err := repos.TxManager.WithinTransaction(ctx, func(ctx context.Context, tx portsrepo.TxRepositories) error {
		exp := newExpense(1)
		if err := tx.Expenses.SaveExpense(ctx, exp); err != nil {
			return err
		}
		id = exp.ExpenseID
		return tx.Actions.SaveAction(ctx, &domain.ExpenseAction{ExpenseID: id, ActorID: 1, ActionType: domain.ActionSubmit, Timestamp: t0})
	})
	require.NoError(t, err)

	_, err = repos.ExpenseRepo.FindExpenseByID(ctx, id)
	require.NoError(t, err)
	actions, err := repos.ActionRepo.ListActionsByExpenseID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestStore_WithinTransactionHonoursCancelledContext(t *testing.T) {
	repos := memory.NewRepositoryProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repos.TxManager.WithinTransaction(ctx, func(ctx context.Context, tx portsrepo.TxRepositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_ConcurrentUnitsOfWorkSerialize(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewRepositoryProvider()

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = repos.TxManager.WithinTransaction(ctx, func(ctx context.Context, tx portsrepo.TxRepositories) error {
				return tx.Expenses.SaveExpense(ctx, newExpense(1))
			})
		}()
	}
	wg.Wait()

	list, err := repos.ExpenseRepo.ListExpensesByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, workers)
	seen := make(map[int64]bool, workers)
	for _, e := range list {
		assert.False(t, seen[e.ExpenseID], "duplicate id %d", e.ExpenseID)
		seen[e.ExpenseID] = true
	}
}
