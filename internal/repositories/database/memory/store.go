// Package memory is an in-process store used for local runs and tests.
// It keeps the postgres repositories' contracts, including version-guarded
// expense updates and all-or-nothing units of work.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/SscSPs/expense_reimbursement_app/internal/apperrors"
	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/repositories"
)

// state is the full contents of the store. Units of work run against a
// cloned state that replaces the committed one only on success.
type state struct {
	users        map[int64]domain.User
	expenses     map[int64]domain.Expense
	actions      map[int64][]domain.ExpenseAction
	nextUserID   int64
	nextExpense  int64
	nextActionID int64
}

func newState() *state {
	return &state{
		users:    make(map[int64]domain.User),
		expenses: make(map[int64]domain.Expense),
		actions:  make(map[int64][]domain.ExpenseAction),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:        make(map[int64]domain.User, len(s.users)),
		expenses:     make(map[int64]domain.Expense, len(s.expenses)),
		actions:      make(map[int64][]domain.ExpenseAction, len(s.actions)),
		nextUserID:   s.nextUserID,
		nextExpense:  s.nextExpense,
		nextActionID: s.nextActionID,
	}
	for id, u := range s.users {
		c.users[id] = u
	}
	for id, e := range s.expenses {
		c.expenses[id] = e
	}
	for id, list := range s.actions {
		c.actions[id] = append([]domain.ExpenseAction(nil), list...)
	}
	return c
}

// Store is a mutex-guarded in-memory implementation of every repository port.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

// NewRepositoryProvider wires a fresh store into a RepositoryProvider.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	s := NewStore()
	repos := s.repos()
	return portsrepo.RepositoryProvider{
		UserRepo:    repos,
		ExpenseRepo: repos,
		ActionRepo:  repos,
		TxManager:   s,
	}
}

var _ portsrepo.TransactionManager = (*Store)(nil)

// WithinTransaction serializes units of work. fn sees a private copy of the
// store; the copy is published only when fn returns nil.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos portsrepo.TxRepositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	tx := &stateRepos{st: staged}
	if err := fn(ctx, portsrepo.TxRepositories{Users: tx, Expenses: tx, Actions: tx}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *Store) repos() *stateRepos {
	return &stateRepos{store: s}
}

// stateRepos implements the repository ports. Bound to a store it locks for
// each call; bound to a staged state it runs under the unit of work's lock.
type stateRepos struct {
	store *Store
	st    *state
}

var (
	_ portsrepo.UserRepositoryFacade          = (*stateRepos)(nil)
	_ portsrepo.ExpenseRepositoryFacade       = (*stateRepos)(nil)
	_ portsrepo.ExpenseActionRepositoryFacade = (*stateRepos)(nil)
)

func (r *stateRepos) with(fn func(st *state) error) error {
	if r.st != nil {
		return fn(r.st)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.state)
}

func (r *stateRepos) SaveUser(ctx context.Context, user *domain.User) error {
	return r.with(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, user.Email) {
				return fmt.Errorf("%w: email %s is already registered", apperrors.ErrDuplicate, user.Email)
			}
		}
		st.nextUserID++
		user.UserID = st.nextUserID
		st.users[user.UserID] = *user
		return nil
	})
}

func (r *stateRepos) FindUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	var found *domain.User
	err := r.with(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return fmt.Errorf("%w: user %d", apperrors.ErrNotFound, userID)
		}
		found = &u
		return nil
	})
	return found, err
}

func (r *stateRepos) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var found *domain.User
	err := r.with(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				u := u
				found = &u
				return nil
			}
		}
		return fmt.Errorf("%w: user with email %s", apperrors.ErrNotFound, email)
	})
	return found, err
}

func (r *stateRepos) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.with(func(st *state) error {
		n = int64(len(st.users))
		return nil
	})
	return n, err
}

func (r *stateRepos) SaveExpense(ctx context.Context, expense *domain.Expense) error {
	return r.with(func(st *state) error {
		if expense.ExpenseID == 0 {
			st.nextExpense++
			expense.ExpenseID = st.nextExpense
			expense.Version = 1
			st.expenses[expense.ExpenseID] = *expense
			return nil
		}

		stored, ok := st.expenses[expense.ExpenseID]
		if !ok {
			return fmt.Errorf("%w: expense %d", apperrors.ErrNotFound, expense.ExpenseID)
		}
		if stored.Version != expense.Version {
			return fmt.Errorf("%w: expense %d at version %d", apperrors.ErrStaleVersion, expense.ExpenseID, expense.Version)
		}
		stored.Status = expense.Status
		stored.UpdatedAt = expense.UpdatedAt
		stored.Version++
		st.expenses[expense.ExpenseID] = stored
		expense.Version = stored.Version
		return nil
	})
}

func (r *stateRepos) FindExpenseByID(ctx context.Context, expenseID int64) (*domain.Expense, error) {
	var found *domain.Expense
	err := r.with(func(st *state) error {
		e, ok := st.expenses[expenseID]
		if !ok {
			return fmt.Errorf("%w: expense %d", apperrors.ErrNotFound, expenseID)
		}
		found = &e
		return nil
	})
	return found, err
}

// FindExpenseByIDForUpdate needs no extra locking: units of work already hold
// the store lock for their whole duration.
func (r *stateRepos) FindExpenseByIDForUpdate(ctx context.Context, expenseID int64) (*domain.Expense, error) {
	return r.FindExpenseByID(ctx, expenseID)
}

func (r *stateRepos) ListExpensesByUser(ctx context.Context, ownerID int64) ([]domain.Expense, error) {
	return r.listExpenses(func(e domain.Expense) bool { return e.OwnerID == ownerID })
}

func (r *stateRepos) ListExpensesByStatus(ctx context.Context, status domain.ExpenseStatus) ([]domain.Expense, error) {
	return r.listExpenses(func(e domain.Expense) bool { return e.Status == status })
}

func (r *stateRepos) listExpenses(match func(domain.Expense) bool) ([]domain.Expense, error) {
	out := []domain.Expense{}
	err := r.with(func(st *state) error {
		for _, e := range st.expenses {
			if match(e) {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ExpenseID < out[j].ExpenseID
	})
	return out, err
}

func (r *stateRepos) SaveAction(ctx context.Context, action *domain.ExpenseAction) error {
	return r.with(func(st *state) error {
		if _, ok := st.expenses[action.ExpenseID]; !ok {
			return fmt.Errorf("%w: expense %d", apperrors.ErrNotFound, action.ExpenseID)
		}
		st.nextActionID++
		action.ActionID = st.nextActionID
		st.actions[action.ExpenseID] = append(st.actions[action.ExpenseID], *action)
		return nil
	})
}

func (r *stateRepos) ListActionsByExpenseID(ctx context.Context, expenseID int64) ([]domain.ExpenseAction, error) {
	out := []domain.ExpenseAction{}
	err := r.with(func(st *state) error {
		out = append(out, st.actions[expenseID]...)
		return nil
	})
	sortActions(out)
	return out, err
}

func (r *stateRepos) FindLatestActionByExpenseID(ctx context.Context, expenseID int64) (*domain.ExpenseAction, error) {
	actions, err := r.ListActionsByExpenseID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return nil, fmt.Errorf("%w: no actions for expense %d", apperrors.ErrNotFound, expenseID)
	}
	latest := actions[len(actions)-1]
	return &latest, nil
}

func sortActions(actions []domain.ExpenseAction) {
	sort.Slice(actions, func(i, j int) bool {
		if !actions[i].Timestamp.Equal(actions[j].Timestamp) {
			return actions[i].Timestamp.Before(actions[j].Timestamp)
		}
		return actions[i].ActionID < actions[j].ActionID
	})
}
