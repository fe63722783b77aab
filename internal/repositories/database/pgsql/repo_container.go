package pgsql

import (
	portsrepo "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		UserRepo:    newPgxUserRepository(dbPool),
		ExpenseRepo: newPgxExpenseRepository(dbPool),
		ActionRepo:  newPgxExpenseActionRepository(dbPool),
		TxManager:   &BaseRepository{Pool: dbPool},
	}
}
