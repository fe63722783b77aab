package repositories

import (
	"context"
)

// TxRepositories are the stores bound to one unit of work. Reads through them
// observe the unit's own writes.
type TxRepositories struct {
	Users    UserReader
	Expenses ExpenseRepositoryFacade
	Actions  ExpenseActionRepositoryFacade
}

// TransactionManager defines methods for transaction management
type TransactionManager interface {
	// WithinTransaction runs fn as one atomic unit of work. If fn returns an error
	// every write made through the supplied repositories is discarded, otherwise
	// all of them become visible together.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
