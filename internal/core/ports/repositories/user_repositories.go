package repositories

import (
	"context"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
)

// UserReader defines read operations for user data
type UserReader interface {
	// FindUserByID retrieves a specific user by their ID.
	FindUserByID(ctx context.Context, userID int64) (*domain.User, error)

	// FindUserByEmail retrieves a user by their (case-insensitive) email.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int64, error)
}

// UserWriter defines write operations for user data
type UserWriter interface {
	// SaveUser persists a new user and assigns its UserID.
	// Returns apperrors.ErrDuplicate if the email is taken.
	SaveUser(ctx context.Context, user *domain.User) error
}

// UserRepositoryFacade combines all user-related repository interfaces
type UserRepositoryFacade interface {
	UserReader
	UserWriter
}
