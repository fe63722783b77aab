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

type PgxUserRepository struct {
	db DBTX
}

func newPgxUserRepository(db DBTX) *PgxUserRepository {
	return &PgxUserRepository{db: db}
}

var _ portsrepo.UserRepositoryFacade = (*PgxUserRepository)(nil)

const selectUserFields = `user_id, name, email, password_hash, role, created_at`

func (r *PgxUserRepository) SaveUser(ctx context.Context, user *domain.User) error {
	m := mapping.ToModelUser(*user)
	query := `
		INSERT INTO users (name, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING user_id;
	`
	err := r.db.QueryRow(ctx, query, m.Name, m.Email, m.PasswordHash, m.Role, m.CreatedAt).Scan(&user.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s is already registered", apperrors.ErrDuplicate, m.Email)
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *PgxUserRepository) FindUserByID(ctx context.Context, userID int64) (*domain.User, error) {
	query := `SELECT ` + selectUserFields + ` FROM users WHERE user_id = $1;`
	user, err := scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %d", apperrors.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to find user by ID %d: %w", userID, err)
	}
	return user, nil
}

func (r *PgxUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + selectUserFields + ` FROM users WHERE lower(email) = lower($1);`
	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: user with email %s", apperrors.ErrNotFound, email)
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

func (r *PgxUserRepository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var m models.User
	if err := row.Scan(&m.UserID, &m.Name, &m.Email, &m.PasswordHash, &m.Role, &m.CreatedAt); err != nil {
		return nil, err
	}
	user := mapping.ToDomainUser(m)
	return &user, nil
}
