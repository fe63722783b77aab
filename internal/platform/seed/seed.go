// Package seed creates demo users so a fresh deployment can be exercised
// without an external identity provider.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	portssvc "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/services"
	"github.com/SscSPs/expense_reimbursement_app/internal/dto"
	"github.com/SscSPs/expense_reimbursement_app/internal/middleware"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

// DemoUsers are created on an empty store, one per role.
var DemoUsers = []dto.CreateUserRequest{
	{Name: "Employee 1", Email: "emp@demo.com", Password: DemoPassword, Role: domain.RoleEmployee},
	{Name: "Manager 1", Email: "mgr@demo.com", Password: DemoPassword, Role: domain.RoleManager},
	{Name: "Finance 1", Email: "fin@demo.com", Password: DemoPassword, Role: domain.RoleFinance},
}

// DemoUsersIfEmpty creates DemoUsers unless the store already has users.
// It returns how many users were created.
func DemoUsersIfEmpty(ctx context.Context, users portssvc.UserSvcFacade) (int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	count, err := users.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count users before seeding: %w", err)
	}
	if count > 0 {
		logger.Info("Users already present, skipping demo seed", slog.Int64("user_count", count))
		return 0, nil
	}

	for i, req := range DemoUsers {
		user, err := users.CreateUser(ctx, req)
		if err != nil {
			return i, fmt.Errorf("failed to seed user %s: %w", req.Email, err)
		}
		logger.Info("Seeded demo user",
			slog.Int64("user_id", user.UserID),
			slog.String("email", user.Email),
			slog.String("role", string(user.Role)))
	}
	return len(DemoUsers), nil
}
