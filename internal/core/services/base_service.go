package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/expense_reimbursement_app/internal/apperrors"
	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	"github.com/SscSPs/expense_reimbursement_app/internal/middleware"
)

// Clock returns the current instant. Services take it as a dependency so
// every persisted timestamp is deterministic under test.
type Clock func() time.Time

// BaseService provides common functionality for all services
type BaseService struct {
	clock Clock
}

// Now returns the service clock's current instant in UTC, truncated to the
// microsecond precision every store keeps.
func (s *BaseService) Now() time.Time {
	clock := s.clock
	if clock == nil {
		clock = time.Now
	}
	return clock().UTC().Truncate(time.Microsecond)
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// AuthorizeRole checks that user holds role, returning apperrors.ErrForbidden otherwise.
func (s *BaseService) AuthorizeRole(ctx context.Context, user *domain.User, role domain.UserRole, activity string) error {
	if user.HasRole(role) {
		return nil
	}
	s.LogDebug(ctx, "Role check failed",
		slog.Int64("user_id", user.UserID),
		slog.String("user_role", string(user.Role)),
		slog.String("required_role", string(role)))
	return fmt.Errorf("%w: only %s can %s", apperrors.ErrForbidden, role, activity)
}
