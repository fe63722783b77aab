package services

import (
	"context"
	"time"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
)

// TokenSvcFacade defines the interface for access token issuance.
type TokenSvcFacade interface {
	// GenerateAccessToken signs a JWT whose subject is the user's id.
	GenerateAccessToken(ctx context.Context, user *domain.User) (string, time.Time, error)
}
