package services

import (
	portsrepo "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/services"
	"github.com/SscSPs/expense_reimbursement_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// A nil clock means time.Now.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, clock Clock) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// The audit recorder is shared so every transition appends through one path
	container.Audit = NewAuditRecorder(repos.ExpenseRepo, repos.ActionRepo, clock)

	container.Expense = NewExpenseService(
		repos.ExpenseRepo,
		repos.TxManager,
		container.Audit,
		WithClock(clock),
		WithDefaultCurrency(cfg.DefaultCurrency),
	)

	container.User = NewUserService(repos.UserRepo, clock)
	container.Export = NewExportService(repos.UserRepo, repos.ExpenseRepo, repos.ActionRepo)
	container.TokenService = NewTokenService(cfg)

	return container
}
