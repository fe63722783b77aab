package services

import (
	"context"
	"io"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
)

// ExpenseExportSvc renders expenses and their audit trail as a spreadsheet
type ExpenseExportSvc interface {
	// ExportExpenses writes an xlsx workbook to w. When status is nil every
	// expense is exported. Only MANAGER and FINANCE may export.
	ExportExpenses(ctx context.Context, actorID int64, status *domain.ExpenseStatus, w io.Writer) error
}
