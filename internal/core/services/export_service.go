package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/SscSPs/expense_reimbursement_app/internal/apperrors"
	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	portsrepo "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/services"
	"github.com/SscSPs/expense_reimbursement_app/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	expensesSheet = "Expenses"
	actionsSheet  = "Audit Trail"
	timeLayout    = "2006-01-02 15:04:05"
)

var allStatuses = []domain.ExpenseStatus{
	domain.StatusSubmitted,
	domain.StatusApproved,
	domain.StatusRejected,
	domain.StatusReimbursed,
}

type exportService struct {
	BaseService
	userRepo    portsrepo.UserReader
	expenseRepo portsrepo.ExpenseReader
	actionRepo  portsrepo.ExpenseActionReader
}

// NewExportService creates the spreadsheet export service.
func NewExportService(userRepo portsrepo.UserReader, expenseRepo portsrepo.ExpenseReader, actionRepo portsrepo.ExpenseActionReader) portssvc.ExpenseExportSvc {
	return &exportService{
		userRepo:    userRepo,
		expenseRepo: expenseRepo,
		actionRepo:  actionRepo,
	}
}

var _ portssvc.ExpenseExportSvc = (*exportService)(nil)

func (s *exportService) ExportExpenses(ctx context.Context, actorID int64, status *domain.ExpenseStatus, w io.Writer) error {
	actor, err := s.userRepo.FindUserByID(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.HasRole(domain.RoleManager) && !actor.HasRole(domain.RoleFinance) {
		return fmt.Errorf("%w: only MANAGER or FINANCE can export expenses", apperrors.ErrForbidden)
	}

	statuses := allStatuses
	if status != nil {
		if !status.IsValid() {
			return fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, *status)
		}
		statuses = []domain.ExpenseStatus{*status}
	}

	var batches [][]domain.Expense
	for _, st := range statuses {
		batch, err := s.expenseRepo.ListExpensesByStatus(ctx, st)
		if err != nil {
			s.LogError(ctx, err, "Failed to list expenses for export", slog.String("status", string(st)))
			return err
		}
		batches = append(batches, batch)
	}
	expenses := mergeExpenses(batches...)

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeExpenses(f, expenses); err != nil {
		return err
	}
	if err := s.writeActions(ctx, f, expenses); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		s.LogError(ctx, err, "Failed to write export workbook")
		return fmt.Errorf("failed to write export workbook: %w", err)
	}

	s.LogInfo(ctx, "Expenses exported",
		slog.Int64("actor_id", actorID),
		slog.Int("expense_count", len(expenses)))
	return nil
}

// mergeExpenses joins per-status listings by id. The per-status reads are not
// one snapshot, so an expense that moved between them can appear twice; the
// copy with the higher version wins.
func mergeExpenses(batches ...[]domain.Expense) []domain.Expense {
	byID := make(map[int64]domain.Expense)
	for _, batch := range batches {
		for _, exp := range batch {
			if seen, ok := byID[exp.ExpenseID]; ok && seen.Version >= exp.Version {
				continue
			}
			byID[exp.ExpenseID] = exp
		}
	}

	merged := make([]domain.Expense, 0, len(byID))
	for _, exp := range byID {
		merged = append(merged, exp)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ExpenseID < merged[j].ExpenseID })
	return merged
}

func (s *exportService) writeExpenses(f *excelize.File, expenses []domain.Expense) error {
	if err := f.SetSheetName("Sheet1", expensesSheet); err != nil {
		return fmt.Errorf("failed to name export sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	headers := []string{"ID", "User ID", "Amount", "Currency", "Category", "Description", "Expense Date", "Status", "Created At", "Updated At"}
	if err := writeHeader(f, expensesSheet, headers, headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(expensesSheet, "F", "F", 40); err != nil {
		return fmt.Errorf("failed to size description column: %w", err)
	}
	if err := f.SetColWidth(expensesSheet, "I", "J", 20); err != nil {
		return fmt.Errorf("failed to size timestamp columns: %w", err)
	}

	totals := map[string]decimal.Decimal{}
	for i, exp := range expenses {
		// Rows are projected first so a corrupt expense fails the export.
		res, err := dto.ToExpenseResponse(&exp)
		if err != nil {
			return err
		}
		row := []any{
			res.ExpenseID,
			res.UserID,
			res.Amount.InexactFloat64(),
			res.Currency,
			string(res.Category),
			res.Description,
			res.ExpenseDate,
			string(res.Status),
			res.CreatedAt.Format(timeLayout),
			res.UpdatedAt.Format(timeLayout),
		}
		if err := writeRow(f, expensesSheet, i+2, row); err != nil {
			return err
		}
		totals[res.Currency] = totals[res.Currency].Add(res.Amount)
	}

	// One summary row per currency; amounts are never converted.
	currencies := make([]string, 0, len(totals))
	for c := range totals {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)
	summaryRow := len(expenses) + 3
	for i, c := range currencies {
		row := []any{"Total", "", totals[c].InexactFloat64(), c}
		if err := writeRow(f, expensesSheet, summaryRow+i, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *exportService) writeActions(ctx context.Context, f *excelize.File, expenses []domain.Expense) error {
	if _, err := f.NewSheet(actionsSheet); err != nil {
		return fmt.Errorf("failed to create audit sheet: %w", err)
	}
	headers := []string{"Action ID", "Expense ID", "Actor ID", "Action", "Comment", "Timestamp"}
	if err := writeHeader(f, actionsSheet, headers, 0); err != nil {
		return err
	}

	row := 2
	for _, exp := range expenses {
		actions, err := s.actionRepo.ListActionsByExpenseID(ctx, exp.ExpenseID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to list actions for export", slog.Int64("expense_id", exp.ExpenseID))
			return err
		}
		for _, a := range actions {
			comment := ""
			if a.Comment != nil {
				comment = *a.Comment
			}
			values := []any{a.ActionID, a.ExpenseID, a.ActorID, string(a.ActionType), comment, a.Timestamp.Format(timeLayout)}
			if err := writeRow(f, actionsSheet, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if style != 0 {
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
