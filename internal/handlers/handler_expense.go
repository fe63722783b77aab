package handlers

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SscSPs/expense_reimbursement_app/internal/core/domain"
	portssvc "github.com/SscSPs/expense_reimbursement_app/internal/core/ports/services"
	"github.com/SscSPs/expense_reimbursement_app/internal/dto"
	"github.com/SscSPs/expense_reimbursement_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// expenseHandler handles HTTP requests related to expenses.
type expenseHandler struct {
	expenseService portssvc.ExpenseSvcFacade
	exportService  portssvc.ExpenseExportSvc
}

// newExpenseHandler creates a new expenseHandler.
func newExpenseHandler(es portssvc.ExpenseSvcFacade, xs portssvc.ExpenseExportSvc) *expenseHandler {
	return &expenseHandler{
		expenseService: es,
		exportService:  xs,
	}
}

// registerExpenseRoutes registers routes related to expenses.
func registerExpenseRoutes(rg *gin.RouterGroup, expenseService portssvc.ExpenseSvcFacade, exportService portssvc.ExpenseExportSvc) {
	h := newExpenseHandler(expenseService, exportService)

	expenses := rg.Group("/expenses")
	{
		expenses.POST("", h.submitExpense)
		expenses.GET("", h.listExpenses)
		expenses.GET("/export", h.exportExpenses)
		expenses.GET("/:expenseID", h.getExpense)
		expenses.GET("/:expenseID/actions", h.getExpenseHistory)
		expenses.PUT("/:expenseID/approve", h.approveExpense)
		expenses.PUT("/:expenseID/reject", h.rejectExpense)
		expenses.PUT("/:expenseID/reimburse", h.reimburseExpense)
	}
}

// callerID returns the authenticated user, writing 401 when there is none.
func callerID(c *gin.Context, logger *slog.Logger) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
	}
	return userID, ok
}

// expenseIDParam parses the :expenseID path segment, writing 400 when malformed.
func expenseIDParam(c *gin.Context, logger *slog.Logger) (int64, bool) {
	raw := c.Param("expenseID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		logger.Warn("Invalid expense ID in path", slog.String("expense_id", raw))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "expenseID must be a positive integer"})
		return 0, false
	}
	return id, true
}

// bindOptionalJSON binds a request body that may be absent entirely.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// submitExpense godoc
// @Summary Submit a new expense
// @Description Creates an expense in SUBMITTED status owned by the caller and records the SUBMIT action
// @Tags expenses
// @Accept  json
// @Produce  json
// @Param   expense body dto.SubmitExpenseRequest true "Expense details"
// @Success 201 {object} dto.ExpenseResponse
// @Failure 400 {object} ErrorResponse "Invalid input format or validation error"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Caller not found"
// @Failure 500 {object} ErrorResponse "Failed to submit expense"
// @Security BearerAuth
// @Router /expenses [post]
func (h *expenseHandler) submitExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := callerID(c, logger)
	if !ok {
		return
	}

	var req dto.SubmitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SubmitExpense", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingErrorMessage(err)})
		return
	}
	input, err := req.ToInput()
	if err != nil {
		respondError(c, logger, err, "Failed to submit expense")
		return
	}

	logger.Info("Received request to submit expense", slog.String("category", string(req.Category)))

	expense, err := h.expenseService.SubmitExpense(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, logger, err, "Failed to submit expense")
		return
	}

	logger.Info("Expense submitted successfully", slog.Int64("expense_id", expense.ExpenseID))
	c.JSON(http.StatusCreated, expense)
}

// getExpense godoc
// @Summary Get an expense by ID
// @Tags expenses
// @Produce  json
// @Param   expenseID path int true "Expense ID"
// @Success 200 {object} dto.ExpenseResponse
// @Failure 400 {object} ErrorResponse "Invalid expense ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Expense not found"
// @Failure 500 {object} ErrorResponse "Failed to retrieve expense"
// @Security BearerAuth
// @Router /expenses/{expenseID} [get]
func (h *expenseHandler) getExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	expenseID, ok := expenseIDParam(c, logger)
	if !ok {
		return
	}

	expense, err := h.expenseService.GetExpenseByID(c.Request.Context(), expenseID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve expense")
		return
	}
	c.JSON(http.StatusOK, expense)
}

// listExpenses godoc
// @Summary List expenses
// @Description Lists the expenses of a user or in a status. With neither filter the caller's own expenses are returned; userId wins when both are set.
// @Tags expenses
// @Produce  json
// @Param   userId query int false "Owner user ID"
// @Param   status query string false "Expense status" Enums(SUBMITTED, APPROVED, REJECTED, REIMBURSED)
// @Success 200 {object} dto.ListExpensesResponse
// @Failure 400 {object} ErrorResponse "Invalid query parameters"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to list expenses"
// @Security BearerAuth
// @Router /expenses [get]
func (h *expenseHandler) listExpenses(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := callerID(c, logger)
	if !ok {
		return
	}

	var params dto.ListExpensesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListExpenses", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingErrorMessage(err)})
		return
	}

	var (
		expenses []dto.ExpenseResponse
		err      error
	)
	switch {
	case params.UserID != nil:
		expenses, err = h.expenseService.ListExpensesByUser(c.Request.Context(), *params.UserID)
	case params.Status != nil:
		expenses, err = h.expenseService.ListExpensesByStatus(c.Request.Context(), domain.ExpenseStatus(*params.Status))
	default:
		expenses, err = h.expenseService.ListExpensesByUser(c.Request.Context(), userID)
	}
	if err != nil {
		respondError(c, logger, err, "Failed to list expenses")
		return
	}

	logger.Info("Expenses listed successfully", slog.Int("count", len(expenses)))
	c.JSON(http.StatusOK, dto.ListExpensesResponse{Expenses: expenses})
}

// getExpenseHistory godoc
// @Summary Get the audit trail of an expense
// @Description Returns every recorded action of the expense, oldest first
// @Tags expenses
// @Produce  json
// @Param   expenseID path int true "Expense ID"
// @Success 200 {object} dto.ListExpenseActionsResponse
// @Failure 400 {object} ErrorResponse "Invalid expense ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Expense not found"
// @Failure 500 {object} ErrorResponse "Failed to retrieve history"
// @Security BearerAuth
// @Router /expenses/{expenseID}/actions [get]
func (h *expenseHandler) getExpenseHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	expenseID, ok := expenseIDParam(c, logger)
	if !ok {
		return
	}

	actions, err := h.expenseService.GetExpenseHistory(c.Request.Context(), expenseID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve history")
		return
	}
	c.JSON(http.StatusOK, dto.ToListExpenseActionsResponse(actions))
}

// approveExpense godoc
// @Summary Approve a submitted expense
// @Description Moves a SUBMITTED expense to APPROVED. Caller must be a MANAGER.
// @Tags expenses
// @Produce  json
// @Param   expenseID path int true "Expense ID"
// @Success 200 {object} dto.ExpenseResponse
// @Failure 400 {object} ErrorResponse "Invalid expense ID"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Caller is not a manager"
// @Failure 404 {object} ErrorResponse "Expense or caller not found"
// @Failure 409 {object} ErrorResponse "Expense is not SUBMITTED"
// @Failure 500 {object} ErrorResponse "Failed to approve expense"
// @Security BearerAuth
// @Router /expenses/{expenseID}/approve [put]
func (h *expenseHandler) approveExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := callerID(c, logger)
	if !ok {
		return
	}
	expenseID, ok := expenseIDParam(c, logger)
	if !ok {
		return
	}

	expense, err := h.expenseService.ApproveExpense(c.Request.Context(), userID, expenseID)
	if err != nil {
		respondError(c, logger, err, "Failed to approve expense")
		return
	}
	c.JSON(http.StatusOK, expense)
}

// rejectExpense godoc
// @Summary Reject a submitted expense
// @Description Moves a SUBMITTED expense to REJECTED. Caller must be a MANAGER. The body is optional.
// @Tags expenses
// @Accept  json
// @Produce  json
// @Param   expenseID path int true "Expense ID"
// @Param   body body dto.RejectExpenseRequest false "Rejection reason"
// @Success 200 {object} dto.ExpenseResponse
// @Failure 400 {object} ErrorResponse "Invalid expense ID or body"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Caller is not a manager"
// @Failure 404 {object} ErrorResponse "Expense or caller not found"
// @Failure 409 {object} ErrorResponse "Expense is not SUBMITTED"
// @Failure 500 {object} ErrorResponse "Failed to reject expense"
// @Security BearerAuth
// @Router /expenses/{expenseID}/reject [put]
func (h *expenseHandler) rejectExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := callerID(c, logger)
	if !ok {
		return
	}
	expenseID, ok := expenseIDParam(c, logger)
	if !ok {
		return
	}

	var req dto.RejectExpenseRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		logger.Warn("Failed to bind JSON for RejectExpense", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingErrorMessage(err)})
		return
	}

	expense, err := h.expenseService.RejectExpense(c.Request.Context(), userID, expenseID, req.Reason)
	if err != nil {
		respondError(c, logger, err, "Failed to reject expense")
		return
	}
	c.JSON(http.StatusOK, expense)
}

// reimburseExpense godoc
// @Summary Reimburse an approved expense
// @Description Moves an APPROVED expense to REIMBURSED. Caller must be FINANCE. The body is optional.
// @Tags expenses
// @Accept  json
// @Produce  json
// @Param   expenseID path int true "Expense ID"
// @Param   body body dto.ReimburseExpenseRequest false "Payment comment"
// @Success 200 {object} dto.ExpenseResponse
// @Failure 400 {object} ErrorResponse "Invalid expense ID or body"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Caller is not finance"
// @Failure 404 {object} ErrorResponse "Expense or caller not found"
// @Failure 409 {object} ErrorResponse "Expense is not APPROVED"
// @Failure 500 {object} ErrorResponse "Failed to reimburse expense"
// @Security BearerAuth
// @Router /expenses/{expenseID}/reimburse [put]
func (h *expenseHandler) reimburseExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := callerID(c, logger)
	if !ok {
		return
	}
	expenseID, ok := expenseIDParam(c, logger)
	if !ok {
		return
	}

	var req dto.ReimburseExpenseRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		logger.Warn("Failed to bind JSON for ReimburseExpense", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingErrorMessage(err)})
		return
	}

	expense, err := h.expenseService.ReimburseExpense(c.Request.Context(), userID, expenseID, req.Comment)
	if err != nil {
		respondError(c, logger, err, "Failed to reimburse expense")
		return
	}
	c.JSON(http.StatusOK, expense)
}

// exportExpenses godoc
// @Summary Export expenses as a spreadsheet
// @Description Builds an xlsx workbook of expenses and their audit trail. Caller must be a MANAGER or FINANCE.
// @Tags expenses
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param   status query string false "Only export expenses in this status" Enums(SUBMITTED, APPROVED, REJECTED, REIMBURSED)
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse "Invalid query parameters"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Caller may not export"
// @Failure 500 {object} ErrorResponse "Failed to export expenses"
// @Security BearerAuth
// @Router /expenses/export [get]
func (h *expenseHandler) exportExpenses(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := callerID(c, logger)
	if !ok {
		return
	}

	var params dto.ExportExpensesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ExportExpenses", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingErrorMessage(err)})
		return
	}
	var status *domain.ExpenseStatus
	if params.Status != nil {
		s := domain.ExpenseStatus(*params.Status)
		status = &s
	}

	// Buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.exportService.ExportExpenses(c.Request.Context(), userID, status, &buf); err != nil {
		respondError(c, logger, err, "Failed to export expenses")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
