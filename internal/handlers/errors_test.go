package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/SscSPs/expense_reimbursement_app/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: amount", apperrors.ErrValidation), http.StatusBadRequest},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("%w: only MANAGER can approve expenses", apperrors.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", apperrors.ErrNotFound), http.StatusNotFound},
		{apperrors.ErrInvalidState, http.StatusConflict},
		{apperrors.ErrDuplicate, http.StatusConflict},
		{apperrors.ErrInternal, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}
