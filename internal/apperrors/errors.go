package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a referenced user or expense could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrForbidden indicates that the actor's role does not permit the requested transition.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidState indicates that the expense is not in the state the transition requires.
var ErrInvalidState = errors.New("invalid expense state")

// ErrInternal indicates a data-integrity violation or an unexpected failure.
var ErrInternal = errors.New("internal error")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates that the caller could not be identified.
var ErrUnauthorized = errors.New("unauthorized")

// ErrStaleVersion is returned by stores when a version-guarded write lost a race.
var ErrStaleVersion = errors.New("stale version")

// AppError wraps an infrastructure failure with a status-like code and a message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}
