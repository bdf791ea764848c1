package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrValidation
	ErrConflict
	ErrTransient
	ErrExhausted
	ErrAlreadyCompleted
	ErrInternal
)

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
		Err:     err,
	}
}

// Conflict records a remote copy newer than the local one at upload time.
// Resolved by the sync policy, never surfaced as a hard failure.
func Conflict(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
		Err:     err,
	}
}

func Transient(message string, err error) *AppError {
	return &AppError{
		Code:    ErrTransient,
		Message: message,
		Err:     err,
	}
}

// Exhausted marks an outbox entry past its retry ceiling. Escalated, never dropped.
func Exhausted(message string, err error) *AppError {
	return &AppError{
		Code:    ErrExhausted,
		Message: message,
		Err:     err,
	}
}

func AlreadyCompleted(resource string) *AppError {
	return &AppError{
		Code:    ErrAlreadyCompleted,
		Message: fmt.Sprintf("%s is already completed", resource),
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal error",
		Err:     err,
	}
}

func codeOf(err error) (ErrorCode, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code, true
	}
	return 0, false
}

func IsNotFound(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrNotFound
}

func IsValidation(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrValidation
}

func IsConflict(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrConflict
}

func IsTransient(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrTransient
}

func IsExhausted(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrExhausted
}

func IsAlreadyCompleted(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrAlreadyCompleted
}
