package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error category. Callers use it to decide
// whether a failed booking request is worth retrying.
type Code string

const (
	CodeServerError      Code = "SERVER_ERROR"
	CodeNoSlot           Code = "NO_SLOT"
	CodeSlotConflict     Code = "SLOT_CONFLICT"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeNotFound         Code = "NOT_FOUND"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeInvalidOperation Code = "INVALID_OPERATION"
)

// AppError represents an application error
type AppError struct {
	Code    Code   `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
	Err     error  `json:"-"`
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

// StatusCode reports the HTTP status this error maps to.
func (e *AppError) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// Error constructors
func NewServerError(message string, err error) *AppError {
	return &AppError{
		Code:    CodeServerError,
		Status:  http.StatusInternalServerError,
		Message: message,
		Err:     err,
	}
}

func NewNoSlot(message string) *AppError {
	return &AppError{
		Code:    CodeNoSlot,
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

func NewSlotConflict(message string, err error) *AppError {
	return &AppError{
		Code:    CodeSlotConflict,
		Status:  http.StatusConflict,
		Message: message,
		Err:     err,
	}
}

func NewValidation(message string, err error) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Status:  http.StatusBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewNotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Status:  http.StatusUnauthorized,
		Message: message,
	}
}

func NewForbidden(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Status:  http.StatusForbidden,
		Message: message,
	}
}

func NewInvalidOperation(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidOperation,
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

// CodeOf extracts the error code, falling back to SERVER_ERROR for
// untyped errors.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
