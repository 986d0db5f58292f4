// Package apperrors defines the typed errors shared by the entitlement engine
// and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeDependencyUnavailable ErrorType = "dependency_unavailable"
	ErrorTypeInvalidAccountState   ErrorType = "invalid_account_state"
	ErrorTypeValidation            ErrorType = "validation_error"
	ErrorTypeNotFound              ErrorType = "not_found"
	ErrorTypeConflict              ErrorType = "conflict"
	ErrorTypeUnauthorized          ErrorType = "unauthorized"
	ErrorTypeForbidden             ErrorType = "forbidden"
	ErrorTypePaymentRequired       ErrorType = "payment_required"
	ErrorTypeInternal              ErrorType = "internal_error"
)

type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func newError(t ErrorType, code int, message string, details []string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{Type: t, Message: message, Code: code, Details: detail}
}

// NewDependencyUnavailable wraps a storage or billing failure. Callers must
// surface it as "status unknown" and never as a missing subscription.
func NewDependencyUnavailable(message string, cause error) *AppError {
	e := newError(ErrorTypeDependencyUnavailable, http.StatusServiceUnavailable, message, nil)
	e.cause = cause
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

func NewInvalidAccountState(message string, details ...string) *AppError {
	return newError(ErrorTypeInvalidAccountState, http.StatusInternalServerError, message, details)
}

func NewValidationError(message string, details ...string) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, details)
}

func NewNotFoundError(message string, details ...string) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, details)
}

func NewConflictError(message string, details ...string) *AppError {
	return newError(ErrorTypeConflict, http.StatusConflict, message, details)
}

func NewUnauthorizedError(message string, details ...string) *AppError {
	return newError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, details)
}

func NewForbiddenError(message string, details ...string) *AppError {
	return newError(ErrorTypeForbidden, http.StatusForbidden, message, details)
}

func NewPaymentRequiredError(message string, details ...string) *AppError {
	return newError(ErrorTypePaymentRequired, http.StatusPaymentRequired, message, details)
}

func NewInternalError(message string, details ...string) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, details)
}

func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

func IsDependencyUnavailable(err error) bool {
	return isType(err, ErrorTypeDependencyUnavailable)
}

func IsInvalidAccountState(err error) bool {
	return isType(err, ErrorTypeInvalidAccountState)
}

func IsNotFound(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

func IsConflict(err error) bool {
	return isType(err, ErrorTypeConflict)
}
