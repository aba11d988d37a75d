package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the stable, user-visible category of a failure.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindAuth         ErrorKind = "auth"
	KindInvalidState ErrorKind = "invalid_state"
	KindProvider     ErrorKind = "provider"
	KindNotFound     ErrorKind = "not_found"
	KindPersistence  ErrorKind = "persistence"
)

// AppError carries a kind, a machine code and a human message. Err is the
// internal cause; it is logged but never returned to clients.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Status  int
	// Ambiguous marks provider failures where money may have moved anyway.
	Ambiguous bool
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// HTTPStatus maps the error to a response status.
func (e *AppError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindInvalidState:
		return http.StatusConflict
	case KindProvider:
		return http.StatusBadGateway
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func NewValidationError(code, message string) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Message: message}
}

func NewAuthError(code, message string) *AppError {
	return &AppError{Kind: KindAuth, Code: code, Message: message}
}

// NewForbiddenError is an auth error for an authenticated caller lacking rights.
func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindAuth, Code: "forbidden", Message: message, Status: http.StatusForbidden}
}

func NewInvalidStateError(code, message string) *AppError {
	return &AppError{Kind: KindInvalidState, Code: code, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Code: "not_found", Message: message}
}

func NewPersistenceError(message string, err error) *AppError {
	return &AppError{Kind: KindPersistence, Code: "persistence", Message: message, Err: err}
}

// NewProviderError wraps an external rail failure. Declined or non-success
// outcomes are reported as 400, transport failures as 502.
func NewProviderError(code, message string, declined bool, err error) *AppError {
	e := &AppError{Kind: KindProvider, Code: code, Message: message, Err: err}
	if declined {
		e.Status = http.StatusBadRequest
	}
	return e
}

// KindOf returns the kind of err, or KindPersistence for unclassified errors.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPersistence
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
