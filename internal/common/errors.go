package common

import (
	"errors"
	"net/http"
)

// AppError is a domain failure carrying the HTTP shape it should take at the
// edge of the sale API.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ValidationError rejects checkout input: malformed lines, an unknown sale
// type, a location outside the configured shops.
func ValidationError(message string, cause error) *AppError {
	return &AppError{Code: "VALIDATION", Message: message, HTTPStatus: http.StatusBadRequest, Err: cause}
}

// UnauthorizedError covers every token failure with one outward message so the
// response never tells a caller why their token was rejected.
func UnauthorizedError(cause error) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: "missing or invalid token", HTTPStatus: http.StatusUnauthorized, Err: cause}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
