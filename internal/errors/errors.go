package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes used across the application
const (
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeNotFound      = "NOT_FOUND"
	CodeInternal      = "INTERNAL_ERROR"
	CodeAborted       = "ABORTED"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	code := CodeInternal
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		code = appErr.Code
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// ConfigInvalid creates a configuration validation error
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// ConfigInvalidf creates a configuration validation error with a formatted message
func ConfigInvalidf(format string, args ...interface{}) *AppError {
	return New(CodeConfigInvalid, fmt.Sprintf(format, args...))
}

// NotFound creates a not found error
func NotFound(what string) *AppError {
	return New(CodeNotFound, what+" not found")
}

// GetCode returns the code of the outermost AppError in the chain, or "" if there is none
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code
func Is(err error, code string) bool {
	return GetCode(err) == code
}

// Aborted marks err as a cancelled operation
func Aborted(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: CodeAborted, Message: message, Cause: err}
}
