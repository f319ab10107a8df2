/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and includes a business code, a user-friendly message, and an HTTP status code for unified error reporting.
Two CustomErrors with the same code match under errors.Is, so callers can compare against
NewError(code) or use HasCode.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the standard HTTP status code corresponding to this error.
	Status int

	// cause is the internal error, logged but never shown to clients.
	cause error
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("Error Code %d (HTTP %d): %s: %v", e.Code, e.Status, e.Message, e.cause)
	}
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Is reports whether target is a CustomError carrying the same code.
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Unwrap exposes the internal cause.
func (e *CustomError) Unwrap() error {
	return e.cause
}

// NewError constructs a new *CustomError from a predefined error code.
// The optional details are printf arguments for message templates containing a verb.
// An unknown code yields ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	}

	return &customErr
}

// Wrap builds the error for code and attaches cause for logging.
func Wrap(code int, cause error) *CustomError {
	customErr := NewError(code)
	customErr.cause = cause
	return customErr
}

// HasCode reports whether err is, or wraps, a CustomError with the given code.
func HasCode(err error, code int) bool {
	var customErr *CustomError
	if !errors.As(err, &customErr) {
		return false
	}
	return customErr.Code == code
}
