// Package apperrors defines the error taxonomy shared across the engine.
//
// Sentinel errors are matched with errors.Is at the HTTP boundary to pick a
// status code. SecurityError carries the validator's rejection message and is
// never downgraded to a generic failure.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConnectionNotFound indicates a connection id that is neither live
	// in memory nor recoverable from the durable catalog.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrDatasetNotProcessed indicates a dataset whose vector collection
	// holds zero documents. A distinguished outcome, not a system fault.
	ErrDatasetNotProcessed = errors.New("dataset not processed yet or no data found")

	// ErrNoDataSources indicates a user with no registered CSV files and no
	// registered SQL connections attempted a unified query.
	ErrNoDataSources = errors.New("no data sources available")
)

// ValidationError reports missing or malformed request fields.
// Caller-visible, never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// SecurityError reports a SQL validator rejection. Always fatal to the
// operation that triggered it.
type SecurityError struct {
	Message string
}

func (e *SecurityError) Error() string {
	return e.Message
}

// NewSecurityError builds a SecurityError from the validator's message.
func NewSecurityError(message string) *SecurityError {
	return &SecurityError{Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsSecurity reports whether err is a SecurityError.
func IsSecurity(err error) bool {
	var se *SecurityError
	return errors.As(err, &se)
}
