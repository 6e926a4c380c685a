package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies model call failures.
type ErrorType string

const (
	ErrorTypeAuth     ErrorType = "auth"
	ErrorTypeEndpoint ErrorType = "endpoint"
	ErrorTypeModel    ErrorType = "model"
	ErrorTypeParse    ErrorType = "parse"
	ErrorTypeUnknown  ErrorType = "unknown"
)

// Error is a structured model-call error with classification.
type Error struct {
	Type      ErrorType
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a structured model-call error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{Type: errType, Message: message, Retryable: retryable, Cause: cause}
}

// ClassifyError categorizes an arbitrary provider error. Rate limits and
// server-side failures are retryable; auth and model-selection failures are
// permanent.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return NewError(ErrorTypeAuth, "authentication failed", false, err)
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return NewError(ErrorTypeEndpoint, "rate limited", true, err)
	case strings.Contains(lower, "503") || strings.Contains(lower, "502") || strings.Contains(lower, "500") || strings.Contains(lower, "overloaded"):
		return NewError(ErrorTypeEndpoint, "server error", true, err)
	case strings.Contains(lower, "model") && strings.Contains(lower, "not"):
		return NewError(ErrorTypeModel, "model not available", false, err)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "timeout"):
		return NewError(ErrorTypeEndpoint, "endpoint unreachable", true, err)
	default:
		return NewError(ErrorTypeUnknown, "request failed", false, err)
	}
}
