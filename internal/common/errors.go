// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Sync errors.
	ErrPrecondition = errors.New("account not eligible for sync")
	ErrAuthExpired  = errors.New("provider credentials expired")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrConnection   = errors.New("provider connection failed")

	// Webhook errors.
	ErrWebhookValidation = errors.New("webhook validation failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry. Auth failures
// are terminal: they require user action, not another attempt.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrAuthExpired) {
		return false
	}

	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrConnection) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
