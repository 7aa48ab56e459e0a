package authority

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy of authority calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the authority took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorUnavailable indicates a transport failure, throttling or a 5xx
	ErrorUnavailable ErrorCategory = "unavailable"

	// ErrorAuthentication indicates the API key was refused
	ErrorAuthentication ErrorCategory = "auth"

	// ErrorBadData indicates an unexpected status or malformed body
	ErrorBadData ErrorCategory = "bad_data"
)

// ProviderError wraps authority failures with a normalized category.
// Its message always starts with "authority <category>" so that
// core.MapError can give the submitter a matching code.
type ProviderError struct {
	Category   ErrorCategory
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("authority %s: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("authority %s: %s", e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a ProviderError. Timeouts and outages are
// retryable; authentication and data errors are not.
func NewProviderError(category ErrorCategory, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout || category == ErrorUnavailable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the category from err, or "" when err is not a
// ProviderError.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}
