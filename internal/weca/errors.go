package weca

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies a failed feed request.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorUnavailable    ErrorCategory = "unavailable"
	ErrorAuthentication ErrorCategory = "auth"
	ErrorBadData        ErrorCategory = "bad_data"
)

// APIError is a failed call to the WECA API.
type APIError struct {
	Category   ErrorCategory
	Message    string
	Underlying error
}

func (e *APIError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("weca %s: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("weca %s: %s", e.Category, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Underlying
}

func newAPIError(category ErrorCategory, message string, underlying error) *APIError {
	return &APIError{Category: category, Message: message, Underlying: underlying}
}

// GetCategory extracts the category from err, or "" when err is not an
// APIError.
func GetCategory(err error) ErrorCategory {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ""
}
