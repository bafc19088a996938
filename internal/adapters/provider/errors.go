package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCategory normalizes downstream failures across providers.
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the provider returned a malformed body
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorRejected indicates the provider refused the request as invalid
	ErrorRejected ErrorCategory = "rejected"

	// ErrorProviderOutage indicates the provider is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates a failure on our side of the call
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps a downstream failure with its category. Message is
// short and safe to report in the per-service result.
type ProviderError struct {
	Category   ErrorCategory
	Provider   string
	Status     int
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.Provider, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.Provider, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a categorized error. Timeouts, outages and rate
// limiting are retryable.
func NewProviderError(category ErrorCategory, provider, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		Provider:   provider,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// FromStatus categorizes a non-2xx response.
func FromStatus(provider string, status int) *ProviderError {
	var category ErrorCategory
	switch {
	case status == http.StatusTooManyRequests:
		category = ErrorRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		category = ErrorAuthentication
	case status >= 500:
		category = ErrorProviderOutage
	default:
		category = ErrorRejected
	}
	pe := NewProviderError(category, provider, fmt.Sprintf("%s returned status %d", provider, status), nil)
	pe.Status = status
	return pe
}

// FromTransport categorizes an error that prevented a response.
func FromTransport(provider string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewProviderError(ErrorTimeout, provider, provider+" timed out", err)
	}
	return NewProviderError(ErrorProviderOutage, provider, provider+" unreachable", err)
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// PublicMessage returns text safe to put in a response envelope.
func PublicMessage(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return "delivery failed"
}
