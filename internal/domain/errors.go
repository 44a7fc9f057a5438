package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that an upstream service rate limited us.
	ErrRateLimited = errors.New("rate limited")

	// ErrProviderUnavailable indicates that an external provider is unreachable.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrUnknownProvider indicates a provider id the dispatcher cannot route.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrEnrichmentFailed indicates that an entire citation batch call failed.
	ErrEnrichmentFailed = errors.New("enrichment batch failed")

	// ErrCancelled indicates a caller-initiated abort. Not reported to end users.
	ErrCancelled = errors.New("cancelled")
)

// ErrorKind classifies a provider failure so the caller can render a
// specific message. Kinds are isolated and non-fatal to sibling providers.
type ErrorKind string

const (
	ErrorKindTimeout         ErrorKind = "provider_timeout"
	ErrorKindUnreachable     ErrorKind = "provider_unreachable"
	ErrorKindHTTP            ErrorKind = "provider_http_error"
	ErrorKindAuth            ErrorKind = "provider_auth_failed"
	ErrorKindNotFound        ErrorKind = "provider_not_found"
	ErrorKindRateLimited     ErrorKind = "provider_rate_limited"
	ErrorKindUnknownProvider ErrorKind = "unknown_provider"
)

// ProviderError is a typed failure from one provider for one dispatch cycle.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// Unwrap returns the underlying cause, or the matching sentinel when the
// failure was classified without a distinct cause.
func (e *ProviderError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	switch e.Kind {
	case ErrorKindRateLimited:
		return ErrRateLimited
	case ErrorKindUnreachable, ErrorKindTimeout:
		return ErrProviderUnavailable
	case ErrorKindNotFound:
		return ErrNotFound
	case ErrorKindUnknownProvider:
		return ErrUnknownProvider
	}
	return nil
}

// NewProviderError creates a ProviderError with a cause.
func NewProviderError(provider string, kind ErrorKind, message string, cause error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     kind,
		Message:  message,
		Cause:    cause,
	}
}

// ClassifyStatus maps an upstream HTTP status code to an error kind.
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrorKindAuth
	case status == 404:
		return ErrorKindNotFound
	case status == 429:
		return ErrorKindRateLimited
	default:
		return ErrorKindHTTP
	}
}

// RateLimitError provides details about a rate limit error.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
