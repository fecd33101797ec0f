package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a request that cannot be served even after clamping.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyQuery signals a query that is empty after trimming.
	ErrEmptyQuery = fmt.Errorf("%w: query is empty", ErrInvalidInput)
	// ErrEmptyText signals an embedding request for blank text.
	ErrEmptyText = errors.New("text is empty")
	// ErrInvalidItem signals a catalog record that fails validation.
	ErrInvalidItem = errors.New("invalid item")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrRateLimited signals a rate limit hit at a provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding quota.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationFailed signals a text generation provider failure.
	ErrGenerationFailed = errors.New("text generation failed")
	// ErrProviderUnauthorized signals rejected provider credentials.
	ErrProviderUnauthorized = errors.New("provider unauthorized")
	// ErrProviderRejected signals a provider refusing the request itself (4xx other than auth and rate limit).
	ErrProviderRejected = errors.New("provider rejected request")
)

// InputError wraps ErrInvalidInput with the offending field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput.Error(), e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// NewInputError creates an input error for a field.
func NewInputError(field, reason string) error {
	return &InputError{Field: field, Reason: reason}
}

// IsTransient reports whether err is worth retrying at the provider call site.
// Quota and auth failures are permanent, rate limits and provider faults are not.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrProviderUnauthorized), errors.Is(err, ErrEmbeddingQuotaExceeded),
		errors.Is(err, ErrProviderRejected), errors.Is(err, ErrEmptyText), errors.Is(err, ErrInvalidInput):
		return false
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrEmbeddingProviderError), errors.Is(err, ErrGenerationFailed):
		return true
	default:
		return false
	}
}
