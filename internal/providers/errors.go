package providers

import (
	"context"
	"errors"

	"github.com/emrah1982/yayinpinari/internal/domain"
)

// ClassifyTransportError maps a transport-level failure from the HTTP client
// into a typed provider error. Caller-initiated cancellation is passed
// through untouched so the dispatcher can distinguish it from real failures.
func ClassifyTransportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewProviderError(provider, domain.ErrorKindTimeout, "request deadline exceeded", err)
	}
	var rlErr *domain.RateLimitError
	if errors.As(err, &rlErr) {
		return domain.NewProviderError(provider, domain.ErrorKindRateLimited, rlErr.Error(), err)
	}
	return domain.NewProviderError(provider, domain.ErrorKindUnreachable, "request failed", err)
}
