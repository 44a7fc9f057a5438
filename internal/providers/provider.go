// Package providers provides interfaces and types for external data provider
// adapters.
//
// Each external source (bibliographic database, chemical database, library
// catalog) implements the Provider interface. Adapters are pure and
// stateless: given a query and pagination cursor they perform one network
// request and return either a normalized batch of records or a typed
// failure. Normalization into domain.Record happens inside the adapter, so
// the aggregation engine never re-inspects provider-specific shapes.
package providers

import (
	"context"
	"time"

	"github.com/emrah1982/yayinpinari/internal/domain"
)

// SearchParams defines the parameters for one provider search.
type SearchParams struct {
	// Query is the search query string (required). The interpretation is
	// provider-specific and out of the engine's scope.
	Query string

	// Page is the 1-based page number. A value of 0 is treated as 1.
	Page int

	// PageSize limits the number of records returned. Providers may apply
	// their own maximum. A value of 0 uses the provider's default.
	PageSize int
}

// Offset returns the zero-based record offset for the page.
func (p SearchParams) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.PageSize
}

// SearchResult contains the normalized results of one provider search.
type SearchResult struct {
	// Records contains the normalized records in the provider's response
	// order. May be empty.
	Records []*domain.Record

	// TotalResults is the total number of matches reported by the provider,
	// which may be an estimate. Zero when the provider reports none.
	TotalResults int

	// Provider identifies which adapter produced these results.
	Provider string

	// Duration is the time taken to execute the search, including network
	// latency and response parsing.
	Duration time.Duration
}

// Provider is the contract every external source adapter implements.
type Provider interface {
	// Search queries the source for records matching the given parameters.
	// Implementations must respect context cancellation, apply their own
	// rate limiting, normalize responses to domain.Record, and classify
	// failures into *domain.ProviderError.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// ID returns the stable identifier used for routing and attribution.
	ID() string

	// Name returns a human-readable name for logging and display.
	Name() string

	// IsEnabled reports whether this provider is available for searches.
	// A provider may be disabled by configuration or a missing API key.
	IsEnabled() bool
}
