package server

import (
	"errors"
	"time"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/scoring"
)

// Stream event wire types.

// streamEvent is one SSE payload on the search stream. A data event carries
// Source and Data, an error event carries Source and Error, and the final
// event of a stream carries Completed alone.
type streamEvent struct {
	Source    string          `json:"source,omitempty"`
	Data      *sourcePayload  `json:"data,omitempty"`
	Error     *errorPayload   `json:"error,omitempty"`
	Completed bool            `json:"completed,omitempty"`
	Summary   *summaryPayload `json:"summary,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// sourcePayload carries one provider's records.
type sourcePayload struct {
	Success      bool             `json:"success"`
	Data         []*domain.Record `json:"data"`
	TotalResults int              `json:"total_results"`
}

// errorPayload describes one provider's failure.
type errorPayload struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
}

// summaryPayload accompanies the terminal event.
type summaryPayload struct {
	HistoryID       string   `json:"history_id,omitempty"`
	RecordCount     int      `json:"record_count"`
	FailedProviders []string `json:"failed_providers,omitempty"`
	Duration        string   `json:"duration"`
}

// Request/response types for the JSON endpoints.

type providerInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type listProvidersResponse struct {
	Providers []providerInfo `json:"providers"`
}

type enrichRequest struct {
	Records []*domain.Record `json:"records" validate:"required,min=1,max=500,dive,required"`
}

type enrichResponse struct {
	Records       []*domain.Record `json:"records"`
	EnrichedCount int              `json:"enriched_count"`

	// EnrichmentError is set when the whole citation batch failed; the
	// records come back unchanged rather than the request erroring.
	EnrichmentError string `json:"enrichment_error,omitempty"`
}

type similarRequest struct {
	Reference  *domain.Record   `json:"reference" validate:"required"`
	Candidates []*domain.Record `json:"candidates" validate:"required,min=1,dive,required"`
	MinScore   *float64         `json:"min_score" validate:"omitempty,gte=0,lte=1"`
}

type similarResponse struct {
	Matches []scoring.Match `json:"matches"`
	Total   int             `json:"total"`
}

// errorToPayload converts a dispatch failure into its wire form.
func errorToPayload(err error) *errorPayload {
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		return &errorPayload{
			Kind:       string(provErr.Kind),
			Message:    provErr.Message,
			StatusCode: provErr.StatusCode,
		}
	}
	return &errorPayload{Kind: "internal", Message: err.Error()}
}
