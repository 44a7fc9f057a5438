// Package domain provides the domain models shared by the aggregation engine.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is a normalized search hit from any provider.
//
// Identity is the (ID, SourceProvider) pair and never changes after creation.
// CitationInfo is the only field mutated after creation, and only by the
// enrichment correlator; a nil CitationInfo means "not yet enriched".
type Record struct {
	// ID is unique within one aggregation run. It is provider-assigned
	// where the provider exposes a stable identifier, otherwise synthesized.
	ID string `json:"id"`

	// Title is required. Providers that return no title get "unknown";
	// the field is never empty.
	Title string `json:"title"`

	// Authors preserves the provider's author order. May be empty.
	Authors []string `json:"authors,omitempty"`

	// Abstract is the abstract or summary text, if the provider supplies one.
	Abstract string `json:"abstract,omitempty"`

	// PublishedDate is loosely formatted (year-only or a full date).
	// The engine never parses it for ordering.
	PublishedDate string `json:"published_date,omitempty"`

	// SourceProvider identifies the adapter that produced this record.
	SourceProvider string `json:"source_provider"`

	// ExternalURL points at the provider's landing page for the item.
	ExternalURL string `json:"external_url,omitempty"`

	// DOI is the digital object identifier, normalized to lowercase.
	DOI string `json:"doi,omitempty"`

	// SubjectTerms holds the provider's declared subject/keyword terms,
	// used by the similarity scorer. May be empty.
	SubjectTerms []string `json:"subject_terms,omitempty"`

	// CitationInfo is attached by the enrichment correlator. Nil until then.
	CitationInfo *CitationInfo `json:"citation_info,omitempty"`
}

// CitationInfo holds the enrichment result for one record.
// Immutable once attached.
type CitationInfo struct {
	// CitationCount is the number of citations. Never negative.
	CitationCount int `json:"citation_count"`

	// HIndex is the lead author's h-index where the metrics service
	// reports one.
	HIndex *int `json:"h_index,omitempty"`

	// Sources names the services that contributed the metric.
	// Non-empty whenever CitationInfo is present.
	Sources []string `json:"sources"`

	// IsEstimated distinguishes synthesized/fallback metrics from real ones.
	IsEstimated bool `json:"is_estimated"`

	// LastUpdated is when the metric was fetched.
	LastUpdated time.Time `json:"last_updated"`
}

// IsEnriched reports whether citation metrics have been attached.
func (r *Record) IsEnriched() bool {
	return r.CitationInfo != nil
}

// PublishedYear extracts a four-digit year from PublishedDate.
// Returns 0 when no year can be parsed.
func (r *Record) PublishedYear() int {
	return ParseYear(r.PublishedDate)
}

// ParseYear extracts the first four-digit year from a loosely formatted
// date string ("2021", "2021-03-15", "March 2021"). Returns 0 on failure.
func ParseYear(date string) int {
	digits := 0
	year := 0
	for _, r := range date {
		if r >= '0' && r <= '9' {
			year = year*10 + int(r-'0')
			digits++
			if digits == 4 {
				if year >= 1000 {
					return year
				}
				digits, year = 0, 0
			}
		} else {
			digits, year = 0, 0
		}
	}
	return 0
}

// NewRecordID synthesizes a record ID for providers that assign none.
func NewRecordID() string {
	return uuid.NewString()
}

// NormalizeDOI lowercases a DOI and strips common URL prefixes.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(strings.ToLower(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return doi
}
