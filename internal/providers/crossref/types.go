// Package crossref provides a provider adapter for the Crossref REST API.
//
// Crossref is the DOI registration agency for scholarly publishing; its
// works endpoint covers journal articles, books, and conference proceedings.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// SearchResponse represents the top-level response from the works endpoint.
type SearchResponse struct {
	Status  string  `json:"status"`
	Message Message `json:"message"`
}

// Message contains the result payload of a works query.
type Message struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}

// Work represents one work in a Crossref response. Titles and container
// titles arrive as arrays; the first element is the primary value.
type Work struct {
	DOI            string   `json:"DOI"`
	Title          []string `json:"title"`
	Author         []Author `json:"author"`
	Abstract       string   `json:"abstract"`
	Issued         DateParts `json:"issued"`
	URL            string   `json:"URL"`
	Subject        []string `json:"subject"`
	ContainerTitle []string `json:"container-title"`
	Type           string   `json:"type"`
}

// Author represents a work contributor.
type Author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

// DateParts holds Crossref's nested date representation:
// [[year, month, day]] with month and day optional.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}
