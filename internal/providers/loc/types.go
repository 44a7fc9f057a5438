// Package loc provides a provider adapter for the Library of Congress
// search API.
//
// API Documentation: https://www.loc.gov/apis/json-and-yaml/
package loc

// SearchResponse represents the top-level response from the LOC search endpoint.
type SearchResponse struct {
	Results    []Item     `json:"results"`
	Pagination Pagination `json:"pagination"`
}

// Pagination contains result paging information.
type Pagination struct {
	Total   int `json:"of"`
	Current int `json:"current"`
	PerPage int `json:"perpage"`
}

// Item represents one catalog entry in an LOC response.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Contributor []string `json:"contributor"`
	Date        string   `json:"date"`
	Description []string `json:"description"`
	URL         string   `json:"url"`
	Subject     []string `json:"subject"`
}
