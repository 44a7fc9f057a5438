package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/providers"
)

const (
	// ProviderID is the stable identifier for this adapter.
	ProviderID = "crossref"

	// DefaultBaseURL is the default base URL for the Crossref REST API.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the polite rate limit in requests per second.
	DefaultRateLimit = 10.0

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum page size (Crossref caps rows at 1000).
	DefaultMaxResults = 50

	// sourceName is the human-readable name for this provider.
	sourceName = "Crossref"
)

// jatsTagPattern strips JATS XML markup from Crossref abstracts.
var jatsTagPattern = regexp.MustCompile(`<[^>]+>`)

// Config contains configuration options for the Crossref client.
type Config struct {
	// BaseURL is the base URL for the API. Defaults to DefaultBaseURL.
	BaseURL string

	// Mailto is included in the User-Agent per Crossref etiquette to join
	// the polite pool.
	Mailto string

	// APIKey is a Crossref Metadata Plus token, sent as the
	// Crossref-Plus-API-Token header.
	APIKey string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to DefaultRateLimit.
	RateLimit float64

	// MaxResults caps the page size sent upstream. Defaults to DefaultMaxResults.
	MaxResults int

	// Enabled indicates whether this provider is enabled.
	Enabled bool
}

// Client implements the providers.Provider interface for Crossref.
type Client struct {
	httpClient *providers.HTTPClient
	config     Config
}

// Compile-time check that Client implements providers.Provider.
var _ providers.Provider = (*Client)(nil)

// NewClient creates a new Crossref client with the given configuration.
// If httpClient is nil, one is created from the configuration settings.
func NewClient(cfg Config, httpClient *providers.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}

	if httpClient == nil {
		userAgent := "Yayinpinari/1.0"
		if cfg.Mailto != "" {
			userAgent = fmt.Sprintf("Yayinpinari/1.0 (mailto:%s)", cfg.Mailto)
		}
		httpClient = providers.NewHTTPClient(providers.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    int(cfg.RateLimit),
			UserAgent:    userAgent,
			APIKey:       cfg.APIKey,
			APIKeyHeader: "Crossref-Plus-API-Token",
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Search queries Crossref for works matching the given parameters.
func (c *Client) Search(ctx context.Context, params providers.SearchParams) (*providers.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, domain.NewProviderError(ProviderID, domain.ErrorKindHTTP, "building search URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, domain.NewProviderError(ProviderID, domain.ErrorKindHTTP, "creating request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.ClassifyTransportError(ProviderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, &domain.ProviderError{
			Provider:   ProviderID,
			Kind:       domain.ClassifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	// Limit the body to 10MB to prevent resource exhaustion.
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, domain.NewProviderError(ProviderID, domain.ErrorKindHTTP, "decoding response", err)
	}

	return &providers.SearchResult{
		Records:      c.normalize(searchResp.Message.Items),
		TotalResults: searchResp.Message.TotalResults,
		Provider:     ProviderID,
		Duration:     time.Since(start),
	}, nil
}

// ID returns the provider identifier.
func (c *Client) ID() string {
	return ProviderID
}

// Name returns the human-readable name for this provider.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this provider is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// buildSearchURL constructs the works search URL with query parameters.
func (c *Client) buildSearchURL(params providers.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("works")

	q := searchURL.Query()
	q.Set("query", params.Query)

	rows := params.PageSize
	if rows <= 0 || rows > c.config.MaxResults {
		rows = c.config.MaxResults
	}
	q.Set("rows", strconv.Itoa(rows))

	if offset := params.Offset(); offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	if c.config.Mailto != "" {
		q.Set("mailto", c.config.Mailto)
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// normalize converts Crossref works into domain records.
func (c *Client) normalize(items []Work) []*domain.Record {
	records := make([]*domain.Record, 0, len(items))
	for _, item := range items {
		records = append(records, c.normalizeWork(item))
	}
	return records
}

// normalizeWork converts a single Crossref work into a domain record.
func (c *Client) normalizeWork(w Work) *domain.Record {
	title := "unknown"
	if len(w.Title) > 0 && strings.TrimSpace(w.Title[0]) != "" {
		title = strings.TrimSpace(w.Title[0])
	}

	doi := domain.NormalizeDOI(w.DOI)
	id := doi
	if id == "" {
		id = domain.NewRecordID()
	}

	authors := make([]string, 0, len(w.Author))
	for _, a := range w.Author {
		name := formatAuthor(a)
		if name != "" {
			authors = append(authors, name)
		}
	}

	subjects := w.Subject
	if len(subjects) == 0 && len(w.ContainerTitle) > 0 {
		subjects = []string{w.ContainerTitle[0]}
	}

	return &domain.Record{
		ID:             id,
		Title:          title,
		Authors:        authors,
		Abstract:       stripJATS(w.Abstract),
		PublishedDate:  formatIssued(w.Issued),
		SourceProvider: ProviderID,
		ExternalURL:    w.URL,
		DOI:            doi,
		SubjectTerms:   subjects,
	}
}

// formatAuthor renders a Crossref contributor as "Given Family", falling
// back to the organization name field for corporate authors.
func formatAuthor(a Author) string {
	switch {
	case a.Given != "" && a.Family != "":
		return a.Given + " " + a.Family
	case a.Family != "":
		return a.Family
	default:
		return strings.TrimSpace(a.Name)
	}
}

// formatIssued renders Crossref date-parts as "YYYY", "YYYY-MM", or
// "YYYY-MM-DD" depending on how much the provider supplied.
func formatIssued(d DateParts) string {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return ""
	}
	parts := d.DateParts[0]
	switch len(parts) {
	case 1:
		return fmt.Sprintf("%04d", parts[0])
	case 2:
		return fmt.Sprintf("%04d-%02d", parts[0], parts[1])
	default:
		return fmt.Sprintf("%04d-%02d-%02d", parts[0], parts[1], parts[2])
	}
}

// stripJATS removes JATS XML markup that Crossref embeds in abstracts.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	cleaned := jatsTagPattern.ReplaceAllString(abstract, " ")
	return strings.Join(strings.Fields(cleaned), " ")
}
