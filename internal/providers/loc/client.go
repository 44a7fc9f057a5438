package loc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/providers"
)

const (
	// ProviderID is the stable identifier for this adapter.
	ProviderID = "loc"

	// DefaultBaseURL is the default base URL for the LOC search API.
	DefaultBaseURL = "https://www.loc.gov"

	// DefaultRateLimit keeps well under LOC's burst limits.
	DefaultRateLimit = 2.0

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum catalog entries per page.
	DefaultMaxResults = 25

	// sourceName is the human-readable name for this provider.
	sourceName = "Library of Congress"
)

// Config contains configuration options for the LOC client.
type Config struct {
	// BaseURL is the base URL for the API. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to DefaultRateLimit.
	RateLimit float64

	// MaxResults caps the page size sent upstream. Defaults to DefaultMaxResults.
	MaxResults int

	// Enabled indicates whether this provider is enabled.
	Enabled bool
}

// Client implements the providers.Provider interface for the LOC catalog.
type Client struct {
	httpClient *providers.HTTPClient
	config     Config
}

// Compile-time check that Client implements providers.Provider.
var _ providers.Provider = (*Client)(nil)

// NewClient creates a new LOC client with the given configuration.
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
		httpClient = providers.NewHTTPClient(providers.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: 2,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Search queries the LOC catalog for entries matching the given parameters.
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
		Records:      c.normalize(searchResp.Results),
		TotalResults: searchResp.Pagination.Total,
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

// buildSearchURL constructs the search URL with query parameters.
func (c *Client) buildSearchURL(params providers.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("search")

	q := searchURL.Query()
	q.Set("q", params.Query)
	q.Set("fo", "json")

	count := params.PageSize
	if count <= 0 || count > c.config.MaxResults {
		count = c.config.MaxResults
	}
	q.Set("c", strconv.Itoa(count))

	page := params.Page
	if page < 1 {
		page = 1
	}
	q.Set("sp", strconv.Itoa(page))

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// normalize converts LOC catalog entries into domain records.
func (c *Client) normalize(items []Item) []*domain.Record {
	records := make([]*domain.Record, 0, len(items))
	for _, item := range items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "unknown"
		}

		id := item.ID
		if id == "" {
			id = domain.NewRecordID()
		}

		var abstract string
		if len(item.Description) > 0 {
			abstract = strings.Join(item.Description, " ")
		}

		records = append(records, &domain.Record{
			ID:             id,
			Title:          title,
			Authors:        item.Contributor,
			Abstract:       abstract,
			PublishedDate:  item.Date,
			SourceProvider: ProviderID,
			ExternalURL:    item.URL,
			SubjectTerms:   item.Subject,
		})
	}
	return records
}
