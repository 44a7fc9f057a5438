package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/providers"
)

const (
	// ProviderID is the stable identifier for this adapter.
	ProviderID = "openalex"

	// DefaultBaseURL is the default base URL for the OpenAlex API.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the polite-pool rate limit in requests per second.
	DefaultRateLimit = 10.0

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum page size.
	DefaultMaxResults = 50

	// sourceName is the human-readable name for this provider.
	sourceName = "OpenAlex"
)

// Config contains configuration options for the OpenAlex client.
type Config struct {
	// BaseURL is the base URL for the API. Defaults to DefaultBaseURL.
	BaseURL string

	// Mailto is included in requests to join OpenAlex's polite pool.
	Mailto string

	// APIKey is an OpenAlex Premium key, sent as the api_key query parameter.
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

// Client implements the providers.Provider interface for OpenAlex.
type Client struct {
	httpClient *providers.HTTPClient
	config     Config
}

// Compile-time check that Client implements providers.Provider.
var _ providers.Provider = (*Client)(nil)

// NewClient creates a new OpenAlex client with the given configuration.
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
			BurstSize: int(cfg.RateLimit),
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Search queries OpenAlex for works matching the given parameters.
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

	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	// Limit the body to 10MB to prevent resource exhaustion.
	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&searchResp); err != nil {
		return nil, domain.NewProviderError(ProviderID, domain.ErrorKindHTTP, "decoding response", err)
	}

	return &providers.SearchResult{
		Records:      c.normalize(searchResp.Results),
		TotalResults: searchResp.Meta.Count,
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
	q.Set("search", params.Query)

	perPage := params.PageSize
	if perPage <= 0 || perPage > c.config.MaxResults {
		perPage = c.config.MaxResults
	}
	q.Set("per-page", strconv.Itoa(perPage))

	page := params.Page
	if page < 1 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))

	if c.config.Mailto != "" {
		q.Set("mailto", c.config.Mailto)
	}
	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// handleErrorResponse checks for API errors and returns classified errors.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	message := string(body)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Message != "" {
			message = errResp.Message
		} else if errResp.Error != "" {
			message = errResp.Error
		}
	}

	return &domain.ProviderError{
		Provider:   ProviderID,
		Kind:       domain.ClassifyStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// normalize converts OpenAlex works into domain records.
func (c *Client) normalize(works []Work) []*domain.Record {
	records := make([]*domain.Record, 0, len(works))
	for _, w := range works {
		records = append(records, c.normalizeWork(w))
	}
	return records
}

// normalizeWork converts a single OpenAlex work into a domain record.
func (c *Client) normalizeWork(w Work) *domain.Record {
	title := w.Title
	if title == "" {
		title = w.DisplayName
	}
	if title == "" {
		title = "unknown"
	}

	id := strings.TrimPrefix(w.ID, "https://openalex.org/")
	if id == "" {
		id = domain.NewRecordID()
	}

	authors := make([]string, 0, len(w.Authorships))
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			authors = append(authors, a.Author.DisplayName)
		}
	}

	published := w.PublicationDate
	if published == "" && w.PublicationYear > 0 {
		published = strconv.Itoa(w.PublicationYear)
	}

	var externalURL string
	if w.PrimaryLocation != nil {
		externalURL = w.PrimaryLocation.LandingPageURL
	}
	if externalURL == "" && w.ID != "" {
		externalURL = w.ID
	}

	subjects := make([]string, 0, len(w.Concepts))
	for _, concept := range w.Concepts {
		if concept.DisplayName != "" {
			subjects = append(subjects, concept.DisplayName)
		}
	}

	return &domain.Record{
		ID:             id,
		Title:          title,
		Authors:        authors,
		Abstract:       reconstructAbstract(w.AbstractInvertedIndex),
		PublishedDate:  published,
		SourceProvider: ProviderID,
		ExternalURL:    externalURL,
		DOI:            domain.NormalizeDOI(w.DOI),
		SubjectTerms:   subjects,
	}
}

// reconstructAbstract rebuilds abstract text from OpenAlex's inverted index
// format, which maps words to their positions in the original text.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}

	// Guard against malicious payloads with excessive position entries.
	const maxAbstractWords = 100_000
	totalPairs := 0
	for _, positions := range invertedIndex {
		totalPairs += len(positions)
	}
	if totalPairs > maxAbstractWords {
		return ""
	}

	pairs := make([]posWord, 0, totalPairs)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	var builder strings.Builder
	builder.Grow(totalPairs * 7)
	for i, pair := range pairs {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(pair.word)
	}

	return builder.String()
}
