package pubchem

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
	ProviderID = "pubchem"

	// DefaultBaseURL is the default base URL for the PUG REST API.
	DefaultBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"

	// DefaultRateLimit follows NCBI guidance of at most 5 requests per second.
	DefaultRateLimit = 5.0

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum compounds per page.
	DefaultMaxResults = 25

	// compoundProperties is the property list requested for each CID batch.
	compoundProperties = "Title,IUPACName,MolecularFormula,CanonicalSMILES"

	// sourceName is the human-readable name for this provider.
	sourceName = "PubChem"
)

// Config contains configuration options for the PubChem client.
type Config struct {
	// BaseURL is the base URL for the API. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to DefaultRateLimit.
	RateLimit float64

	// MaxResults caps the compounds returned per page. Defaults to DefaultMaxResults.
	MaxResults int

	// Enabled indicates whether this provider is enabled.
	Enabled bool
}

// Client implements the providers.Provider interface for PubChem.
type Client struct {
	httpClient *providers.HTTPClient
	config     Config
}

// Compile-time check that Client implements providers.Provider.
var _ providers.Provider = (*Client)(nil)

// NewClient creates a new PubChem client with the given configuration.
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

// Search resolves the query to compound identifiers, then fetches the
// properties for the requested page of CIDs in one batch request.
// A name with no matching compounds is an empty result, not an error.
func (c *Client) Search(ctx context.Context, params providers.SearchParams) (*providers.SearchResult, error) {
	start := time.Now()

	cids, err := c.lookupCIDs(ctx, params.Query)
	if err != nil {
		return nil, err
	}

	pageSize := params.PageSize
	if pageSize <= 0 || pageSize > c.config.MaxResults {
		pageSize = c.config.MaxResults
	}

	// PUG REST does not paginate name lookups; the page is sliced client-side.
	offset := params.Offset()
	if offset >= len(cids) {
		return &providers.SearchResult{
			Records:      []*domain.Record{},
			TotalResults: len(cids),
			Provider:     ProviderID,
			Duration:     time.Since(start),
		}, nil
	}
	end := offset + pageSize
	if end > len(cids) {
		end = len(cids)
	}

	properties, err := c.fetchProperties(ctx, cids[offset:end])
	if err != nil {
		return nil, err
	}

	return &providers.SearchResult{
		Records:      c.normalize(properties),
		TotalResults: len(cids),
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

// lookupCIDs resolves a compound name to the list of matching CIDs.
func (c *Client) lookupCIDs(ctx context.Context, query string) ([]int64, error) {
	lookupURL := fmt.Sprintf("%s/compound/name/%s/cids/JSON",
		c.config.BaseURL, url.PathEscape(strings.TrimSpace(query)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, domain.NewProviderError(ProviderID, domain.ErrorKindHTTP, "creating request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.ClassifyTransportError(ProviderID, err)
	}
	defer resp.Body.Close()

	// PUG REST reports "no such compound" as 404 with a Fault payload.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := c.handleErrorResponse(resp); err != nil {
		return nil, err
	}

	var cidResp CIDResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&cidResp); err != nil {
		return nil, domain.NewProviderError(ProviderID, domain.ErrorKindHTTP, "decoding CID response", err)
	}

	return cidResp.IdentifierList.CID, nil
}

// fetchProperties fetches compound metadata for a batch of CIDs.
func (c *Client) fetchProperties(ctx context.Context, cids []int64) ([]CompoundProperties, error) {
	if len(cids) == 0 {
		return nil, nil
	}

	idList := make([]string, len(cids))
	for i, cid := range cids {
		idList[i] = strconv.FormatInt(cid, 10)
	}

	propsURL := fmt.Sprintf("%s/compound/cid/%s/property/%s/JSON",
		c.config.BaseURL, strings.Join(idList, ","), compoundProperties)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, propsURL, nil)
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

	var propResp PropertyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&propResp); err != nil {
		return nil, domain.NewProviderError(ProviderID, domain.ErrorKindHTTP, "decoding property response", err)
	}

	return propResp.PropertyTable.Properties, nil
}

// handleErrorResponse checks for PUG REST faults and returns classified errors.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	message := string(body)
	var fault FaultResponse
	if err := json.Unmarshal(body, &fault); err == nil && fault.Fault.Message != "" {
		message = fault.Fault.Message
		if len(fault.Fault.Details) > 0 {
			message += ": " + strings.Join(fault.Fault.Details, "; ")
		}
	}

	return &domain.ProviderError{
		Provider:   ProviderID,
		Kind:       domain.ClassifyStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// normalize converts PubChem compound properties into domain records.
// Compounds have no authors or publication date; the IUPAC name and
// molecular formula become subject terms for the similarity scorer.
func (c *Client) normalize(compounds []CompoundProperties) []*domain.Record {
	records := make([]*domain.Record, 0, len(compounds))
	for _, compound := range compounds {
		title := compound.Title
		if title == "" {
			title = compound.IUPACName
		}
		if title == "" {
			title = "unknown"
		}

		subjects := make([]string, 0, 3)
		if compound.IUPACName != "" {
			subjects = append(subjects, compound.IUPACName)
		}
		if compound.MolecularFormula != "" {
			subjects = append(subjects, compound.MolecularFormula)
		}
		if compound.CanonicalSMILES != "" {
			subjects = append(subjects, compound.CanonicalSMILES)
		}

		records = append(records, &domain.Record{
			ID:             strconv.FormatInt(compound.CID, 10),
			Title:          title,
			SourceProvider: ProviderID,
			ExternalURL:    fmt.Sprintf("https://pubchem.ncbi.nlm.nih.gov/compound/%d", compound.CID),
			SubjectTerms:   subjects,
		})
	}
	return records
}
