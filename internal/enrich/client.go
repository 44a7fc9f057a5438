package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/providers"
)

const (
	// DefaultBaseURL is the default base URL of the citation service.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit respects the unauthenticated Semantic Scholar limit.
	DefaultRateLimit = 1.0

	// batchFields is the field set requested for every batch entry.
	batchFields = "citationCount,externalIds,title,year"

	// sourceName is recorded on citation metrics produced by this client.
	sourceName = "semanticscholar"
)

// ClientConfig contains configuration options for the citation client.
type ClientConfig struct {
	// BaseURL is the citation service base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent in the x-api-key header when set.
	APIKey string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to DefaultRateLimit.
	RateLimit float64
}

// Client resolves citation metrics through the Semantic Scholar Graph API
// paper batch endpoint.
type Client struct {
	httpClient *providers.HTTPClient
	config     ClientConfig
}

// Compile-time check that Client implements CitationClient.
var _ CitationClient = (*Client)(nil)

// NewClient creates a citation client with the given configuration.
// If httpClient is nil, one is created from the configuration settings.
func NewClient(cfg ClientConfig, httpClient *providers.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}

	if httpClient == nil {
		httpClient = providers.NewHTTPClient(providers.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    1,
			APIKey:       cfg.APIKey,
			APIKeyHeader: "x-api-key",
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// batchRequest is the paper batch request body.
type batchRequest struct {
	IDs []string `json:"ids"`
}

// paperEntry is one entry of the paper batch response. The service returns
// null for identifiers it cannot resolve.
type paperEntry struct {
	PaperID       string      `json:"paperId"`
	Title         string      `json:"title"`
	Year          int         `json:"year"`
	CitationCount int         `json:"citationCount"`
	ExternalIDs   externalIDs `json:"externalIds"`
}

type externalIDs struct {
	DOI string `json:"DOI"`
}

// BatchLookup resolves citation metrics for a batch of keys in one request.
//
// The service is keyed on DOIs; keys without one get no upstream entry and
// come back nil. The returned slice is aligned with the request keys, and
// each entry echoes its key so the correlator can match independently of
// position.
func (c *Client) BatchLookup(ctx context.Context, keys []LookupKey) ([]*Citation, error) {
	citations := make([]*Citation, len(keys))

	ids := make([]string, 0, len(keys))
	keyIndex := make([]int, 0, len(keys))
	for i, key := range keys {
		if key.DOI == "" {
			continue
		}
		ids = append(ids, "DOI:"+key.DOI)
		keyIndex = append(keyIndex, i)
	}
	if len(ids) == 0 {
		return citations, nil
	}

	entries, err := c.postBatch(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(entries) != len(ids) {
		return nil, fmt.Errorf("citation service returned %d entries for %d identifiers",
			len(entries), len(ids))
	}

	for pos, entry := range entries {
		if entry == nil {
			continue
		}
		idx := keyIndex[pos]

		key := keys[idx]
		estimated := false
		if doi := domain.NormalizeDOI(entry.ExternalIDs.DOI); doi != "" {
			key.DOI = doi
		} else {
			// The service resolved the identifier but echoed no DOI;
			// the match rests on request position alone.
			estimated = true
		}

		citations[idx] = &Citation{
			Key:           key,
			CitationCount: entry.CitationCount,
			Sources:       []string{sourceName},
			IsEstimated:   estimated,
		}
	}

	return citations, nil
}

// postBatch performs the paper batch POST and decodes the aligned entries.
func (c *Client) postBatch(ctx context.Context, ids []string) ([]*paperEntry, error) {
	body, err := json.Marshal(batchRequest{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("encoding batch request: %w", err)
	}

	batchURL := strings.TrimSuffix(c.config.BaseURL, "/") + "/paper/batch?fields=" + batchFields

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, batchURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("citation service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, fmt.Errorf("citation service returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var entries []*paperEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding batch response: %w", err)
	}
	return entries, nil
}
