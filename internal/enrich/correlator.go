// Package enrich implements batched citation enrichment.
//
// A correlation pass takes the records accumulated from a dispatch run,
// builds one lookup key per record that still lacks citation metrics, asks
// the citation service for the whole batch at once, and correlates the
// response entries back onto the originating records. Matching is keyed on
// the record's identifying fields rather than response position, so a
// service that reorders or omits entries cannot mis-attribute metrics.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/observability"
)

// LookupKey identifies one record in a citation batch request.
type LookupKey struct {
	// Title is the record title.
	Title string

	// Authors is the author list joined with "; ".
	Authors string

	// Year is the publication year, 0 when unknown.
	Year int

	// DOI is the normalized DOI, empty when the record has none.
	DOI string
}

// Citation is one citation-metrics entry returned by the service.
//
// Key carries whatever identifying fields the service echoed back; a
// zero-valued Key means the service echoed nothing and the entry can only
// be correlated by position.
type Citation struct {
	Key           LookupKey
	CitationCount int
	HIndex        *int
	Sources       []string
	IsEstimated   bool
}

// CitationClient performs one batched citation lookup.
type CitationClient interface {
	// BatchLookup resolves citation metrics for a batch of keys. The
	// returned slice need not align with the request; entries identify
	// themselves through their echoed Key. A nil entry or a missing key
	// means the service had no metrics for that record.
	BatchLookup(ctx context.Context, keys []LookupKey) ([]*Citation, error)
}

// Config holds correlator settings.
type Config struct {
	// MaxBatchSize caps the keys sent in one service call. Larger inputs
	// are split into consecutive calls.
	MaxBatchSize int
}

// Correlator attaches citation metrics to dispatch records.
type Correlator struct {
	client  CitationClient
	config  Config
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewCorrelator creates a Correlator backed by the given citation client.
// Metrics may be nil, in which case instrumentation is skipped.
func NewCorrelator(client CitationClient, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Correlator {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}
	return &Correlator{
		client:  client,
		config:  cfg,
		logger:  logger.With().Str("component", "enrichment").Logger(),
		metrics: metrics,
	}
}

// attachment pairs a record with the citation info staged for it. Staged
// attachments are committed only after every service call has succeeded.
type attachment struct {
	rec  *domain.Record
	info *domain.CitationInfo
}

// Enrich attaches citation metrics to every record in the batch that lacks
// them and returns the same slice: same length, same order, same record
// identities. Records already carrying metrics are left untouched, so the
// pass is idempotent. When any citation service call fails, the input is
// returned unchanged together with an error wrapping
// domain.ErrEnrichmentFailed; no record is mutated, even when earlier
// calls of a split batch had already resolved, so the caller's records are
// still usable.
func (c *Correlator) Enrich(ctx context.Context, records []*domain.Record) ([]*domain.Record, error) {
	pending := make([]*domain.Record, 0, len(records))
	for _, rec := range records {
		if rec != nil && !rec.IsEnriched() {
			pending = append(pending, rec)
		}
	}
	if len(pending) == 0 {
		return records, nil
	}

	start := time.Now()
	var staged []attachment

	for len(pending) > 0 {
		batch := pending
		if len(batch) > c.config.MaxBatchSize {
			batch = batch[:c.config.MaxBatchSize]
		}
		pending = pending[len(batch):]

		entries, err := c.enrichBatch(ctx, batch)
		if err != nil {
			if c.metrics != nil {
				c.metrics.EnrichmentBatchFailures.Inc()
			}
			c.logger.Warn().Err(err).Int("batch_size", len(batch)).Msg("citation batch failed")
			return records, fmt.Errorf("citation lookup for %d records: %w: %w",
				len(batch), domain.ErrEnrichmentFailed, err)
		}
		staged = append(staged, entries...)
	}

	// Every call succeeded: commit in one pass.
	for _, a := range staged {
		a.rec.CitationInfo = a.info
	}

	elapsed := time.Since(start)
	if c.metrics != nil {
		c.metrics.EnrichmentBatchDuration.Observe(elapsed.Seconds())
	}
	c.logger.Debug().
		Int("records", len(records)).
		Int("matched", len(staged)).
		Dur("duration", elapsed).
		Msg("enrichment pass completed")

	return records, nil
}

// enrichBatch runs one service call and correlates its entries against the
// batch, returning the staged attachments without touching the records.
func (c *Correlator) enrichBatch(ctx context.Context, batch []*domain.Record) ([]attachment, error) {
	keys := make([]LookupKey, len(batch))
	for i, rec := range batch {
		keys[i] = keyForRecord(rec)
	}

	if c.metrics != nil {
		c.metrics.EnrichmentBatches.Inc()
	}

	citations, err := c.client.BatchLookup(ctx, keys)
	if err != nil {
		return nil, err
	}

	entries := c.correlate(batch, keys, citations)

	if c.metrics != nil {
		c.metrics.EnrichmentRecordsMatched.Add(float64(len(entries)))
		c.metrics.EnrichmentRecordsUnmatched.Add(float64(len(batch) - len(entries)))
	}
	return entries, nil
}

// fallbackSource labels metrics whose service entry named no source, so an
// attached CitationInfo always carries at least one.
const fallbackSource = "citation-service"

// correlate matches citation entries to batch records and returns the
// staged attachments. Entries with an echoed key are matched by DOI, then
// by the composite title key. Entries with no echoed key fall back to their
// position in the response, which is only trusted when the response has the
// same length as the request.
func (c *Correlator) correlate(batch []*domain.Record, keys []LookupKey, citations []*Citation) []attachment {
	byDOI := make(map[string]int, len(batch))
	byComposite := make(map[string]int, len(batch))
	for i, key := range keys {
		if key.DOI != "" {
			byDOI[key.DOI] = i
		}
		byComposite[compositeKey(key)] = i
	}

	positional := len(citations) == len(batch)
	taken := make(map[int]struct{}, len(citations))
	entries := make([]attachment, 0, len(citations))

	for pos, citation := range citations {
		if citation == nil {
			continue
		}

		idx := -1
		switch {
		case citation.Key.DOI != "":
			if i, ok := byDOI[domain.NormalizeDOI(citation.Key.DOI)]; ok {
				idx = i
			}
		case citation.Key.Title != "":
			if i, ok := byComposite[compositeKey(citation.Key)]; ok {
				idx = i
			}
		case positional:
			idx = pos
		}

		if idx < 0 {
			continue
		}
		if _, dup := taken[idx]; dup {
			continue
		}
		taken[idx] = struct{}{}

		sources := citation.Sources
		if len(sources) == 0 {
			sources = []string{fallbackSource}
		}

		entries = append(entries, attachment{
			rec: batch[idx],
			info: &domain.CitationInfo{
				CitationCount: citation.CitationCount,
				HIndex:        citation.HIndex,
				Sources:       sources,
				IsEstimated:   citation.IsEstimated,
				LastUpdated:   time.Now().UTC(),
			},
		})
	}
	return entries
}

// keyForRecord builds the lookup key for one record.
func keyForRecord(rec *domain.Record) LookupKey {
	return LookupKey{
		Title:   strings.TrimSpace(rec.Title),
		Authors: strings.Join(rec.Authors, "; "),
		Year:    rec.PublishedYear(),
		DOI:     domain.NormalizeDOI(rec.DOI),
	}
}

// compositeKey folds a lookup key into a case-insensitive match string.
func compositeKey(key LookupKey) string {
	return fmt.Sprintf("%s|%s|%d",
		strings.ToLower(strings.TrimSpace(key.Title)),
		strings.ToLower(strings.TrimSpace(key.Authors)),
		key.Year)
}
