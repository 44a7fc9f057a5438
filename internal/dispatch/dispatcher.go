// Package dispatch implements the scatter-gather aggregation engine.
//
// One dispatch run fans a query out to the requested provider adapters,
// enforces a per-provider timeout inside an overall deadline, and emits each
// provider's outcome on the event channel the moment it is ready. Arrival
// order is first-finished-first-emitted; the terminal completion event is
// sent exactly once after every provider has reported or been cancelled.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/observability"
	"github.com/emrah1982/yayinpinari/internal/providers"
)

// Event is one discrete dispatcher outcome on the stream.
//
// Exactly one of the three shapes is populated: a provider's records, a
// provider's typed failure, or the terminal completion marker.
type Event struct {
	// Source identifies the provider that produced this event. Empty on
	// the terminal event.
	Source string

	// Records holds the provider's normalized records on success.
	Records []*domain.Record

	// TotalResults is the provider's reported total match count on success.
	TotalResults int

	// Err holds the provider's typed failure.
	Err error

	// Completed marks the terminal event, sent exactly once after all
	// providers have reported.
	Completed bool
}

// Request describes one dispatch run.
type Request struct {
	// Query is the user query string.
	Query string

	// Providers is the set of provider ids to fan out to. Duplicates are
	// dispatched once.
	Providers []string

	// Page is the 1-based page number forwarded to each adapter.
	Page int

	// PageSize is the page size forwarded to each adapter.
	PageSize int
}

// Config holds dispatcher timing settings.
type Config struct {
	// ProviderTimeout bounds each provider's search. A provider exceeding
	// it is cancelled and reported as a timeout; siblings are unaffected.
	ProviderTimeout time.Duration

	// OverallDeadline bounds the whole dispatch run. Must exceed
	// ProviderTimeout.
	OverallDeadline time.Duration

	// EventBuffer is the event channel buffer size. A small buffer keeps
	// emission from stalling completion accounting when the consumer is
	// momentarily slow.
	EventBuffer int
}

// Dispatcher fans queries out to provider adapters and streams their
// outcomes. Safe for concurrent use; each Dispatch call is an independent
// run bound to its own context.
type Dispatcher struct {
	registry *providers.Registry
	config   Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// New creates a Dispatcher backed by the given provider registry.
// Metrics may be nil, in which case instrumentation is skipped.
func New(registry *providers.Registry, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Dispatcher {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 15 * time.Second
	}
	if cfg.OverallDeadline <= cfg.ProviderTimeout {
		cfg.OverallDeadline = 3 * cfg.ProviderTimeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 16
	}
	return &Dispatcher{
		registry: registry,
		config:   cfg,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
		metrics:  metrics,
	}
}

// Dispatch starts one scatter-gather run and returns its event channel.
//
// The channel carries one event per requested provider (success or typed
// failure) in completion order, then the terminal Completed event, and is
// closed. Cancelling ctx stops all in-flight provider tasks; no data events
// are emitted after cancellation and the channel is closed without a
// terminal event.
//
// An empty provider set yields the terminal event immediately. A provider
// id with no registered adapter yields an unknown-provider error event
// without affecting the others.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) <-chan Event {
	events := make(chan Event, d.config.EventBuffer)

	go d.run(ctx, req, events)

	return events
}

func (d *Dispatcher) run(ctx context.Context, req Request, events chan<- Event) {
	defer close(events)

	start := time.Now()
	ids := dedupeIDs(req.Providers)

	logger := observability.WithDispatchContext(d.logger, uuid.NewString(), len(ids))
	logger.Info().Str("query", req.Query).Strs("providers", ids).Msg("dispatch started")

	if d.metrics != nil {
		d.metrics.DispatchesStarted.Inc()
	}

	if len(ids) == 0 {
		d.emit(ctx, events, Event{Completed: true})
		d.finish(logger, start, true)
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, d.config.OverallDeadline)
	defer cancel()

	outcomes := make(chan Event, len(ids))
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		go func(providerID string) {
			defer wg.Done()
			outcomes <- d.queryProvider(runCtx, providerID, req)
		}(id)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Forward outcomes in completion order, never buffering to restore
	// request order. Completion is counted by channel exhaustion.
	completed := 0
	for outcome := range outcomes {
		if ctx.Err() != nil {
			// Caller cancelled: drain silently, emit nothing further.
			continue
		}
		d.emit(ctx, events, outcome)
		completed++
	}

	if ctx.Err() != nil {
		logger.Info().Msg("dispatch cancelled")
		if d.metrics != nil {
			d.metrics.DispatchesCancelled.Inc()
		}
		return
	}

	d.emit(ctx, events, Event{Completed: true})
	d.finish(logger.With().Int("providers_reported", completed).Logger(), start, true)
}

// queryProvider runs one provider search under the per-provider timeout and
// converts the outcome into a dispatch event.
func (d *Dispatcher) queryProvider(ctx context.Context, providerID string, req Request) Event {
	provider := d.registry.Get(providerID)
	if provider == nil {
		if d.metrics != nil {
			d.metrics.ProviderFailures.WithLabelValues(providerID, string(domain.ErrorKindUnknownProvider)).Inc()
		}
		return Event{
			Source: providerID,
			Err: domain.NewProviderError(providerID, domain.ErrorKindUnknownProvider,
				"no adapter registered for provider", nil),
		}
	}

	searchCtx, cancel := context.WithTimeout(ctx, d.config.ProviderTimeout)
	defer cancel()

	start := time.Now()
	if d.metrics != nil {
		d.metrics.ProviderSearches.WithLabelValues(providerID).Inc()
	}

	result, err := provider.Search(searchCtx, providers.SearchParams{
		Query:    req.Query,
		Page:     req.Page,
		PageSize: req.PageSize,
	})

	elapsed := time.Since(start)
	if d.metrics != nil {
		d.metrics.ProviderSearchDuration.WithLabelValues(providerID).Observe(elapsed.Seconds())
	}

	if err != nil {
		return Event{Source: providerID, Err: d.classifyFailure(searchCtx, providerID, err)}
	}

	if d.metrics != nil {
		d.metrics.RecordsPerProvider.WithLabelValues(providerID).Observe(float64(len(result.Records)))
	}
	searchLogger := observability.WithSearchContext(d.logger, req.Query, providerID)
	searchLogger.Debug().
		Int("records", len(result.Records)).
		Dur("duration", elapsed).
		Msg("provider search completed")

	return Event{
		Source:       providerID,
		Records:      result.Records,
		TotalResults: result.TotalResults,
	}
}

// classifyFailure normalizes adapter errors into the dispatch taxonomy.
// Per-provider deadline expiry becomes a timeout failure; anything already
// typed passes through. A caller-initiated abort is not a provider failure
// and maps to the cancellation sentinel, which the run's drain path drops
// silently.
func (d *Dispatcher) classifyFailure(searchCtx context.Context, providerID string, err error) error {
	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		if d.metrics != nil {
			d.metrics.ProviderFailures.WithLabelValues(providerID, string(provErr.Kind)).Inc()
		}
		return err
	}

	if errors.Is(err, context.Canceled) {
		return domain.ErrCancelled
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(searchCtx.Err(), context.DeadlineExceeded) {
		if d.metrics != nil {
			d.metrics.ProviderTimeouts.WithLabelValues(providerID).Inc()
		}
		return domain.NewProviderError(providerID, domain.ErrorKindTimeout,
			"provider exceeded its deadline", err)
	}

	if d.metrics != nil {
		d.metrics.ProviderFailures.WithLabelValues(providerID, string(domain.ErrorKindUnreachable)).Inc()
	}
	return domain.NewProviderError(providerID, domain.ErrorKindUnreachable, err.Error(), err)
}

// emit pushes an event unless the caller has gone away.
func (d *Dispatcher) emit(ctx context.Context, events chan<- Event, ev Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

func (d *Dispatcher) finish(logger zerolog.Logger, start time.Time, completed bool) {
	elapsed := time.Since(start)
	logger.Info().Dur("duration", elapsed).Msg("dispatch completed")
	if d.metrics != nil && completed {
		d.metrics.DispatchesCompleted.Inc()
		d.metrics.DispatchDuration.Observe(elapsed.Seconds())
	}
}

// dedupeIDs removes duplicate provider ids, preserving first-seen order.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
