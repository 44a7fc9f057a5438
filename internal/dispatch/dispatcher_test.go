package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/providers"
)

// stubProvider is a scripted provider for dispatcher tests.
type stubProvider struct {
	id      string
	records []*domain.Record
	err     error
	delay   time.Duration
	// block waits for context cancellation instead of returning,
	// simulating a hung upstream.
	block bool
}

func (s *stubProvider) Search(ctx context.Context, _ providers.SearchParams) (*providers.SearchResult, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &providers.SearchResult{
		Records:      s.records,
		TotalResults: len(s.records),
		Provider:     s.id,
	}, nil
}

func (s *stubProvider) ID() string      { return s.id }
func (s *stubProvider) Name() string    { return s.id }
func (s *stubProvider) IsEnabled() bool { return true }

func makeRecords(provider string, n int) []*domain.Record {
	records := make([]*domain.Record, n)
	for i := range records {
		records[i] = &domain.Record{
			ID:             domain.NewRecordID(),
			Title:          "record",
			SourceProvider: provider,
		}
	}
	return records
}

func newTestDispatcher(t *testing.T, cfg Config, provs ...providers.Provider) *Dispatcher {
	t.Helper()
	registry := providers.NewRegistry()
	for _, p := range provs {
		registry.Register(p)
	}
	return New(registry, cfg, zerolog.Nop(), nil)
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var collected []Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return collected
			}
			collected = append(collected, ev)
		case <-deadline:
			t.Fatal("timed out waiting for dispatch events")
		}
	}
}

func TestDispatcher_AllProvidersSucceed(t *testing.T) {
	d := newTestDispatcher(t, Config{},
		&stubProvider{id: "alpha", records: makeRecords("alpha", 2)},
		&stubProvider{id: "beta", records: makeRecords("beta", 3)},
	)

	events := collect(t, d.Dispatch(context.Background(), Request{
		Query:     "quantum chemistry",
		Providers: []string{"alpha", "beta"},
	}))

	require.Len(t, events, 3)

	byProvider := map[string]Event{}
	for _, ev := range events[:2] {
		assert.NoError(t, ev.Err)
		assert.False(t, ev.Completed)
		byProvider[ev.Source] = ev
	}
	assert.Len(t, byProvider["alpha"].Records, 2)
	assert.Len(t, byProvider["beta"].Records, 3)

	terminal := events[2]
	assert.True(t, terminal.Completed)
	assert.Empty(t, terminal.Source)
	assert.Nil(t, terminal.Records)
}

func TestDispatcher_FastProviderNotBlockedBySlowSibling(t *testing.T) {
	d := newTestDispatcher(t, Config{ProviderTimeout: time.Second, OverallDeadline: 2 * time.Second},
		&stubProvider{id: "fast", records: makeRecords("fast", 1)},
		&stubProvider{id: "slow", records: makeRecords("slow", 1), delay: 300 * time.Millisecond},
	)

	events := collect(t, d.Dispatch(context.Background(), Request{
		Query:     "perovskite",
		Providers: []string{"slow", "fast"},
	}))

	require.Len(t, events, 3)
	assert.Equal(t, "fast", events[0].Source, "first finished should be emitted first")
	assert.Equal(t, "slow", events[1].Source)
	assert.True(t, events[2].Completed)
}

func TestDispatcher_TimeoutIsolatedToOneProvider(t *testing.T) {
	d := newTestDispatcher(t, Config{ProviderTimeout: 50 * time.Millisecond, OverallDeadline: time.Second},
		&stubProvider{id: "healthy", records: makeRecords("healthy", 2)},
		&stubProvider{id: "hung", block: true},
	)

	events := collect(t, d.Dispatch(context.Background(), Request{
		Query:     "graphene",
		Providers: []string{"healthy", "hung"},
	}))

	require.Len(t, events, 3)

	var healthy, hung Event
	for _, ev := range events[:2] {
		switch ev.Source {
		case "healthy":
			healthy = ev
		case "hung":
			hung = ev
		}
	}

	assert.Len(t, healthy.Records, 2)
	assert.NoError(t, healthy.Err)

	require.Error(t, hung.Err)
	var provErr *domain.ProviderError
	require.ErrorAs(t, hung.Err, &provErr)
	assert.Equal(t, domain.ErrorKindTimeout, provErr.Kind)
	assert.Empty(t, hung.Records)

	assert.True(t, events[2].Completed)
}

func TestDispatcher_ProviderFailurePassesThroughTyped(t *testing.T) {
	upstreamErr := &domain.ProviderError{
		Provider:   "flaky",
		Kind:       domain.ErrorKindRateLimited,
		StatusCode: 429,
		Message:    "slow down",
	}
	d := newTestDispatcher(t, Config{},
		&stubProvider{id: "flaky", err: upstreamErr},
		&stubProvider{id: "steady", records: makeRecords("steady", 1)},
	)

	events := collect(t, d.Dispatch(context.Background(), Request{
		Query:     "catalysis",
		Providers: []string{"flaky", "steady"},
	}))

	require.Len(t, events, 3)

	var flaky Event
	for _, ev := range events[:2] {
		if ev.Source == "flaky" {
			flaky = ev
		}
	}
	var provErr *domain.ProviderError
	require.ErrorAs(t, flaky.Err, &provErr)
	assert.Equal(t, domain.ErrorKindRateLimited, provErr.Kind)
	assert.True(t, errors.Is(flaky.Err, domain.ErrRateLimited))
}

func TestDispatcher_UnknownProviderYieldsErrorEvent(t *testing.T) {
	d := newTestDispatcher(t, Config{},
		&stubProvider{id: "known", records: makeRecords("known", 1)},
	)

	events := collect(t, d.Dispatch(context.Background(), Request{
		Query:     "alkaloids",
		Providers: []string{"known", "ghost"},
	}))

	require.Len(t, events, 3)

	var ghost Event
	for _, ev := range events[:2] {
		if ev.Source == "ghost" {
			ghost = ev
		}
	}
	var provErr *domain.ProviderError
	require.ErrorAs(t, ghost.Err, &provErr)
	assert.Equal(t, domain.ErrorKindUnknownProvider, provErr.Kind)
	assert.True(t, errors.Is(ghost.Err, domain.ErrUnknownProvider))
	assert.True(t, events[2].Completed)
}

func TestDispatcher_ZeroProvidersTerminatesImmediately(t *testing.T) {
	d := newTestDispatcher(t, Config{})

	events := collect(t, d.Dispatch(context.Background(), Request{Query: "anything"}))

	require.Len(t, events, 1)
	assert.True(t, events[0].Completed)
}

func TestDispatcher_DuplicateProviderIDsDispatchedOnce(t *testing.T) {
	d := newTestDispatcher(t, Config{},
		&stubProvider{id: "solo", records: makeRecords("solo", 1)},
	)

	events := collect(t, d.Dispatch(context.Background(), Request{
		Query:     "polymer",
		Providers: []string{"solo", "solo", "solo"},
	}))

	require.Len(t, events, 2)
	assert.Equal(t, "solo", events[0].Source)
	assert.True(t, events[1].Completed)
}

func TestDispatcher_CancellationSuppressesEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	d := newTestDispatcher(t, Config{ProviderTimeout: 2 * time.Second, OverallDeadline: 5 * time.Second},
		&stubProvider{id: "pending", records: makeRecords("pending", 1), delay: time.Second},
	)

	events := d.Dispatch(ctx, Request{Query: "spectra", Providers: []string{"pending"}})
	cancel()

	collected := collect(t, events)
	for _, ev := range collected {
		assert.False(t, ev.Completed, "no terminal event after cancellation")
	}
}

func TestDispatcher_ProviderAbortClassifiedAsCancelled(t *testing.T) {
	// A provider that aborts internally reports the cancellation sentinel,
	// not an unreachable failure, and siblings are unaffected.
	d := newTestDispatcher(t, Config{},
		&stubProvider{id: "aborted", err: context.Canceled},
		&stubProvider{id: "steady", records: makeRecords("steady", 1)},
	)

	events := collect(t, d.Dispatch(context.Background(), Request{
		Query:     "isotopes",
		Providers: []string{"aborted", "steady"},
	}))

	require.Len(t, events, 3)

	var aborted Event
	for _, ev := range events[:2] {
		if ev.Source == "aborted" {
			aborted = ev
		}
	}
	assert.True(t, errors.Is(aborted.Err, domain.ErrCancelled))
	assert.True(t, events[2].Completed)
}

func TestDispatcher_ExactlyOneTerminalEvent(t *testing.T) {
	d := newTestDispatcher(t, Config{},
		&stubProvider{id: "a", records: makeRecords("a", 1)},
		&stubProvider{id: "b", err: errors.New("boom")},
		&stubProvider{id: "c", records: makeRecords("c", 4)},
	)

	events := collect(t, d.Dispatch(context.Background(), Request{
		Query:     "survey",
		Providers: []string{"a", "b", "c"},
	}))

	terminals := 0
	for _, ev := range events {
		if ev.Completed {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
	assert.True(t, events[len(events)-1].Completed, "terminal event is last")
	assert.Len(t, events, 4)
}
