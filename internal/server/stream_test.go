package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/history"
	"github.com/emrah1982/yayinpinari/internal/providers"
)

// parsedEvent is one decoded SSE frame.
type parsedEvent struct {
	Type  string
	Event streamEvent
}

// parseSSE splits a recorded SSE body into decoded events.
func parseSSE(t *testing.T, body string) []parsedEvent {
	t.Helper()
	var events []parsedEvent
	var current parsedEvent

	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.Event))
			events = append(events, current)
			current = parsedEvent{}
		}
	}
	return events
}

func streamRequest(t *testing.T, s *Server, target string) []parsedEvent {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	return parseSSE(t, rec.Body.String())
}

func TestStreamSearch(t *testing.T) {
	s := newTestServer(t, serverOptions{providers: []providers.Provider{
		&fakeProvider{id: "alpha", name: "Alpha", enabled: true, records: []*domain.Record{
			{ID: "a1", Title: "First", SourceProvider: "alpha"},
			{ID: "a2", Title: "Second", SourceProvider: "alpha"},
		}},
		&fakeProvider{id: "beta", name: "Beta", enabled: true, err: &domain.ProviderError{
			Provider: "beta", Kind: domain.ErrorKindHTTP, StatusCode: 500, Message: "upstream broke",
		}},
	}})

	events := streamRequest(t, s, "/api/v1/search/stream?q=minerals&providers=alpha,beta")
	require.Len(t, events, 3)

	var result, failure, terminal *parsedEvent
	for i := range events {
		switch events[i].Type {
		case eventTypeSourceResult:
			result = &events[i]
		case eventTypeSourceError:
			failure = &events[i]
		case eventTypeCompleted:
			terminal = &events[i]
		}
	}

	require.NotNil(t, result)
	assert.Equal(t, "alpha", result.Event.Source)
	require.NotNil(t, result.Event.Data)
	assert.True(t, result.Event.Data.Success)
	assert.Len(t, result.Event.Data.Data, 2)

	require.NotNil(t, failure)
	assert.Equal(t, "beta", failure.Event.Source)
	require.NotNil(t, failure.Event.Error)
	assert.Equal(t, string(domain.ErrorKindHTTP), failure.Event.Error.Kind)
	assert.Equal(t, 500, failure.Event.Error.StatusCode)

	require.NotNil(t, terminal)
	assert.True(t, terminal.Event.Completed)
	require.NotNil(t, terminal.Event.Summary)
	assert.Equal(t, 2, terminal.Event.Summary.RecordCount)
	assert.Equal(t, []string{"beta"}, terminal.Event.Summary.FailedProviders)
	assert.Equal(t, events[len(events)-1].Type, eventTypeCompleted, "terminal event is last")
}

func TestStreamSearchDefaultsToEnabledProviders(t *testing.T) {
	s := newTestServer(t, serverOptions{providers: []providers.Provider{
		&fakeProvider{id: "on", name: "On", enabled: true, records: []*domain.Record{{ID: "r"}}},
		&fakeProvider{id: "off", name: "Off", enabled: false},
	}})

	events := streamRequest(t, s, "/api/v1/search/stream?q=anything")
	require.Len(t, events, 2, "disabled provider is not dispatched")
	assert.Equal(t, "on", events[0].Event.Source)
	assert.True(t, events[1].Event.Completed)
}

func TestStreamSearchUnknownProvider(t *testing.T) {
	s := newTestServer(t, serverOptions{providers: []providers.Provider{
		&fakeProvider{id: "real", name: "Real", enabled: true},
	}})

	events := streamRequest(t, s, "/api/v1/search/stream?q=x&providers=ghost")
	require.Len(t, events, 2)
	assert.Equal(t, eventTypeSourceError, events[0].Type)
	assert.Equal(t, string(domain.ErrorKindUnknownProvider), events[0].Event.Error.Kind)
	assert.True(t, events[1].Event.Completed)
}

func TestStreamSearchMissingQuery(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/stream", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamSearchRecordsHistory(t *testing.T) {
	store := history.NewMemoryStore(10)
	s := newTestServer(t, serverOptions{
		providers: []providers.Provider{
			&fakeProvider{id: "alpha", name: "Alpha", enabled: true,
				records: []*domain.Record{{ID: "a1"}}},
		},
		historyStore: store,
	})

	events := streamRequest(t, s, "/api/v1/search/stream?q=archive&providers=alpha")
	terminal := events[len(events)-1]
	require.True(t, terminal.Event.Completed)
	require.NotNil(t, terminal.Event.Summary)
	require.NotEmpty(t, terminal.Event.Summary.HistoryID)

	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "archive", entries[0].Query)
	assert.Equal(t, 1, entries[0].ResultCount)
	assert.Equal(t, []string{"alpha"}, entries[0].Providers)
}
