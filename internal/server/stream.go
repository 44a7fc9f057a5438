package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emrah1982/yayinpinari/internal/dispatch"
	"github.com/emrah1982/yayinpinari/internal/history"
)

// SSE event type names on the search stream.
const (
	eventTypeSourceResult = "source_result"
	eventTypeSourceError  = "source_error"
	eventTypeCompleted    = "completed"
)

// streamSearch handles GET /api/v1/search/stream (SSE).
//
// Query parameters: q (required), providers (comma-separated ids, defaults
// to every enabled provider), page, page_size. Each provider's outcome is
// emitted as its own event the moment it arrives; the stream ends with a
// single completed event.
func (s *Server) streamSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	ids := splitProviderIDs(r.URL.Query().Get("providers"))
	if len(ids) == 0 {
		for _, p := range s.registry.Enabled() {
			ids = append(ids, p.ID())
		}
	}

	page := parseIntParam(r, "page", 1)
	pageSize := parseIntParam(r, "page_size", 0)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	start := time.Now()
	events := s.dispatcher.Dispatch(r.Context(), dispatch.Request{
		Query:     query,
		Providers: ids,
		Page:      page,
		PageSize:  pageSize,
	})

	recordCount := 0
	var failedProviders []string

	for ev := range events {
		switch {
		case ev.Completed:
			entryID := s.recordHistory(r, query, ids, recordCount, failedProviders, start)
			sendSSEEvent(w, flusher, eventTypeCompleted, streamEvent{
				Completed: true,
				Summary: &summaryPayload{
					HistoryID:       entryID,
					RecordCount:     recordCount,
					FailedProviders: failedProviders,
					Duration:        time.Since(start).String(),
				},
				Timestamp: time.Now().UTC(),
			})
			return

		case ev.Err != nil:
			failedProviders = append(failedProviders, ev.Source)
			sendSSEEvent(w, flusher, eventTypeSourceError, streamEvent{
				Source:    ev.Source,
				Error:     errorToPayload(ev.Err),
				Timestamp: time.Now().UTC(),
			})

		default:
			recordCount += len(ev.Records)
			sendSSEEvent(w, flusher, eventTypeSourceResult, streamEvent{
				Source: ev.Source,
				Data: &sourcePayload{
					Success:      true,
					Data:         ev.Records,
					TotalResults: ev.TotalResults,
				},
				Timestamp: time.Now().UTC(),
			})
		}
	}
	// Channel closed without a terminal event: the client went away.
}

// recordHistory saves a history entry for a completed run and returns its
// ID. Failures are logged, never surfaced to the stream.
func (s *Server) recordHistory(r *http.Request, query string, ids []string, recordCount int, failed []string, start time.Time) string {
	if s.historyStore == nil {
		return ""
	}
	entry := history.Entry{
		ID:              uuid.NewString(),
		Query:           query,
		Providers:       ids,
		ResultCount:     recordCount,
		FailedProviders: failed,
		CreatedAt:       start.UTC(),
	}
	if err := s.historyStore.Put(r.Context(), entry); err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("failed to record search history")
		return ""
	}
	return entry.ID
}

// sendSSEEvent writes a single SSE event to the response writer.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, event streamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
	flusher.Flush()
}

// splitProviderIDs parses a comma-separated provider id list.
func splitProviderIDs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// parseIntParam reads a positive integer query parameter, falling back to
// def when absent or malformed.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}
