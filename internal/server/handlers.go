package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/scoring"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 10 << 20

// listProviders handles GET /api/v1/providers.
func (s *Server) listProviders(w http.ResponseWriter, _ *http.Request) {
	ids := s.registry.IDs()
	infos := make([]providerInfo, 0, len(ids))
	for _, id := range ids {
		p := s.registry.Get(id)
		if p == nil {
			continue
		}
		infos = append(infos, providerInfo{
			ID:      p.ID(),
			Name:    p.Name(),
			Enabled: p.IsEnabled(),
		})
	}
	writeJSON(w, http.StatusOK, listProvidersResponse{Providers: infos})
}

// enrichCitations handles POST /api/v1/citations/enrich. The request batch
// comes back in the same order with citation metrics attached where the
// citation service could resolve them.
func (s *Server) enrichCitations(w http.ResponseWriter, r *http.Request) {
	if s.correlator == nil {
		writeError(w, http.StatusServiceUnavailable, "citation enrichment is disabled")
		return
	}

	var req enrichRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	before := enrichedCount(req.Records)

	records, err := s.correlator.Enrich(r.Context(), req.Records)
	if err != nil {
		s.logger.Warn().Err(err).Int("records", len(req.Records)).Msg("enrichment failed")
		if errors.Is(err, domain.ErrEnrichmentFailed) {
			// Batch failure degrades gracefully: the caller keeps its
			// records and sees the failure as a field, not an error status.
			writeJSON(w, http.StatusOK, enrichResponse{
				Records:         records,
				EnrichmentError: err.Error(),
			})
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, enrichResponse{
		Records:       records,
		EnrichedCount: enrichedCount(records) - before,
	})
}

// scoreSimilar handles POST /api/v1/similar.
func (s *Server) scoreSimilar(w http.ResponseWriter, r *http.Request) {
	var req similarRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	minScore := -1.0
	if req.MinScore != nil {
		minScore = *req.MinScore
	}

	matches := s.scorer.Score(req.Reference, req.Candidates, minScore)
	if matches == nil {
		matches = []scoring.Match{}
	}

	writeJSON(w, http.StatusOK, similarResponse{
		Matches: matches,
		Total:   len(matches),
	})
}

// listHistory handles GET /api/v1/history.
func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	entries, err := s.historyStore.List(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}

// getHistoryEntry handles GET /api/v1/history/{entryID}.
func (s *Server) getHistoryEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.historyStore.Get(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// deleteHistoryEntry handles DELETE /api/v1/history/{entryID}.
func (s *Server) deleteHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.historyStore.Delete(r.Context(), chi.URLParam(r, "entryID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeAndValidate decodes a JSON body into dst and runs struct
// validation, writing the error response itself on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeDomainError(w, &domain.ValidationError{
				Field:   verrs[0].Field(),
				Message: "failed on the " + verrs[0].Tag() + " rule",
			})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// enrichedCount counts records carrying citation metrics.
func enrichedCount(records []*domain.Record) int {
	n := 0
	for _, rec := range records {
		if rec != nil && rec.IsEnriched() {
			n++
		}
	}
	return n
}
