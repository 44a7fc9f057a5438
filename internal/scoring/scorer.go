// Package scoring implements the deterministic similarity scorer.
//
// A candidate's similarity to a reference record is a weighted sum of four
// factors: title keyword overlap, subject keyword overlap, author overlap,
// and publication-year proximity. Set overlap is Jaccard similarity, every
// sub-score and the total are rounded to two decimals, and identical inputs
// always produce identical scores.
package scoring

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/observability"
)

// Factor weights. They sum to 1.0 so a perfect candidate scores 1.0.
const (
	titleWeight   = 0.40
	subjectWeight = 0.35
	authorWeight  = 0.15
	yearWeight    = 0.10
)

// maxKeywords caps the keyword set extracted from one text field.
const maxKeywords = 10

// DefaultMinScore is the threshold applied when the caller does not set one.
const DefaultMinScore = 0.1

// Breakdown carries the per-factor sub-scores of one match.
type Breakdown struct {
	Title   float64 `json:"title"`
	Subject float64 `json:"subject"`
	Author  float64 `json:"author"`
	Year    float64 `json:"year"`
}

// Match pairs a candidate record with its similarity to the reference.
type Match struct {
	Record    *domain.Record `json:"record"`
	Score     float64        `json:"score"`
	Breakdown Breakdown      `json:"breakdown"`
}

// Config holds scorer settings.
type Config struct {
	// DefaultMinScore is the threshold used when a request leaves the
	// minimum unset. Defaults to DefaultMinScore.
	DefaultMinScore float64

	// MaxCandidates caps the candidate list per request; extra candidates
	// are ignored. Zero means no cap.
	MaxCandidates int
}

// Scorer ranks candidate records by similarity to a reference record.
// Stateless and safe for concurrent use.
type Scorer struct {
	config  Config
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// New creates a Scorer. Metrics may be nil, in which case instrumentation
// is skipped.
func New(cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Scorer {
	if cfg.DefaultMinScore <= 0 {
		cfg.DefaultMinScore = DefaultMinScore
	}
	return &Scorer{
		config:  cfg,
		logger:  logger.With().Str("component", "scoring").Logger(),
		metrics: metrics,
	}
}

// Score ranks candidates against the reference, drops those scoring below
// minScore, and returns the rest in descending score order. Candidates with
// equal scores keep their input order. A negative minScore selects the
// configured default.
func (s *Scorer) Score(reference *domain.Record, candidates []*domain.Record, minScore float64) []Match {
	if minScore < 0 {
		minScore = s.config.DefaultMinScore
	}
	if s.config.MaxCandidates > 0 && len(candidates) > s.config.MaxCandidates {
		candidates = candidates[:s.config.MaxCandidates]
	}

	if s.metrics != nil {
		s.metrics.ScoringRequests.Inc()
		s.metrics.ScoringCandidates.Observe(float64(len(candidates)))
	}

	ref := newReferenceProfile(reference)

	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		match := s.scoreOne(ref, candidate)
		if match.Score < minScore {
			continue
		}
		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	s.logger.Debug().
		Int("candidates", len(candidates)).
		Int("matches", len(matches)).
		Float64("min_score", minScore).
		Msg("scoring completed")

	return matches
}

// profile is the precomputed comparison form of one record.
//
// The subject factor is asymmetric: the reference side holds keywords from
// its abstract (or title when there is no abstract) while the candidate
// side holds the candidate's declared subject terms.
type profile struct {
	titleKeywords   map[string]struct{}
	subjectKeywords map[string]struct{}
	authors         map[string]struct{}
	year            int
}

func newReferenceProfile(rec *domain.Record) profile {
	p := newProfile(rec)
	subjectText := rec.Abstract
	if strings.TrimSpace(subjectText) == "" {
		subjectText = rec.Title
	}
	p.subjectKeywords = keywordSet(ExtractKeywords(subjectText))
	return p
}

func newCandidateProfile(rec *domain.Record) profile {
	p := newProfile(rec)
	p.subjectKeywords = keywordSet(ExtractKeywords(strings.Join(rec.SubjectTerms, " ")))
	return p
}

func newProfile(rec *domain.Record) profile {
	p := profile{
		titleKeywords: keywordSet(ExtractKeywords(rec.Title)),
		authors:       make(map[string]struct{}, len(rec.Authors)),
		year:          rec.PublishedYear(),
	}
	for _, author := range rec.Authors {
		author = strings.ToLower(strings.TrimSpace(author))
		if author != "" {
			p.authors[author] = struct{}{}
		}
	}
	return p
}

func (s *Scorer) scoreOne(ref profile, candidate *domain.Record) Match {
	cand := newCandidateProfile(candidate)

	breakdown := Breakdown{
		Title:   round2(jaccard(ref.titleKeywords, cand.titleKeywords)),
		Subject: round2(jaccard(ref.subjectKeywords, cand.subjectKeywords)),
		Author:  round2(jaccard(ref.authors, cand.authors)),
		Year:    yearScore(ref.year, cand.year),
	}

	total := round2(titleWeight*breakdown.Title +
		subjectWeight*breakdown.Subject +
		authorWeight*breakdown.Author +
		yearWeight*breakdown.Year)

	return Match{Record: candidate, Score: total, Breakdown: breakdown}
}

// ExtractKeywords reduces free text to at most maxKeywords distinct lowercase
// tokens in first-occurrence order. Tokens of two characters or fewer and
// stopwords are dropped.
func ExtractKeywords(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, maxKeywords)
	for _, token := range tokens {
		if len([]rune(token)) <= 2 || isStopword(token) {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

func keywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		set[kw] = struct{}{}
	}
	return set
}

// jaccard computes |A∩B| / |A∪B|. Two empty sets have no overlap signal
// and score zero.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for item := range a {
		if _, ok := b[item]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// yearScore grades publication-year proximity: full credit within five
// years, half credit within ten, nothing beyond that or when either year
// is unknown.
func yearScore(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	delta := a - b
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= 5:
		return 1.0
	case delta <= 10:
		return 0.5
	default:
		return 0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
