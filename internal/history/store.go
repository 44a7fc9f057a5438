// Package history records past dispatch runs so clients can revisit them.
package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/emrah1982/yayinpinari/internal/domain"
)

// Entry is one recorded dispatch run.
type Entry struct {
	// ID uniquely identifies the entry.
	ID string `json:"id"`

	// Query is the dispatched query string.
	Query string `json:"query"`

	// Providers lists the provider ids the run fanned out to.
	Providers []string `json:"providers"`

	// ResultCount is the total number of records the run produced.
	ResultCount int `json:"result_count"`

	// FailedProviders lists the provider ids that reported an error.
	FailedProviders []string `json:"failed_providers,omitempty"`

	// CreatedAt is when the run started, UTC.
	CreatedAt time.Time `json:"created_at"`
}

// Store persists dispatch history entries.
type Store interface {
	// Put saves an entry, overwriting any previous entry with the same ID.
	Put(ctx context.Context, entry Entry) error

	// Get returns the entry with the given ID, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (Entry, error)

	// Delete removes the entry with the given ID, or returns
	// domain.ErrNotFound when there is none.
	Delete(ctx context.Context, id string) error

	// List returns up to limit entries, newest first. A non-positive
	// limit returns all entries.
	List(ctx context.Context, limit int) ([]Entry, error)
}

// MemoryStore is an in-memory Store bounded to a fixed capacity. When full,
// saving a new entry evicts the oldest one. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	capacity int
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore holding at most capacity entries.
// A non-positive capacity defaults to 1000.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryStore{
		entries:  make(map[string]Entry),
		capacity: capacity,
	}
}

// Put saves an entry, evicting the oldest entry when at capacity.
func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	if entry.ID == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ID]; !exists && len(s.entries) >= s.capacity {
		s.evictOldestLocked()
	}
	s.entries[entry.ID] = entry
	return nil
}

// Get returns the entry with the given ID.
func (s *MemoryStore) Get(_ context.Context, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return Entry{}, domain.ErrNotFound
	}
	return entry, nil
}

// Delete removes the entry with the given ID.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// List returns up to limit entries, newest first.
func (s *MemoryStore) List(_ context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// evictOldestLocked removes the entry with the earliest CreatedAt.
// Caller holds the write lock.
func (s *MemoryStore) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time
	first := true
	for id, entry := range s.entries {
		if first || entry.CreatedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = entry.CreatedAt
			first = false
		}
	}
	if oldestID != "" {
		delete(s.entries, oldestID)
	}
}
