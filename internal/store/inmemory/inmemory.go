// Package inmemory provides a map-backed store.Store.
package inmemory

import (
	"context"
	"strings"
	"sync"

	"github.com/rcliao/story-memory/internal/apperrors"
	"github.com/rcliao/story-memory/internal/model"
	"github.com/rcliao/story-memory/internal/store"
)

// Store implements store.Store using an in-memory map.
type Store struct {
	// mu guards memoranda
	mu sync.RWMutex

	// memoranda is keyed by memorandum id
	memoranda map[string]model.Memorandum
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Exporter = (*Store)(nil)
	_ store.Searcher = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{memoranda: make(map[string]model.Memorandum)}
}

// Get retrieves a memorandum by id. A missing id is (nil, nil).
func (s *Store) Get(_ context.Context, id string) (*model.Memorandum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memoranda[id]
	if !ok {
		return nil, nil
	}
	out := m.Clone()
	return &out, nil
}

// ListByWorld returns the memoranda of a world ordered by (created_at, id).
func (s *Store) ListByWorld(_ context.Context, worldID string) ([]model.Memorandum, error) {
	return s.collect(func(m model.Memorandum) bool { return m.WorldID == worldID }), nil
}

// ExportAll returns all memoranda, optionally filtered by world.
func (s *Store) ExportAll(_ context.Context, worldID string) ([]model.Memorandum, error) {
	return s.collect(func(m model.Memorandum) bool { return worldID == "" || m.WorldID == worldID }), nil
}

// Save inserts or replaces a memorandum.
func (s *Store) Save(_ context.Context, m model.Memorandum) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memoranda[m.ID] = m.Clone()
	return nil
}

// SearchFacts finds facts whose content contains the query, ignoring case.
func (s *Store) SearchFacts(ctx context.Context, p store.SearchParams) ([]store.SearchResult, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "search query is blank")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	needle := strings.ToLower(p.Query)

	ms, _ := s.ExportAll(ctx, p.WorldID)
	results := []store.SearchResult{}
	for _, m := range ms {
		for _, l := range model.Levels {
			if p.Level != "" && p.Level != l {
				continue
			}
			for _, f := range m.State(l).Facts {
				if p.Kind != "" && f.Kind != p.Kind {
					continue
				}
				if !strings.Contains(strings.ToLower(f.Content), needle) {
					continue
				}
				results = append(results, store.SearchResult{MemorandumID: m.ID, WorldID: m.WorldID, Level: l, Fact: f})
				if len(results) == limit {
					return results, nil
				}
			}
		}
	}
	return results, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func (s *Store) collect(keep func(model.Memorandum) bool) []model.Memorandum {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Memorandum{}
	for _, m := range s.memoranda {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	model.SortMemoranda(out)
	return out
}
