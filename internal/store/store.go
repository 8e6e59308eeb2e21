// Package store provides the memorandum storage port and its SQLite implementation.
package store

import (
	"context"

	"github.com/rcliao/story-memory/internal/model"
)

// Store persists memoranda. Absence is not an error: Get returns (nil, nil)
// for an unknown id.
type Store interface {
	// Get retrieves a memorandum by id.
	Get(ctx context.Context, id string) (*model.Memorandum, error)

	// ListByWorld returns every memorandum of a world ordered by creation
	// time, ties broken by id.
	ListByWorld(ctx context.Context, worldID string) ([]model.Memorandum, error)

	// Save inserts or replaces a memorandum.
	Save(ctx context.Context, m model.Memorandum) error

	// Close closes the store.
	Close() error
}

// Exporter is implemented by stores that can dump memoranda across worlds.
type Exporter interface {
	// ExportAll returns every memorandum, optionally filtered by world.
	ExportAll(ctx context.Context, worldID string) ([]model.Memorandum, error)
}

// Searcher is implemented by stores that can search fact content.
type Searcher interface {
	SearchFacts(ctx context.Context, p SearchParams) ([]SearchResult, error)
}

// SearchParams holds parameters for searching facts.
type SearchParams struct {
	WorldID string
	Query   string
	Kind    model.FactKind
	Level   model.Level
	Limit   int
}

// SearchResult is a matching fact with the memorandum holding it.
type SearchResult struct {
	MemorandumID string      `json:"memorandum_id"`
	WorldID      string      `json:"world_id"`
	Level        model.Level `json:"level"`
	Fact         model.Fact  `json:"fact"`
}

// Import saves memoranda from an export. Saving is an upsert, so importing
// the same export twice leaves one copy of each memorandum.
func Import(ctx context.Context, s Store, memoranda []model.Memorandum) (int, error) {
	imported := 0
	for _, m := range memoranda {
		if err := s.Save(ctx, m); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}
