package store

import (
	"context"

	"github.com/rcliao/story-memory/internal/model"
)

// ExportAll returns all memoranda, optionally filtered by world, ordered by
// (created_at, id).
func (s *SQLiteStore) ExportAll(ctx context.Context, worldID string) ([]model.Memorandum, error) {
	if worldID != "" {
		return s.ListByWorld(ctx, worldID)
	}
	return s.list(ctx, "")
}
