package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/story-memory/internal/apperrors"
	"github.com/rcliao/story-memory/internal/model"
)

// SearchFacts finds facts whose content contains the query, ignoring ASCII
// case. Results are ordered by memorandum creation, then level, then fact id.
func (s *SQLiteStore) SearchFacts(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "search query is blank")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"f.content LIKE ? ESCAPE '\\'"}
	args := []interface{}{"%" + escapeLike(p.Query) + "%"}

	if p.WorldID != "" {
		where = append(where, "m.world_id = ?")
		args = append(args, p.WorldID)
	}
	if p.Kind != "" {
		where = append(where, "f.kind = ?")
		args = append(args, string(p.Kind))
	}
	if p.Level != "" {
		where = append(where, "cs.level = ?")
		args = append(args, string(p.Level))
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.world_id, cs.level,
		       f.id, f.content, f.kind, f.level, f.entity_refs, f.time_context, f.confidence, f.source_id, f.created_at
		FROM facts f
		INNER JOIN canonical_states cs ON cs.id = f.state_id
		INNER JOIN memoranda m ON m.id = cs.memorandum_id
		WHERE %s
		ORDER BY m.created_at, m.id,
		         CASE cs.level WHEN 'event' THEN 0 WHEN 'chapter' THEN 1 WHEN 'arc' THEN 2 ELSE 3 END,
		         f.id
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		var level string
		var memID, worldID string
		f, err := scanFact(prefixScanner{row: rows, prefix: []interface{}{&memID, &worldID, &level}})
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.MemorandumID = memID
		r.WorldID = worldID
		r.Level = model.Level(level)
		r.Fact = f
		results = append(results, r)
	}
	return results, rows.Err()
}

// prefixScanner scans leading columns into prefix before the wrapped
// destinations.
type prefixScanner struct {
	row    scanner
	prefix []interface{}
}

func (p prefixScanner) Scan(dest ...interface{}) error {
	return p.row.Scan(append(append([]interface{}{}, p.prefix...), dest...)...)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
