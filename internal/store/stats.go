package store

import (
	"context"
	"fmt"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string       `json:"db_path"`
	DBSizeBytes    int64        `json:"db_size_bytes"`
	Memoranda      int          `json:"memoranda"`
	Facts          int          `json:"facts"`
	Violations     int          `json:"violations"`
	OpenViolations int          `json:"open_violations"`
	Worlds         []WorldStats `json:"worlds"`
}

// WorldStats holds per-world counts.
type WorldStats struct {
	WorldID   string `json:"world_id"`
	Memoranda int    `json:"memoranda"`
	Facts     int    `json:"facts"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM memoranda`, &st.Memoranda},
		{`SELECT COUNT(*) FROM facts`, &st.Facts},
		{`SELECT COUNT(*) FROM violations`, &st.Violations},
		{`SELECT COUNT(*) FROM violations WHERE resolved_at IS NULL`, &st.OpenViolations},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.world_id, COUNT(DISTINCT m.id) AS cnt, COUNT(f.id) AS facts
		FROM memoranda m
		LEFT JOIN canonical_states cs ON cs.memorandum_id = m.id
		LEFT JOIN facts f ON f.state_id = cs.id
		GROUP BY m.world_id ORDER BY cnt DESC, m.world_id`)
	if err != nil {
		return nil, fmt.Errorf("world stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w WorldStats
		if err := rows.Scan(&w.WorldID, &w.Memoranda, &w.Facts); err != nil {
			return nil, fmt.Errorf("scan world stats: %w", err)
		}
		st.Worlds = append(st.Worlds, w)
	}

	return st, rows.Err()
}
