package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/story-memory/internal/model"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memoranda (
		id          TEXT PRIMARY KEY,
		world_id    TEXT NOT NULL,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memoranda_world ON memoranda(world_id, created_at, id);

	CREATE TABLE IF NOT EXISTS canonical_states (
		id            TEXT PRIMARY KEY,
		memorandum_id TEXT NOT NULL REFERENCES memoranda(id) ON DELETE CASCADE,
		world_id      TEXT NOT NULL,
		level         TEXT NOT NULL,
		version       INTEGER NOT NULL DEFAULT 0,
		updated_at    TEXT NOT NULL,
		UNIQUE (memorandum_id, level)
	);

	CREATE TABLE IF NOT EXISTS facts (
		state_id     TEXT NOT NULL REFERENCES canonical_states(id) ON DELETE CASCADE,
		id           TEXT NOT NULL,
		content      TEXT NOT NULL,
		kind         TEXT NOT NULL,
		level        TEXT NOT NULL,
		entity_refs  TEXT,
		time_context TEXT,
		confidence   REAL NOT NULL,
		source_id    TEXT,
		created_at   TEXT,
		PRIMARY KEY (state_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_facts_kind ON facts(kind);

	CREATE TABLE IF NOT EXISTS violations (
		memorandum_id TEXT NOT NULL REFERENCES memoranda(id) ON DELETE CASCADE,
		id            TEXT NOT NULL,
		seq           INTEGER NOT NULL,
		kind          TEXT NOT NULL,
		severity      TEXT NOT NULL,
		description   TEXT NOT NULL,
		fact_ids      TEXT NOT NULL,
		resolution    TEXT,
		level         TEXT,
		detected_at   TEXT NOT NULL,
		resolved_at   TEXT,
		PRIMARY KEY (memorandum_id, id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get retrieves a memorandum by id. A missing id is (nil, nil).
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Memorandum, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, world_id, title, description, created_at, updated_at
		 FROM memoranda WHERE id = ?`, id)
	m, err := scanMemorandum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memorandum: %w", err)
	}
	if err := s.loadChildren(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByWorld returns the memoranda of a world ordered by (created_at, id).
func (s *SQLiteStore) ListByWorld(ctx context.Context, worldID string) ([]model.Memorandum, error) {
	return s.list(ctx, `WHERE world_id = ?`, worldID)
}

func (s *SQLiteStore) list(ctx context.Context, where string, args ...interface{}) ([]model.Memorandum, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, world_id, title, description, created_at, updated_at
		 FROM memoranda `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list memoranda: %w", err)
	}

	memoranda := []model.Memorandum{}
	for rows.Next() {
		m, err := scanMemorandum(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan memorandum: %w", err)
		}
		memoranda = append(memoranda, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range memoranda {
		if err := s.loadChildren(ctx, &memoranda[i]); err != nil {
			return nil, err
		}
	}
	return memoranda, nil
}

// Save upserts a memorandum with its states, facts and violations in one
// transaction. Child rows are replaced wholesale.
func (s *SQLiteStore) Save(ctx context.Context, m model.Memorandum) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memoranda (id, world_id, title, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   world_id = excluded.world_id,
		   title = excluded.title,
		   description = excluded.description,
		   created_at = excluded.created_at,
		   updated_at = excluded.updated_at`,
		m.ID, m.WorldID, m.Title, m.Description, formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert memorandum: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM facts WHERE state_id IN (SELECT id FROM canonical_states WHERE memorandum_id = ?)`, m.ID); err != nil {
		return fmt.Errorf("clear facts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM canonical_states WHERE memorandum_id = ?`, m.ID); err != nil {
		return fmt.Errorf("clear states: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM violations WHERE memorandum_id = ?`, m.ID); err != nil {
		return fmt.Errorf("clear violations: %w", err)
	}

	for _, l := range model.Levels {
		st := m.State(l)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO canonical_states (id, memorandum_id, world_id, level, version, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			st.ID, m.ID, st.WorldID, string(l), st.Version, formatTime(st.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert state: %w", err)
		}
		for _, f := range st.Facts {
			if err := insertFact(ctx, tx, st.ID, f); err != nil {
				return err
			}
		}
	}

	for i, v := range m.Violations {
		factIDs, _ := json.Marshal(v.FactIDs)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO violations (memorandum_id, id, seq, kind, severity, description, fact_ids, resolution, level, detected_at, resolved_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, v.ID, i, string(v.Kind), string(v.Severity), v.Description, string(factIDs),
			nullString(v.Resolution), nullString(string(v.Level)), formatTime(v.DetectedAt), nullTime(v.ResolvedAt))
		if err != nil {
			return fmt.Errorf("insert violation: %w", err)
		}
	}

	return tx.Commit()
}

func insertFact(ctx context.Context, tx *sql.Tx, stateID string, f model.Fact) error {
	var refs *string
	if len(f.EntityRefs) > 0 {
		b, _ := json.Marshal(f.EntityRefs)
		s := string(b)
		refs = &s
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO facts (state_id, id, content, kind, level, entity_refs, time_context, confidence, source_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stateID, f.ID, f.Content, string(f.Kind), string(f.Level), refs,
		nullString(f.TimeContext), f.Confidence, nullString(f.SourceID), nullTime(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert fact: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadChildren(ctx context.Context, m *model.Memorandum) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, world_id, level, version, updated_at
		 FROM canonical_states WHERE memorandum_id = ?`, m.ID)
	if err != nil {
		return fmt.Errorf("load states: %w", err)
	}
	var states []model.CanonicalState
	for rows.Next() {
		var st model.CanonicalState
		var level, updatedAt string
		if err := rows.Scan(&st.ID, &st.WorldID, &level, &st.Version, &updatedAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan state: %w", err)
		}
		st.Level = model.Level(level)
		st.UpdatedAt = parseTime(updatedAt)
		st.Facts = []model.Fact{}
		states = append(states, st)
	}
	rows.Close()

	for _, st := range states {
		facts, err := s.loadFacts(ctx, st.ID)
		if err != nil {
			return err
		}
		st.Facts = facts
		m.States[st.Level] = st
	}

	violations, err := s.loadViolations(ctx, m.ID)
	if err != nil {
		return err
	}
	m.Violations = violations
	return nil
}

func (s *SQLiteStore) loadFacts(ctx context.Context, stateID string) ([]model.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, kind, level, entity_refs, time_context, confidence, source_id, created_at
		 FROM facts WHERE state_id = ? ORDER BY id`, stateID)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	defer rows.Close()

	facts := []model.Fact{}
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (s *SQLiteStore) loadViolations(ctx context.Context, memorandumID string) ([]model.CoherenceViolation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, severity, description, fact_ids, resolution, level, detected_at, resolved_at
		 FROM violations WHERE memorandum_id = ? ORDER BY seq`, memorandumID)
	if err != nil {
		return nil, fmt.Errorf("load violations: %w", err)
	}
	defer rows.Close()

	violations := []model.CoherenceViolation{}
	for rows.Next() {
		var v model.CoherenceViolation
		var kind, severity, factIDs, detectedAt string
		var resolution, level, resolvedAt sql.NullString
		if err := rows.Scan(&v.ID, &kind, &severity, &v.Description, &factIDs,
			&resolution, &level, &detectedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		v.Kind = model.ViolationKind(kind)
		v.Severity = model.Severity(severity)
		if err := json.Unmarshal([]byte(factIDs), &v.FactIDs); err != nil {
			return nil, fmt.Errorf("decode fact_ids of violation %s: %w", v.ID, err)
		}
		v.Resolution = resolution.String
		v.Level = model.Level(level.String)
		v.DetectedAt = parseTime(detectedAt)
		v.ResolvedAt = parseNullTime(resolvedAt)
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanMemorandum reads the memorandum row. States start empty at every level
// and are filled by loadChildren.
func scanMemorandum(row scanner) (model.Memorandum, error) {
	var id, worldID, title, description, createdAt, updatedAt string
	if err := row.Scan(&id, &worldID, &title, &description, &createdAt, &updatedAt); err != nil {
		return model.Memorandum{}, err
	}
	m := model.NewMemorandum(id, worldID, title, description, parseTime(createdAt))
	m.UpdatedAt = parseTime(updatedAt)
	return m, nil
}

func scanFact(row scanner) (model.Fact, error) {
	var f model.Fact
	var kind, level string
	var refs, timeContext, sourceID, createdAt sql.NullString

	err := row.Scan(&f.ID, &f.Content, &kind, &level, &refs, &timeContext,
		&f.Confidence, &sourceID, &createdAt)
	if err != nil {
		return f, err
	}

	f.Kind = model.FactKind(kind)
	f.Level = model.Level(level)
	if refs.Valid {
		if err := json.Unmarshal([]byte(refs.String), &f.EntityRefs); err != nil {
			return f, fmt.Errorf("decode entity_refs of fact %s: %w", f.ID, err)
		}
	}
	f.TimeContext = timeContext.String
	f.SourceID = sourceID.String
	f.CreatedAt = parseNullTime(createdAt)
	return f, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
