package store_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/story-memory/internal/store"
	"github.com/rcliao/story-memory/internal/store/storetest"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t) })
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if err := s.Save(ctx, storetest.Memorandum("m1", "w", storetest.Base)); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Close()

	s, err = store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer s.Close()

	got, err := s.Get(ctx, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.FactCount() != 2 {
		t.Fatalf("expected memorandum with 2 facts after reopen, got %+v", got)
	}
}

func TestSearchEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.Save(ctx, storetest.Memorandum("m1", "w", storetest.Base))

	res, err := s.SearchFacts(ctx, store.SearchParams{Query: "%"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res) != 0 {
		t.Errorf("expected literal %% to match nothing, got %d", len(res))
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer s.Close()

	s.Save(ctx, storetest.Memorandum("a", "w1", storetest.Base))
	s.Save(ctx, storetest.Memorandum("b", "w1", storetest.Base.Add(time.Second)))
	s.Save(ctx, storetest.Memorandum("c", "w2", storetest.Base))

	st, err := s.Stats(ctx, dbPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Memoranda != 3 {
		t.Errorf("expected 3 memoranda, got %d", st.Memoranda)
	}
	if st.Facts != 6 {
		t.Errorf("expected 6 facts, got %d", st.Facts)
	}
	if st.Violations != 3 || st.OpenViolations != 3 {
		t.Errorf("expected 3 open violations, got %d/%d", st.OpenViolations, st.Violations)
	}
	if len(st.Worlds) != 2 || st.Worlds[0].WorldID != "w1" || st.Worlds[0].Memoranda != 2 || st.Worlds[0].Facts != 4 {
		t.Errorf("unexpected world stats %+v", st.Worlds)
	}
	if st.DBSizeBytes == 0 {
		t.Error("expected non-zero db size")
	}
}

func TestCorruptJSONColumnsFailLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer s.Close()

	if err := s.Save(ctx, storetest.Memorandum("m1", "w1", storetest.Base)); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	defer raw.Close()

	if _, err := raw.ExecContext(ctx, `UPDATE facts SET entity_refs = 'not json'`); err != nil {
		t.Fatalf("corrupt facts: %v", err)
	}
	if _, err := s.Get(ctx, "m1"); err == nil {
		t.Error("expected error for corrupt entity_refs")
	}

	if _, err := raw.ExecContext(ctx, `UPDATE facts SET entity_refs = '["Aric"]'`); err != nil {
		t.Fatalf("restore facts: %v", err)
	}
	if _, err := raw.ExecContext(ctx, `UPDATE violations SET fact_ids = '{'`); err != nil {
		t.Fatalf("corrupt violations: %v", err)
	}
	if _, err := s.Get(ctx, "m1"); err == nil {
		t.Error("expected error for corrupt fact_ids")
	}
}
