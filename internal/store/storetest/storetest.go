// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/rcliao/story-memory/internal/model"
	"github.com/rcliao/story-memory/internal/store"
)

// Base is the creation time of the first fixture memorandum.
var Base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// Memorandum builds a fixture with two event-level facts and one violation.
func Memorandum(id, world string, created time.Time) model.Memorandum {
	at := created.Add(-time.Minute)
	f1 := model.Fact{ID: id + "-f1", Content: "Aric died (battle)", Kind: model.KindCharacterState,
		EntityRefs: []string{"Aric"}, Confidence: 1, SourceID: "ev-1", TimeContext: at.Format(time.RFC3339), CreatedAt: &at}
	f2 := model.Fact{ID: id + "-f2", Content: "Aric is alive", Kind: model.KindCharacterState,
		EntityRefs: []string{"Aric"}, Confidence: 0.8}
	m := model.NewMemorandum(id, world, "Event: character.died", "", created)
	m = m.WithFacts(model.LevelEvent, []model.Fact{f1, f2}, created)
	return m.WithViolations([]model.CoherenceViolation{{
		ID:          id + "-v1",
		Kind:        model.ViolationStatementContradiction,
		Severity:    model.SeverityError,
		Description: `"Aric died (battle)" contradicts "Aric is alive"`,
		FactIDs:     []string{f1.ID, f2.ID},
		Level:       model.LevelEvent,
		DetectedAt:  created,
	}}, created)
}

// Run exercises the port contract against stores built by open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := open(t)
		got, err := s.Get(context.Background(), "nope")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil memorandum, got %+v", got)
		}
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		want := Memorandum("m1", "w", Base)
		if err := s.Save(ctx, want); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err := s.Get(ctx, "m1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got == nil {
			t.Fatal("expected memorandum, got nil")
		}
		assertEqual(t, want, *got)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		m := Memorandum("m1", "w", Base)
		if err := s.Save(ctx, m); err != nil {
			t.Fatalf("save: %v", err)
		}
		later := Base.Add(time.Hour)
		updated, err := m.WithResolvedViolation("m1-v1", "retcon", later)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		updated = updated.WithFacts(model.LevelWorld, updated.State(model.LevelEvent).Facts, later)
		if err := s.Save(ctx, updated); err != nil {
			t.Fatalf("save update: %v", err)
		}
		got, _ := s.Get(ctx, "m1")
		assertEqual(t, updated, *got)

		all, _ := s.ListByWorld(ctx, "w")
		if len(all) != 1 {
			t.Errorf("expected 1 memorandum after upsert, got %d", len(all))
		}
	})

	t.Run("ListByWorldOrdered", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		s.Save(ctx, Memorandum("c", "w", Base.Add(2*time.Minute)))
		s.Save(ctx, Memorandum("b", "w", Base))
		s.Save(ctx, Memorandum("a", "w", Base))
		s.Save(ctx, Memorandum("x", "other", Base))

		got, err := s.ListByWorld(ctx, "w")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		var ids []string
		for _, m := range got {
			ids = append(ids, m.ID)
		}
		if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
			t.Errorf("expected [a b c], got %v", ids)
		}

		empty, err := s.ListByWorld(ctx, "none")
		if err != nil {
			t.Fatalf("list empty: %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("expected no memoranda, got %d", len(empty))
		}
	})

	t.Run("Import", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		ms := []model.Memorandum{Memorandum("a", "w", Base), Memorandum("b", "w", Base.Add(time.Second))}
		n, err := store.Import(ctx, s, ms)
		if err != nil {
			t.Fatalf("import: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 imported, got %d", n)
		}
		store.Import(ctx, s, ms)
		got, _ := s.ListByWorld(ctx, "w")
		if len(got) != 2 {
			t.Errorf("expected re-import to upsert, got %d memoranda", len(got))
		}
	})

	t.Run("Search", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		searcher, ok := s.(store.Searcher)
		if !ok {
			t.Skip("store does not search")
		}
		s.Save(ctx, Memorandum("a", "w", Base))
		s.Save(ctx, Memorandum("b", "other", Base.Add(time.Second)))

		res, err := searcher.SearchFacts(ctx, store.SearchParams{Query: "DIED"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(res) != 2 {
			t.Fatalf("expected 2 results, got %d", len(res))
		}
		if res[0].MemorandumID != "a" || res[0].Level != model.LevelEvent {
			t.Errorf("unexpected first result %+v", res[0])
		}

		res, _ = searcher.SearchFacts(ctx, store.SearchParams{WorldID: "w", Query: "died"})
		if len(res) != 1 {
			t.Errorf("expected 1 result in world w, got %d", len(res))
		}
		res, _ = searcher.SearchFacts(ctx, store.SearchParams{Query: "dragon"})
		if len(res) != 0 {
			t.Errorf("expected no results, got %d", len(res))
		}
		if _, err := searcher.SearchFacts(ctx, store.SearchParams{Query: "  "}); err == nil {
			t.Error("expected error for blank query")
		}
	})

	t.Run("ExportAll", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		exporter, ok := s.(store.Exporter)
		if !ok {
			t.Skip("store does not export")
		}
		s.Save(ctx, Memorandum("b", "w2", Base.Add(time.Second)))
		s.Save(ctx, Memorandum("a", "w1", Base))

		all, err := exporter.ExportAll(ctx, "")
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
			t.Errorf("expected [a b], got %d memoranda", len(all))
		}
		one, _ := exporter.ExportAll(ctx, "w2")
		if len(one) != 1 || one[0].ID != "b" {
			t.Errorf("expected only b for w2, got %+v", one)
		}
	})
}

func assertEqual(t *testing.T, want, got model.Memorandum) {
	t.Helper()
	if got.ID != want.ID || got.WorldID != want.WorldID || got.Title != want.Title || got.Description != want.Description {
		t.Errorf("header mismatch: expected %+v, got %+v", want, got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("timestamps mismatch: expected %v/%v, got %v/%v", want.CreatedAt, want.UpdatedAt, got.CreatedAt, got.UpdatedAt)
	}
	for _, l := range model.Levels {
		ws, gs := want.State(l), got.State(l)
		if gs.ID != ws.ID || gs.Version != ws.Version || gs.Level != l {
			t.Errorf("%s state mismatch: expected %s v%d, got %s v%d", l, ws.ID, ws.Version, gs.ID, gs.Version)
		}
		if len(gs.Facts) != len(ws.Facts) {
			t.Errorf("%s: expected %d facts, got %d", l, len(ws.Facts), len(gs.Facts))
			continue
		}
		for i := range ws.Facts {
			assertFactEqual(t, ws.Facts[i], gs.Facts[i])
		}
	}
	if len(got.Violations) != len(want.Violations) {
		t.Fatalf("expected %d violations, got %d", len(want.Violations), len(got.Violations))
	}
	for i, wv := range want.Violations {
		gv := got.Violations[i]
		if gv.ID != wv.ID || gv.Kind != wv.Kind || gv.Severity != wv.Severity || gv.Description != wv.Description ||
			gv.Resolution != wv.Resolution || gv.Level != wv.Level || !reflect.DeepEqual(gv.FactIDs, wv.FactIDs) {
			t.Errorf("violation mismatch: expected %+v, got %+v", wv, gv)
		}
		if !gv.DetectedAt.Equal(wv.DetectedAt) || gv.Resolved() != wv.Resolved() {
			t.Errorf("violation times mismatch: expected %+v, got %+v", wv, gv)
		}
	}
}

func assertFactEqual(t *testing.T, want, got model.Fact) {
	t.Helper()
	if got.ID != want.ID || got.Content != want.Content || got.Kind != want.Kind || got.Level != want.Level ||
		got.Confidence != want.Confidence || got.SourceID != want.SourceID || got.TimeContext != want.TimeContext ||
		!reflect.DeepEqual(got.EntityRefs, want.EntityRefs) {
		t.Errorf("fact mismatch: expected %+v, got %+v", want, got)
	}
	if (got.CreatedAt == nil) != (want.CreatedAt == nil) ||
		(got.CreatedAt != nil && !got.CreatedAt.Equal(*want.CreatedAt)) {
		t.Errorf("fact %s created_at mismatch", want.ID)
	}
}
