package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/story-memory/internal/apperrors"
	"github.com/rcliao/story-memory/internal/event"
	"github.com/rcliao/story-memory/internal/extract"
	"github.com/rcliao/story-memory/internal/model"
	"github.com/rcliao/story-memory/internal/store"
	"github.com/rcliao/story-memory/internal/store/inmemory"
	"github.com/rcliao/story-memory/internal/summary"
)

const world = "eldoria"

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// stepClock advances one second per reading.
type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T) (*Service, *inmemory.Store, *stepClock) {
	t.Helper()
	st := inmemory.New()
	clock := &stepClock{t: start}
	n := 0
	svc := NewService(st,
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("m-%03d", n)
		}),
	)
	return svc, st, clock
}

func names() extract.Context {
	return extract.Context{EntityNames: map[string]string{
		"aric": "Aric", "bryn": "Bryn", "forest": "Forest", "tower": "Tower",
	}}
}

func died(id string, at time.Time) event.CharacterDied {
	return event.CharacterDied{Header: event.Header{ID: id, At: at}, CharacterID: "aric", Cause: "battle"}
}

func moved(id string, at time.Time) event.CharacterMoved {
	return event.CharacterMoved{Header: event.Header{ID: id, At: at}, CharacterID: "aric", FromLocationID: "forest", ToLocationID: "tower"}
}

func aliveFact() *model.Fact {
	return &model.Fact{Content: "Aric is alive", Kind: model.KindCharacterState, EntityRefs: []string{"Aric"}, Confidence: 1}
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if got := apperrors.CodeOf(err); got != want {
		t.Errorf("expected code %s, got %s (%v)", want, got, err)
	}
}

func TestRememberEvent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	m, err := svc.RememberEvent(ctx, world, died("ev-1", start), names())
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if m.ID != "m-001" || m.WorldID != world {
		t.Errorf("unexpected header %s/%s", m.ID, m.WorldID)
	}
	if m.Title != "Event: character.died" {
		t.Errorf("unexpected title %q", m.Title)
	}
	facts := m.State(model.LevelEvent).Facts
	if len(facts) != 1 || facts[0].Content != "Aric died (battle)" {
		t.Fatalf("expected the death fact at event level, got %+v", facts)
	}
	for _, l := range []model.Level{model.LevelChapter, model.LevelArc, model.LevelWorld} {
		if m.State(l).Len() != 0 {
			t.Errorf("expected empty %s state", l)
		}
	}

	got, err := svc.RetrieveMemorandum(ctx, m.ID)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got == nil || got.FactCount() != 1 {
		t.Errorf("expected persisted memorandum, got %+v", got)
	}
}

func TestRememberEventErrors(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)

	_, err := svc.RememberEvent(ctx, world, nil, names())
	assertCode(t, err, apperrors.CodeNilEvent)

	_, err = svc.RememberEvent(ctx, " ", died("ev-1", start), names())
	assertCode(t, err, apperrors.CodeInvalidArgument)

	only := NewService(st, WithExtractors(extract.MovementExtractor{}))
	_, err = only.RememberEvent(ctx, world, died("ev-1", start), names())
	assertCode(t, err, apperrors.CodeUnsupportedEventKind)

	all, _ := st.ListByWorld(ctx, world)
	if len(all) != 0 {
		t.Errorf("expected nothing persisted, got %d", len(all))
	}
}

func TestRememberChapter(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.RememberChapter(ctx, world, nil, names())
	assertCode(t, err, apperrors.CodeEmptyEvents)

	events := []event.Event{moved("ev-1", start), died("ev-2", start.Add(time.Hour)), died("ev-2", start.Add(time.Hour))}
	m, err := svc.RememberChapter(ctx, world, events, names())
	if err != nil {
		t.Fatalf("remember chapter: %v", err)
	}
	facts := m.State(model.LevelChapter).Facts
	if len(facts) != 3 {
		t.Fatalf("expected 3 deduplicated chapter facts, got %d", len(facts))
	}
	for _, f := range facts {
		if f.Level != model.LevelChapter {
			t.Errorf("expected chapter level, got %s", f.Level)
		}
	}
	if m.State(model.LevelEvent).Len() != 0 {
		t.Error("expected empty event state")
	}
	if m.Description != summary.SummarizeChapter(facts) {
		t.Errorf("expected chapter summary description, got %q", m.Description)
	}
	if !strings.Contains(m.Description, "Aric died (battle)") {
		t.Errorf("expected summary to mention the death, got %q", m.Description)
	}
}

func TestRememberArc(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.RememberArc(ctx, world, [][]event.Event{{moved("ev-1", start)}, {}}, names())
	assertCode(t, err, apperrors.CodeEmptyEvents)

	chapters := [][]event.Event{{moved("ev-1", start)}, {died("ev-2", start.Add(time.Hour))}}
	m, err := svc.RememberArc(ctx, world, chapters, names())
	if err != nil {
		t.Fatalf("remember arc: %v", err)
	}
	if m.State(model.LevelArc).Len() != 3 {
		t.Errorf("expected 3 arc facts, got %d", m.State(model.LevelArc).Len())
	}
	if !strings.Contains(m.Description, summary.ArcSeparator) {
		t.Errorf("expected arc summary joined by %q, got %q", summary.ArcSeparator, m.Description)
	}
}

func TestRetrieveMissing(t *testing.T) {
	svc, _, _ := newTestService(t)
	m, err := svc.RetrieveMemorandum(context.Background(), "nope")
	if err != nil || m != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", m, err)
	}
}

func TestFindMemorandaByEntity(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.FindMemorandaByEntity(ctx, world, "  ")
	assertCode(t, err, apperrors.CodeBlankEntity)

	svc.RememberEvent(ctx, world, died("ev-1", start), names())
	svc.RememberEvent(ctx, world, event.CharacterEncountered{
		Header: event.Header{ID: "ev-2", At: start}, CharacterID: "bryn", OtherID: "forest",
	}, names())
	svc.RememberEvent(ctx, "other", died("ev-3", start), names())

	found, err := svc.FindMemorandaByEntity(ctx, world, "aric")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 1 || found[0].ID != "m-001" {
		t.Errorf("expected only m-001, got %d memoranda", len(found))
	}

	none, _ := svc.FindMemorandaByEntity(ctx, world, "Tower")
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil result, got %v", none)
	}
}

func TestSummarizeHistory(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.SummarizeHistory(ctx, world, nil, 100, names())
	assertCode(t, err, apperrors.CodeEmptyEvents)
	_, err = svc.SummarizeHistory(ctx, world, []event.Event{died("ev-1", start)}, 0, names())
	assertCode(t, err, apperrors.CodeInvalidArgument)

	events := []event.Event{moved("ev-1", start), died("ev-2", start.Add(time.Hour))}
	full, err := svc.SummarizeHistory(ctx, world, events, 1000, names())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if strings.HasSuffix(full, summary.Ellipsis) {
		t.Errorf("expected untruncated summary, got %q", full)
	}

	short, _ := svc.SummarizeHistory(ctx, world, events, 12, names())
	if len([]rune(short)) != 12 || !strings.HasSuffix(short, summary.Ellipsis) {
		t.Errorf("expected 12 chars ending in ellipsis, got %q", short)
	}
	if !strings.HasPrefix(full, strings.TrimSuffix(short, summary.Ellipsis)) {
		t.Errorf("expected %q to prefix %q", short, full)
	}
}

func TestAssertFact(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.AssertFact(ctx, world, nil)
	assertCode(t, err, apperrors.CodeNilFact)

	bad := aliveFact()
	bad.Confidence = 2
	_, err = svc.AssertFact(ctx, world, bad)
	assertCode(t, err, apperrors.CodeInvalidFact)

	f := aliveFact()
	f.Level = model.LevelWorld
	m, err := svc.AssertFact(ctx, world, f)
	if err != nil {
		t.Fatalf("assert: %v", err)
	}
	held := m.State(model.LevelWorld).Facts
	if len(held) != 1 || held[0].ID == "" || held[0].CreatedAt == nil {
		t.Errorf("expected one world-level fact with id and time, got %+v", held)
	}
	if f.ID != "" {
		t.Error("expected caller's fact untouched")
	}
}

func TestValidateCoherence(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	svc.RememberEvent(ctx, world, died("ev-1", start), names())
	svc.AssertFact(ctx, world, aliveFact())

	vs, err := svc.ValidateCoherence(ctx, world, nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(vs) != 1 || vs[0].Kind != model.ViolationStatementContradiction || len(vs[0].FactIDs) != 2 {
		t.Fatalf("expected one contradiction over two facts, got %+v", vs)
	}

	only, _ := svc.RetrieveMemorandum(ctx, "m-001")
	vs, _ = svc.ValidateCoherence(ctx, world, []model.Memorandum{*only})
	if len(vs) != 0 {
		t.Errorf("expected no violations for one memorandum, got %+v", vs)
	}
}

func TestConsolidateAndCanonicalState(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.ConsolidateWorld(ctx, world)
	assertCode(t, err, apperrors.CodeNotFound)

	svc.RememberEvent(ctx, world, died("ev-1", start), names())
	svc.AssertFact(ctx, world, aliveFact())

	m, err := svc.ConsolidateWorld(ctx, world)
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if m.State(model.LevelWorld).Len() != 2 {
		t.Errorf("expected 2 world facts, got %d", m.State(model.LevelWorld).Len())
	}
	if !strings.HasPrefix(m.Description, "## Arc 1") {
		t.Errorf("expected world summary, got %q", m.Description)
	}
	kinds := map[model.ViolationKind]int{}
	for _, v := range m.Violations {
		kinds[v.Kind]++
	}
	if kinds[model.ViolationStatementContradiction] != 1 || kinds[model.ViolationSequence] != 1 {
		t.Errorf("expected one contradiction and one resurrection, got %v", kinds)
	}

	before, err := svc.GetCanonicalState(ctx, world, m.CreatedAt.Add(-time.Nanosecond))
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if before.Len() != 0 {
		t.Errorf("expected empty state before consolidation, got %d facts", before.Len())
	}

	after, _ := svc.GetCanonicalState(ctx, world, m.CreatedAt)
	if after.Len() != 2 || after.Level != model.LevelWorld {
		t.Errorf("expected 2 world facts, got %d at %s", after.Len(), after.Level)
	}
	if !after.UpdatedAt.Equal(m.UpdatedAt) {
		t.Errorf("expected updated at %v, got %v", m.UpdatedAt, after.UpdatedAt)
	}

	again, _ := svc.ConsolidateWorld(ctx, world)
	merged, _ := svc.GetCanonicalState(ctx, world, again.CreatedAt)
	if merged.Len() != 2 {
		t.Errorf("expected repeated consolidation to add no facts, got %d", merged.Len())
	}
}

func TestResolveViolation(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newTestService(t)

	svc.RememberEvent(ctx, world, died("ev-1", start), names())
	svc.AssertFact(ctx, world, aliveFact())
	m, _ := svc.ConsolidateWorld(ctx, world)
	vid := m.Violations[0].ID

	_, err := svc.ResolveViolation(ctx, "nope", vid, "retcon")
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = svc.ResolveViolation(ctx, m.ID, "nope", "retcon")
	assertCode(t, err, apperrors.CodeNotFound)

	resolved, err := svc.ResolveViolation(ctx, m.ID, vid, "retcon")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.Violations[0].Resolved() || resolved.Violations[0].Resolution != "retcon" {
		t.Errorf("expected resolved violation, got %+v", resolved.Violations[0])
	}
	stored, _ := st.Get(ctx, m.ID)
	if !stored.Violations[0].Resolved() {
		t.Error("expected resolution persisted")
	}
	if m.Violations[0].Resolved() {
		t.Error("expected original value untouched")
	}
}

var errBoom = errors.New("disk full")

type failingStore struct {
	store.Store
}

func (failingStore) Save(context.Context, model.Memorandum) error { return errBoom }

func (failingStore) ListByWorld(context.Context, string) ([]model.Memorandum, error) {
	return nil, errBoom
}

func (failingStore) Get(context.Context, string) (*model.Memorandum, error) { return nil, errBoom }

func TestStorageErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewService(failingStore{Store: inmemory.New()})

	_, err := svc.RememberEvent(ctx, world, died("ev-1", start), names())
	assertCode(t, err, apperrors.CodeStorage)
	if !errors.Is(err, errBoom) {
		t.Errorf("expected cause preserved, got %v", err)
	}

	_, err = svc.RetrieveMemorandum(ctx, "m")
	assertCode(t, err, apperrors.CodeStorage)
	_, err = svc.FindMemorandaByEntity(ctx, world, "Aric")
	assertCode(t, err, apperrors.CodeStorage)
	_, err = svc.GetCanonicalState(ctx, world, start)
	assertCode(t, err, apperrors.CodeStorage)
	_, err = svc.ValidateCoherence(ctx, world, nil)
	assertCode(t, err, apperrors.CodeStorage)
}

func TestDefaultIDsAreULIDs(t *testing.T) {
	svc := NewService(inmemory.New())
	a, err := svc.RememberEvent(context.Background(), world, died("ev-1", start), names())
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	b, _ := svc.RememberEvent(context.Background(), world, died("ev-2", start), names())
	if len(a.ID) != 26 || a.ID == b.ID {
		t.Errorf("expected distinct 26-char ULIDs, got %q and %q", a.ID, b.ID)
	}
}
