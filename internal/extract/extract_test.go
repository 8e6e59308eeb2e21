package extract

import (
	"reflect"
	"testing"
	"time"

	"github.com/rcliao/story-memory/internal/apperrors"
	"github.com/rcliao/story-memory/internal/event"
	"github.com/rcliao/story-memory/internal/model"
)

var at = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testContext() Context {
	return Context{
		WorldID:   "eldoria",
		Timestamp: at,
		EntityNames: map[string]string{
			"aric":   "Aric",
			"bryn":   "Bryn",
			"forest": "Forest",
			"tower":  "Tower",
		},
	}
}

func TestExtractDeath(t *testing.T) {
	s := NewDefaultService()
	facts, err := s.Extract(event.CharacterDied{
		Header:      event.Header{ID: "ev-1", At: at},
		CharacterID: "aric",
		Cause:       "battle",
	}, testContext())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	f := facts[0]
	if f.Content != "Aric died (battle)" {
		t.Errorf("expected 'Aric died (battle)', got %q", f.Content)
	}
	if f.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", f.Confidence)
	}
	if f.Kind != model.KindCharacterState {
		t.Errorf("expected character_state, got %s", f.Kind)
	}
	if !reflect.DeepEqual(f.EntityRefs, []string{"Aric"}) {
		t.Errorf("expected refs [Aric], got %v", f.EntityRefs)
	}
	if f.SourceID != "ev-1" || f.ID == "" {
		t.Errorf("expected source ev-1 and an id, got %q / %q", f.SourceID, f.ID)
	}
}

func TestExtractMoved(t *testing.T) {
	s := NewDefaultService()
	facts, err := s.Extract(event.CharacterMoved{
		Header:         event.Header{ID: "ev-2", At: at},
		CharacterID:    "aric",
		FromLocationID: "forest",
		ToLocationID:   "tower",
	}, testContext())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}
	// sorted by content
	if facts[0].Content != "Aric is at Tower" {
		t.Errorf("expected state fact first, got %q", facts[0].Content)
	}
	if facts[1].Content != "Aric moved from Forest to Tower" {
		t.Errorf("expected movement fact, got %q", facts[1].Content)
	}
	if facts[0].Kind != model.KindLocationState || facts[1].Kind != model.KindEvent {
		t.Errorf("unexpected kinds %s, %s", facts[0].Kind, facts[1].Kind)
	}
}

func TestExtractEncounter(t *testing.T) {
	s := NewDefaultService()
	facts, err := s.Extract(event.CharacterEncountered{
		Header:      event.Header{ID: "ev-3"},
		CharacterID: "aric",
		OtherID:     "bryn",
	}, testContext())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(facts))
	}
	byContent := map[string]model.Fact{}
	for _, f := range facts {
		byContent[f.Content] = f
	}
	if f, ok := byContent["Aric encountered Bryn"]; !ok || f.Kind != model.KindEvent || f.Confidence != 1.0 {
		t.Errorf("missing or wrong encounter fact: %+v", f)
	}
	if f, ok := byContent["Aric knows Bryn"]; !ok || f.Kind != model.KindRelationship || f.Confidence != 0.8 {
		t.Errorf("missing or wrong relationship fact: %+v", f)
	}
}

func TestExtractUnknownEntityFallsBack(t *testing.T) {
	s := NewDefaultService()
	facts, err := s.Extract(event.LocationDestroyed{LocationID: "keep"}, Context{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if facts[0].Content != "Entity_keep was destroyed" {
		t.Errorf("expected fallback label, got %q", facts[0].Content)
	}
	if facts[0].CreatedAt != nil {
		t.Error("expected no timestamp without event or context time")
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	s := NewDefaultService()
	ev := event.CharacterEncountered{
		Header:      event.Header{ID: "ev-4", At: at},
		CharacterID: "aric",
		OtherID:     "bryn",
		LocationID:  "tower",
	}
	a, err := s.Extract(ev, testContext())
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Extract(ev, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected identical output, got %+v and %+v", a, b)
	}
}

type songPerformed struct{ event.Header }

func (songPerformed) Kind() event.Kind { return "bard.sang" }
func (songPerformed) Actors() []string { return nil }

func TestExtractUnsupportedKind(t *testing.T) {
	s := NewDefaultService()
	_, err := s.Extract(songPerformed{}, testContext())
	if apperrors.CodeOf(err) != apperrors.CodeUnsupportedEventKind {
		t.Errorf("expected UNSUPPORTED_EVENT_KIND, got %v", err)
	}
	if s.Supports("bard.sang") {
		t.Error("expected kind to be unsupported")
	}
}

func TestExtractRequiresExactType(t *testing.T) {
	s := NewDefaultService()
	events := []event.Event{
		&event.CharacterDied{CharacterID: "aric"},
		&event.CharacterMoved{CharacterID: "aric", ToLocationID: "tower"},
		&event.LocationDestroyed{LocationID: "tower"},
	}
	for _, ev := range events {
		_, err := s.Extract(ev, testContext())
		if apperrors.CodeOf(err) != apperrors.CodeUnsupportedEventKind {
			t.Errorf("%T: expected UNSUPPORTED_EVENT_KIND, got %v", ev, err)
		}
		if !apperrors.IsInput(err) {
			t.Errorf("%T: expected an input error", ev)
		}
	}
}

func TestExtractNilEvent(t *testing.T) {
	s := NewDefaultService()
	if _, err := s.Extract(nil, testContext()); apperrors.CodeOf(err) != apperrors.CodeNilEvent {
		t.Errorf("expected NIL_EVENT, got %v", err)
	}
	if _, err := s.ExtractBatch([]event.Event{nil}, testContext()); apperrors.CodeOf(err) != apperrors.CodeNilEvent {
		t.Errorf("expected NIL_EVENT from batch, got %v", err)
	}
}

type quietDeath struct{}

func (quietDeath) Kinds() []event.Kind { return []event.Kind{event.KindCharacterDied} }

func (quietDeath) Extract(ev event.Event, ctx Context) ([]model.Fact, error) {
	f, err := model.NewFact(model.Fact{Content: "someone is gone", Kind: model.KindEvent, Confidence: 0.5})
	return []model.Fact{f}, err
}

func TestLastRegistrationWins(t *testing.T) {
	s := NewService(append(Defaults(), quietDeath{})...)
	facts, err := s.Extract(event.CharacterDied{CharacterID: "aric"}, testContext())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(facts) != 1 || facts[0].Content != "someone is gone" {
		t.Errorf("expected override extractor output, got %+v", facts)
	}
}

func TestExtractBatchDedupes(t *testing.T) {
	s := NewDefaultService()
	ev := event.CharacterMoved{Header: event.Header{ID: "ev-5", At: at}, CharacterID: "aric", FromLocationID: "forest", ToLocationID: "tower"}

	single, err := s.ExtractBatch([]event.Event{ev}, testContext())
	if err != nil {
		t.Fatal(err)
	}
	double, err := s.ExtractBatch([]event.Event{ev, ev}, testContext())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(single, double) {
		t.Errorf("expected duplicate events to collapse, got %d vs %d facts", len(single), len(double))
	}
}

func TestExtractBatchSortsByContent(t *testing.T) {
	s := NewDefaultService()
	events := []event.Event{
		event.LocationDestroyed{Header: event.Header{ID: "a", At: at}, LocationID: "tower", Cause: "fire"},
		event.CharacterDied{Header: event.Header{ID: "b", At: at.Add(time.Hour)}, CharacterID: "aric"},
		event.CharacterLearned{Header: event.Header{ID: "c", At: at.Add(2 * time.Hour)}, CharacterID: "bryn", Secret: "the king is a fraud."},
	}
	facts, err := s.ExtractBatch(events, testContext())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Aric died", "Bryn learned that the king is a fraud", "Tower was destroyed (fire)"}
	if len(facts) != len(want) {
		t.Fatalf("expected %d facts, got %d", len(want), len(facts))
	}
	for i, w := range want {
		if facts[i].Content != w {
			t.Errorf("fact %d: expected %q, got %q", i, w, facts[i].Content)
		}
	}
	if got := facts[1].CreatedTime(); !got.Equal(at.Add(2 * time.Hour)) {
		t.Errorf("expected per-event timestamp, got %v", got)
	}
}
