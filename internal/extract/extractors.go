package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/story-memory/internal/apperrors"
	"github.com/rcliao/story-memory/internal/event"
	"github.com/rcliao/story-memory/internal/model"
)

// Confidence levels assigned by the built-in extractors.
const (
	ConfidenceCertain  = 1.0
	ConfidenceLearned  = 0.9
	ConfidenceInferred = 0.8
)

// Defaults returns one instance of every built-in extractor.
func Defaults() []Extractor {
	return []Extractor{
		DeathExtractor{},
		MovementExtractor{},
		EncounterExtractor{},
		KnowledgeExtractor{},
		DestructionExtractor{},
	}
}

// DeathExtractor handles character.died.
type DeathExtractor struct{}

func (DeathExtractor) Kinds() []event.Kind { return []event.Kind{event.KindCharacterDied} }

func (DeathExtractor) Extract(ev event.Event, ctx Context) ([]model.Fact, error) {
	e, ok := ev.(event.CharacterDied)
	if !ok {
		return nil, wrongType(ev, "CharacterDied")
	}
	name := ctx.Name(e.CharacterID)
	content := name + " died"
	if cause := strings.TrimSpace(e.Cause); cause != "" {
		content += " (" + cause + ")"
	}
	f, err := newFact(ev, ctx, content, model.KindCharacterState, ConfidenceCertain, name)
	if err != nil {
		return nil, err
	}
	return []model.Fact{f}, nil
}

// MovementExtractor handles character.moved. It yields the movement itself
// and the derived current location of the character.
type MovementExtractor struct{}

func (MovementExtractor) Kinds() []event.Kind { return []event.Kind{event.KindCharacterMoved} }

func (MovementExtractor) Extract(ev event.Event, ctx Context) ([]model.Fact, error) {
	e, ok := ev.(event.CharacterMoved)
	if !ok {
		return nil, wrongType(ev, "CharacterMoved")
	}
	name := ctx.Name(e.CharacterID)
	to := ctx.Name(e.ToLocationID)
	from := ctx.Name(e.FromLocationID)

	moved := name + " moved to " + to
	if from != "" {
		moved = name + " moved from " + from + " to " + to
	}
	movement, err := newFact(ev, ctx, moved, model.KindEvent, ConfidenceCertain, name, from, to)
	if err != nil {
		return nil, err
	}
	state, err := newFact(ev, ctx, name+" is at "+to, model.KindLocationState, ConfidenceCertain, name)
	if err != nil {
		return nil, err
	}
	return []model.Fact{movement, state}, nil
}

// EncounterExtractor handles character.encountered. Meeting implies the
// characters know each other, recorded with lower confidence.
type EncounterExtractor struct{}

func (EncounterExtractor) Kinds() []event.Kind { return []event.Kind{event.KindCharacterEncountered} }

func (EncounterExtractor) Extract(ev event.Event, ctx Context) ([]model.Fact, error) {
	e, ok := ev.(event.CharacterEncountered)
	if !ok {
		return nil, wrongType(ev, "CharacterEncountered")
	}
	a := ctx.Name(e.CharacterID)
	b := ctx.Name(e.OtherID)
	where := ctx.Name(e.LocationID)

	met := a + " encountered " + b
	if where != "" {
		met += " at " + where
	}
	encounter, err := newFact(ev, ctx, met, model.KindEvent, ConfidenceCertain, a, b, where)
	if err != nil {
		return nil, err
	}
	knows, err := newFact(ev, ctx, a+" knows "+b, model.KindRelationship, ConfidenceInferred, a, b)
	if err != nil {
		return nil, err
	}
	return []model.Fact{encounter, knows}, nil
}

// KnowledgeExtractor handles character.learned.
type KnowledgeExtractor struct{}

func (KnowledgeExtractor) Kinds() []event.Kind { return []event.Kind{event.KindCharacterLearned} }

func (KnowledgeExtractor) Extract(ev event.Event, ctx Context) ([]model.Fact, error) {
	e, ok := ev.(event.CharacterLearned)
	if !ok {
		return nil, wrongType(ev, "CharacterLearned")
	}
	name := ctx.Name(e.CharacterID)
	secret := strings.TrimRight(strings.TrimSpace(e.Secret), ".")
	f, err := newFact(ev, ctx, name+" learned that "+secret, model.KindKnowledge, ConfidenceLearned, name)
	if err != nil {
		return nil, err
	}
	return []model.Fact{f}, nil
}

// DestructionExtractor handles location.destroyed.
type DestructionExtractor struct{}

func (DestructionExtractor) Kinds() []event.Kind { return []event.Kind{event.KindLocationDestroyed} }

func (DestructionExtractor) Extract(ev event.Event, ctx Context) ([]model.Fact, error) {
	e, ok := ev.(event.LocationDestroyed)
	if !ok {
		return nil, wrongType(ev, "LocationDestroyed")
	}
	name := ctx.Name(e.LocationID)
	content := name + " was destroyed"
	if cause := strings.TrimSpace(e.Cause); cause != "" {
		content += " (" + cause + ")"
	}
	f, err := newFact(ev, ctx, content, model.KindLocationState, ConfidenceCertain, name)
	if err != nil {
		return nil, err
	}
	return []model.Fact{f}, nil
}

func newFact(ev event.Event, ctx Context, content string, kind model.FactKind, confidence float64, refs ...string) (model.Fact, error) {
	f := model.Fact{
		Content:    content,
		Kind:       kind,
		Level:      model.LevelEvent,
		EntityRefs: refs,
		Confidence: confidence,
		SourceID:   ev.EventID(),
	}
	if at := ctx.at(ev); !at.IsZero() {
		at = at.UTC()
		f.CreatedAt = &at
		f.TimeContext = at.Format(time.RFC3339)
	}
	return model.NewFact(f)
}

// wrongType reports an event whose kind is registered but whose concrete
// type is not the one the extractor handles, such as a pointer.
func wrongType(ev event.Event, want string) error {
	return apperrors.New(apperrors.CodeUnsupportedEventKind,
		fmt.Sprintf("expected event.%s for kind %s, got %T", want, ev.Kind(), ev))
}
