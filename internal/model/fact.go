// Package model defines the core memory data types.
package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FactKind classifies what a fact is about.
type FactKind string

const (
	KindCharacterState FactKind = "character_state"
	KindLocationState  FactKind = "location_state"
	KindRelationship   FactKind = "relationship"
	KindKnowledge      FactKind = "knowledge"
	KindEvent          FactKind = "event"
	KindContradiction  FactKind = "contradiction"
)

// ValidKinds are the allowed fact kinds.
var ValidKinds = map[FactKind]bool{
	KindCharacterState: true,
	KindLocationState:  true,
	KindRelationship:   true,
	KindKnowledge:      true,
	KindEvent:          true,
	KindContradiction:  true,
}

// Level is a narrative hierarchy level.
type Level string

const (
	LevelEvent   Level = "event"
	LevelChapter Level = "chapter"
	LevelArc     Level = "arc"
	LevelWorld   Level = "world"
)

// Levels lists every hierarchy level from finest to coarsest.
var Levels = []Level{LevelEvent, LevelChapter, LevelArc, LevelWorld}

// ValidLevels are the allowed hierarchy levels.
var ValidLevels = map[Level]bool{
	LevelEvent:   true,
	LevelChapter: true,
	LevelArc:     true,
	LevelWorld:   true,
}

// Fact is the smallest recorded unit of truth about a narrative world.
type Fact struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Kind        FactKind   `json:"kind"`
	Level       Level      `json:"level"`
	EntityRefs  []string   `json:"entity_refs,omitempty"`
	TimeContext string     `json:"time_context,omitempty"`
	Confidence  float64    `json:"confidence"`
	SourceID    string     `json:"source_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// NewFact builds a fact and checks its invariants. The id is derived from the
// remaining fields when empty.
func NewFact(f Fact) (Fact, error) {
	f.EntityRefs = NormalizeRefs(f.EntityRefs)
	if f.Level == "" {
		f.Level = LevelEvent
	}
	if err := f.Validate(); err != nil {
		return Fact{}, err
	}
	if f.ID == "" {
		f.ID = FactID(f)
	}
	return f, nil
}

// Validate checks the fact invariants.
func (f Fact) Validate() error {
	if strings.TrimSpace(f.Content) == "" {
		return fmt.Errorf("fact content is empty")
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("fact confidence %v outside [0,1]", f.Confidence)
	}
	if f.Kind != "" && !ValidKinds[f.Kind] {
		return fmt.Errorf("invalid fact kind %q", f.Kind)
	}
	if f.Level != "" && !ValidLevels[f.Level] {
		return fmt.Errorf("invalid level %q", f.Level)
	}
	if (f.Kind == KindCharacterState || f.Kind == KindLocationState) && len(f.EntityRefs) == 0 {
		return fmt.Errorf("%s fact must reference at least one entity", f.Kind)
	}
	return nil
}

// WithLevel returns a copy of the fact placed at the given level.
func (f Fact) WithLevel(l Level) Fact {
	f.Level = l
	f.EntityRefs = append([]string(nil), f.EntityRefs...)
	return f
}

// CreatedTime returns the creation timestamp, or the zero time when unset.
func (f Fact) CreatedTime() time.Time {
	if f.CreatedAt == nil {
		return time.Time{}
	}
	return *f.CreatedAt
}

// SharesEntity reports whether both facts reference a common entity.
func (f Fact) SharesEntity(other Fact) bool {
	for _, a := range f.EntityRefs {
		for _, b := range other.EntityRefs {
			if strings.EqualFold(a, b) {
				return true
			}
		}
	}
	return false
}

// SameEntities reports whether both facts reference exactly the same,
// non-empty set of entities, ignoring case.
func (f Fact) SameEntities(other Fact) bool {
	a, b := foldedRefs(f.EntityRefs), foldedRefs(other.EntityRefs)
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func foldedRefs(refs []string) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, strings.ToLower(strings.TrimSpace(r)))
	}
	return NormalizeRefs(out)
}

// References reports whether the fact references the entity, ignoring case.
func (f Fact) References(entity string) bool {
	for _, r := range f.EntityRefs {
		if strings.EqualFold(r, entity) {
			return true
		}
	}
	return false
}

// NormalizeRefs trims, drops blanks, deduplicates and sorts entity references.
func NormalizeRefs(refs []string) []string {
	if len(refs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortFacts orders facts by (content, id).
func SortFacts(facts []Fact) {
	sort.SliceStable(facts, func(i, j int) bool {
		if facts[i].Content != facts[j].Content {
			return facts[i].Content < facts[j].Content
		}
		return facts[i].ID < facts[j].ID
	})
}
