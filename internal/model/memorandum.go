package model

import (
	"fmt"
	"sort"
	"time"
)

// Memorandum is the per-world aggregate holding one canonical state per
// hierarchy level plus detected violations.
type Memorandum struct {
	ID          string                   `json:"id"`
	WorldID     string                   `json:"world_id"`
	Title       string                   `json:"title"`
	Description string                   `json:"description,omitempty"`
	States      map[Level]CanonicalState `json:"states"`
	Violations  []CoherenceViolation     `json:"violations"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// NewMemorandum creates a memorandum with an empty state at every level.
func NewMemorandum(id, worldID, title, description string, now time.Time) Memorandum {
	states := make(map[Level]CanonicalState, len(Levels))
	for _, l := range Levels {
		states[l] = NewCanonicalState(StateID(id, l), worldID, l, now)
	}
	return Memorandum{
		ID:          id,
		WorldID:     worldID,
		Title:       title,
		Description: description,
		States:      states,
		Violations:  []CoherenceViolation{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// StateID is the id of a memorandum's canonical state at a level.
func StateID(memorandumID string, l Level) string {
	return memorandumID + ":" + string(l)
}

// State returns the canonical state at a level.
func (m Memorandum) State(l Level) CanonicalState {
	if s, ok := m.States[l]; ok {
		return s
	}
	return NewCanonicalState(StateID(m.ID, l), m.WorldID, l, m.CreatedAt)
}

// WithFacts returns a new memorandum whose state at l holds the facts.
func (m Memorandum) WithFacts(l Level, facts []Fact, now time.Time) Memorandum {
	next := m.Clone()
	next.States[l] = m.State(l).WithFacts(facts, now)
	next.UpdatedAt = now
	return next
}

// WithState returns a new memorandum with the state replaced at its level.
func (m Memorandum) WithState(s CanonicalState, now time.Time) Memorandum {
	next := m.Clone()
	next.States[s.Level] = s
	next.UpdatedAt = now
	return next
}

// WithViolations returns a new memorandum with the violations appended.
// Violations already recorded (same id) are not duplicated.
func (m Memorandum) WithViolations(vs []CoherenceViolation, now time.Time) Memorandum {
	next := m.Clone()
	seen := make(map[string]bool, len(next.Violations))
	for _, v := range next.Violations {
		seen[v.ID] = true
	}
	for _, v := range vs {
		if seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		next.Violations = append(next.Violations, v)
	}
	next.UpdatedAt = now
	return next
}

// WithResolvedViolation returns a new memorandum with one violation resolved.
func (m Memorandum) WithResolvedViolation(id, note string, at time.Time) (Memorandum, error) {
	next := m.Clone()
	for i, v := range next.Violations {
		if v.ID != id {
			continue
		}
		resolved, err := v.Resolve(note, at)
		if err != nil {
			return m, err
		}
		next.Violations[i] = resolved
		next.UpdatedAt = at
		return next, nil
	}
	return m, fmt.Errorf("violation not found: %s", id)
}

// AllFacts returns the facts of every level, deduplicated by id and sorted
// by (content, id).
func (m Memorandum) AllFacts() []Fact {
	seen := map[string]bool{}
	var facts []Fact
	for _, l := range Levels {
		for _, f := range m.State(l).Facts {
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			facts = append(facts, f)
		}
	}
	SortFacts(facts)
	return facts
}

// FactCount returns the number of facts across all levels.
func (m Memorandum) FactCount() int {
	n := 0
	for _, l := range Levels {
		n += m.State(l).Len()
	}
	return n
}

// MentionsEntity reports whether any state holds a fact referencing the entity.
func (m Memorandum) MentionsEntity(entity string) bool {
	for _, l := range Levels {
		if m.State(l).References(entity) {
			return true
		}
	}
	return false
}

// Clone returns a copy sharing no maps or slices with m.
func (m Memorandum) Clone() Memorandum {
	next := m
	next.States = make(map[Level]CanonicalState, len(Levels))
	for _, l := range Levels {
		next.States[l] = m.State(l).clone()
	}
	next.Violations = append([]CoherenceViolation{}, m.Violations...)
	return next
}

// SortMemoranda orders memoranda by creation time, then id.
func SortMemoranda(ms []Memorandum) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].ID < ms[j].ID
	})
}
