package model

import (
	"sort"
	"time"
)

// CanonicalState is the set of facts accepted as true at one hierarchy level
// of one world. Values are never mutated; every change returns a new state.
type CanonicalState struct {
	ID        string    `json:"id"`
	WorldID   string    `json:"world_id"`
	Level     Level     `json:"level"`
	Facts     []Fact    `json:"facts"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCanonicalState returns an empty state at version 0.
func NewCanonicalState(id, worldID string, level Level, now time.Time) CanonicalState {
	return CanonicalState{
		ID:        id,
		WorldID:   worldID,
		Level:     level,
		Facts:     []Fact{},
		UpdatedAt: now,
	}
}

// WithFact returns a new state holding f. The version always increments.
// A fact whose id is already present is not duplicated.
func (s CanonicalState) WithFact(f Fact, now time.Time) CanonicalState {
	return s.WithFacts([]Fact{f}, now)
}

// WithFacts adds each fact in order, incrementing the version once per fact.
func (s CanonicalState) WithFacts(facts []Fact, now time.Time) CanonicalState {
	next := s.clone()
	for _, f := range facts {
		if !next.Contains(f.ID) {
			next.Facts = append(next.Facts, f.WithLevel(s.Level))
		}
		next.Version++
	}
	next.UpdatedAt = now
	next.sortFacts()
	return next
}

// WithoutFact returns a new state without the fact. Removing an absent fact
// returns the state unchanged.
func (s CanonicalState) WithoutFact(id string, now time.Time) CanonicalState {
	if !s.Contains(id) {
		return s
	}
	next := s.clone()
	next.Facts = next.Facts[:0]
	for _, f := range s.Facts {
		if f.ID != id {
			next.Facts = append(next.Facts, f)
		}
	}
	next.Version++
	next.UpdatedAt = now
	return next
}

// Contains reports whether a fact with the id is held.
func (s CanonicalState) Contains(id string) bool {
	for _, f := range s.Facts {
		if f.ID == id {
			return true
		}
	}
	return false
}

// References reports whether any held fact references the entity.
func (s CanonicalState) References(entity string) bool {
	for _, f := range s.Facts {
		if f.References(entity) {
			return true
		}
	}
	return false
}

// Len returns the number of held facts.
func (s CanonicalState) Len() int {
	return len(s.Facts)
}

func (s CanonicalState) clone() CanonicalState {
	next := s
	next.Facts = make([]Fact, len(s.Facts), len(s.Facts)+1)
	copy(next.Facts, s.Facts)
	return next
}

// Facts are kept in id order so serialized states compare byte-for-byte.
func (s *CanonicalState) sortFacts() {
	sort.SliceStable(s.Facts, func(i, j int) bool {
		return s.Facts[i].ID < s.Facts[j].ID
	})
}
