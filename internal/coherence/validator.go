// Package coherence detects contradictions between facts and impossible
// state transitions. Findings are returned as violation values, never errors.
package coherence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/story-memory/internal/model"
)

// Validator checks facts for coherence. It holds no mutable state.
type Validator struct {
	now func() time.Time
}

// NewValidator returns a validator stamping violations with now. A nil clock
// uses time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// ContainsContradiction reports whether two facts share an entity and have
// opposing contents. It is symmetric.
func (v *Validator) ContainsContradiction(a, b model.Fact) bool {
	if !a.SharesEntity(b) {
		return false
	}
	return contentsOppose(a.Content, b.Content)
}

// ValidateFact reports an empty content and an out-of-range confidence.
func (v *Validator) ValidateFact(f model.Fact) []model.CoherenceViolation {
	return v.validateFact(f, f.Level)
}

func (v *Validator) validateFact(f model.Fact, level model.Level) []model.CoherenceViolation {
	var out []model.CoherenceViolation
	if strings.TrimSpace(f.Content) == "" {
		out = append(out, v.violation(model.ViolationStatementContradiction, level,
			fmt.Sprintf("fact %s has empty content", f.ID), f.ID))
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		out = append(out, v.violation(model.ViolationStatementContradiction, level,
			fmt.Sprintf("fact %s has confidence %v outside [0,1]", f.ID, f.Confidence), f.ID))
	}
	return out
}

// ValidateFacts validates every fact and then every unordered pair, emitting
// one violation per contradicting pair. Output does not depend on input order.
func (v *Validator) ValidateFacts(facts []model.Fact) []model.CoherenceViolation {
	return v.validateFacts(facts, commonLevel(facts))
}

// ValidateState validates every fact held in a canonical state.
func (v *Validator) ValidateState(s model.CanonicalState) []model.CoherenceViolation {
	return v.validateFacts(s.Facts, s.Level)
}

func (v *Validator) validateFacts(facts []model.Fact, level model.Level) []model.CoherenceViolation {
	sorted := sortedByID(facts)
	out := []model.CoherenceViolation{}
	for _, f := range sorted {
		out = append(out, v.validateFact(f, level)...)
	}
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if !v.ContainsContradiction(a, b) {
				continue
			}
			out = append(out, v.violation(model.ViolationStatementContradiction, level,
				fmt.Sprintf("%q contradicts %q", a.Content, b.Content), a.ID, b.ID))
		}
	}
	return out
}

// ValidateTransition flags every new fact in next reporting an entity alive
// after a fact in prev about the same entity set reported it dead. The
// reverse direction is allowed.
func (v *Validator) ValidateTransition(prev, next []model.Fact) []model.CoherenceViolation {
	return v.validateTransition(prev, next, commonLevel(next))
}

// ValidateStateTransition is ValidateTransition over two canonical states.
func (v *Validator) ValidateStateTransition(prev, next model.CanonicalState) []model.CoherenceViolation {
	return v.validateTransition(prev.Facts, next.Facts, next.Level)
}

func (v *Validator) validateTransition(prev, next []model.Fact, level model.Level) []model.CoherenceViolation {
	before := sortedByID(prev)
	known := make(map[string]bool, len(before))
	for _, p := range before {
		known[p.ID] = true
	}

	out := []model.CoherenceViolation{}
	for _, n := range sortedByID(next) {
		if known[n.ID] || !isAlive(n) {
			continue
		}
		ids := []string{}
		var contents []string
		for _, p := range before {
			if p.SameEntities(n) && isDead(p) {
				ids = append(ids, p.ID)
				contents = append(contents, fmt.Sprintf("%q", p.Content))
			}
		}
		if len(ids) == 0 {
			continue
		}
		ids = append(ids, n.ID)
		out = append(out, v.violation(model.ViolationSequence, level,
			fmt.Sprintf("impossible resurrection: %q follows %s", n.Content, strings.Join(contents, ", ")),
			ids...))
	}
	return out
}

func (v *Validator) violation(kind model.ViolationKind, level model.Level, description string, factIDs ...string) model.CoherenceViolation {
	return model.CoherenceViolation{
		ID:          model.ViolationID(kind, description, factIDs),
		Kind:        kind,
		Severity:    model.SeverityError,
		Description: description,
		FactIDs:     factIDs,
		Level:       level,
		DetectedAt:  v.now().UTC(),
	}
}

func sortedByID(facts []model.Fact) []model.Fact {
	out := append([]model.Fact(nil), facts...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Content < out[j].Content
	})
	return out
}

// commonLevel returns the level shared by all facts, or "" when mixed.
func commonLevel(facts []model.Fact) model.Level {
	if len(facts) == 0 {
		return ""
	}
	l := facts[0].Level
	for _, f := range facts[1:] {
		if f.Level != l {
			return ""
		}
	}
	return l
}
