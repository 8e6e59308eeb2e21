package model

import (
	"fmt"
	"time"
)

// ViolationKind classifies a coherence violation.
type ViolationKind string

const (
	ViolationStatementContradiction ViolationKind = "statement_contradiction"
	ViolationSequence               ViolationKind = "sequence_violation"
	ViolationEntityInconsistency    ViolationKind = "entity_inconsistency"
	ViolationLocationInconsistency  ViolationKind = "location_inconsistency"
)

// Severity is how serious a violation is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// CoherenceViolation records a detected logical inconsistency.
type CoherenceViolation struct {
	ID          string        `json:"id"`
	Kind        ViolationKind `json:"kind"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
	FactIDs     []string      `json:"fact_ids"`
	Resolution  string        `json:"resolution,omitempty"`
	Level       Level         `json:"level,omitempty"`
	DetectedAt  time.Time     `json:"detected_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}

// Resolved reports whether the violation has been resolved.
func (v CoherenceViolation) Resolved() bool {
	return v.ResolvedAt != nil
}

// Resolve returns a resolved copy. The resolution time may not precede detection.
func (v CoherenceViolation) Resolve(note string, at time.Time) (CoherenceViolation, error) {
	if at.Before(v.DetectedAt) {
		return v, fmt.Errorf("resolved at %s precedes detected at %s",
			at.Format(time.RFC3339), v.DetectedAt.Format(time.RFC3339))
	}
	v.FactIDs = append([]string(nil), v.FactIDs...)
	v.Resolution = note
	v.ResolvedAt = &at
	return v, nil
}
