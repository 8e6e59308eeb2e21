// Package extract turns domain events into facts.
//
// Each event kind is handled by exactly one Extractor, selected by exact kind
// match. Extractors are pure: the output depends only on the event and the
// Context, and is sorted so repeated calls return identical slices.
package extract

import (
	"fmt"
	"time"

	"github.com/rcliao/story-memory/internal/apperrors"
	"github.com/rcliao/story-memory/internal/event"
	"github.com/rcliao/story-memory/internal/model"
)

// Context is the read-only lookup data passed to extractors.
type Context struct {
	WorldID     string
	Timestamp   time.Time
	EntityNames map[string]string
}

// Name returns the display name for an entity id, or a generated label.
func (c Context) Name(id string) string {
	if id == "" {
		return ""
	}
	if name, ok := c.EntityNames[id]; ok && name != "" {
		return name
	}
	return "Entity_" + id
}

// at returns the timestamp facts from ev should carry.
func (c Context) at(ev event.Event) time.Time {
	if !c.Timestamp.IsZero() {
		return c.Timestamp
	}
	return ev.OccurredAt()
}

// Extractor produces facts for the event kinds it declares.
type Extractor interface {
	Kinds() []event.Kind
	Extract(ev event.Event, ctx Context) ([]model.Fact, error)
}

// Service dispatches events to their registered extractor.
type Service struct {
	byKind map[event.Kind]Extractor
}

// NewService builds the kind lookup once. When two extractors declare the
// same kind the later one wins.
func NewService(extractors ...Extractor) *Service {
	s := &Service{byKind: make(map[event.Kind]Extractor)}
	for _, e := range extractors {
		for _, k := range e.Kinds() {
			s.byKind[k] = e
		}
	}
	return s
}

// NewDefaultService returns a service with every built-in extractor.
func NewDefaultService() *Service {
	return NewService(Defaults()...)
}

// Supports reports whether an extractor is registered for the kind.
func (s *Service) Supports(k event.Kind) bool {
	_, ok := s.byKind[k]
	return ok
}

// Extract returns the facts for one event sorted by (content, id).
func (s *Service) Extract(ev event.Event, ctx Context) ([]model.Fact, error) {
	if ev == nil {
		return nil, apperrors.New(apperrors.CodeNilEvent, "event is nil")
	}
	ex, ok := s.byKind[ev.Kind()]
	if !ok {
		return nil, apperrors.New(apperrors.CodeUnsupportedEventKind,
			fmt.Sprintf("no extractor for event kind %q", ev.Kind()))
	}
	facts, err := ex.Extract(ev, ctx)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", ev.Kind(), err)
	}
	model.SortFacts(facts)
	return facts, nil
}

// ExtractBatch extracts every event, keeps the first fact for each distinct
// content and returns the result sorted by content. Each event is extracted
// with its own timestamp when it has one.
func (s *Service) ExtractBatch(events []event.Event, ctx Context) ([]model.Fact, error) {
	var all []model.Fact
	for i, ev := range events {
		if ev == nil {
			return nil, apperrors.New(apperrors.CodeNilEvent, fmt.Sprintf("event %d is nil", i))
		}
		evCtx := ctx
		if at := ev.OccurredAt(); !at.IsZero() {
			evCtx.Timestamp = at
		}
		facts, err := s.Extract(ev, evCtx)
		if err != nil {
			return nil, err
		}
		all = append(all, facts...)
	}
	return Dedupe(all), nil
}

// Dedupe drops facts whose content was already seen, keeping the first, and
// sorts the remainder by content.
func Dedupe(facts []model.Fact) []model.Fact {
	seen := make(map[string]bool, len(facts))
	out := make([]model.Fact, 0, len(facts))
	for _, f := range facts {
		if seen[f.Content] {
			continue
		}
		seen[f.Content] = true
		out = append(out, f)
	}
	model.SortFacts(out)
	return out
}
