// Package memory orchestrates extraction, summarization, coherence checks and
// persistence of memoranda.
//
// Every operation returns (value, error). Errors carry an apperrors code;
// coherence findings are returned as values. The Service holds no mutable
// state beyond what its collaborators own, so one instance may serve
// concurrent callers.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/story-memory/internal/apperrors"
	"github.com/rcliao/story-memory/internal/coherence"
	"github.com/rcliao/story-memory/internal/event"
	"github.com/rcliao/story-memory/internal/extract"
	"github.com/rcliao/story-memory/internal/logger"
	"github.com/rcliao/story-memory/internal/model"
	"github.com/rcliao/story-memory/internal/store"
	"github.com/rcliao/story-memory/internal/summary"
)

// Service is the memory engine's public surface.
type Service struct {
	store     store.Store
	extractor *extract.Service
	validator *coherence.Validator
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithExtractors replaces the default extractor set.
func WithExtractors(extractors ...extract.Extractor) Option {
	return func(s *Service) {
		s.extractor = extract.NewService(extractors...)
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock sets the time source used for memorandum and violation stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator sets the memorandum id generator. The default yields
// ULIDs stamped with the service clock.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService creates a Service persisting through st.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		extractor: extract.NewDefaultService(),
		logger:    logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newID == nil {
		s.newID = func() string {
			return ulid.MustNew(ulid.Timestamp(s.now()), ulid.DefaultEntropy()).String()
		}
	}
	s.validator = coherence.NewValidator(s.now)
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// RememberEvent extracts the event's facts into a new memorandum's event
// level and persists it.
func (s *Service) RememberEvent(ctx context.Context, worldID string, ev event.Event, ectx extract.Context) (*model.Memorandum, error) {
	if err := requireWorld(worldID); err != nil {
		return nil, err
	}
	ectx = s.extractContext(worldID, ectx)
	if ev != nil && ectx.Timestamp.IsZero() && ev.OccurredAt().IsZero() {
		ectx.Timestamp = s.clock()
	}

	facts, err := s.extractor.Extract(ev, ectx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	m := model.NewMemorandum(s.newID(), worldID, "Event: "+string(ev.Kind()), "", now).
		WithFacts(model.LevelEvent, facts, now)
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Debug("remembered event", "world", worldID, "memorandum", m.ID, "kind", ev.Kind(), "facts", len(facts))
	return &m, nil
}

// RememberChapter extracts and deduplicates the facts of every event,
// summarizes them, and persists them at chapter level.
func (s *Service) RememberChapter(ctx context.Context, worldID string, events []event.Event, ectx extract.Context) (*model.Memorandum, error) {
	if err := requireWorld(worldID); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, apperrors.New(apperrors.CodeEmptyEvents, "chapter has no events")
	}
	ectx = s.batchContext(worldID, ectx)

	facts, err := s.extractor.ExtractBatch(events, ectx)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	title := fmt.Sprintf("Chapter: %d events", len(events))
	m := model.NewMemorandum(s.newID(), worldID, title, summary.SummarizeChapter(facts), now).
		WithFacts(model.LevelChapter, facts, now)
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Debug("remembered chapter", "world", worldID, "memorandum", m.ID, "events", len(events), "facts", len(facts))
	return &m, nil
}

// RememberArc summarizes each chapter, merges the chapter summaries into an
// arc summary, and persists the deduplicated facts at arc level.
func (s *Service) RememberArc(ctx context.Context, worldID string, chapters [][]event.Event, ectx extract.Context) (*model.Memorandum, error) {
	if err := requireWorld(worldID); err != nil {
		return nil, err
	}
	if len(chapters) == 0 {
		return nil, apperrors.New(apperrors.CodeEmptyEvents, "arc has no chapters")
	}
	ectx = s.batchContext(worldID, ectx)

	var all []model.Fact
	summaries := make([]string, 0, len(chapters))
	for i, events := range chapters {
		if len(events) == 0 {
			return nil, apperrors.New(apperrors.CodeEmptyEvents, fmt.Sprintf("chapter %d has no events", i+1))
		}
		facts, err := s.extractor.ExtractBatch(events, ectx)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary.SummarizeChapter(facts))
		all = append(all, facts...)
	}
	facts := extract.Dedupe(all)

	now := s.clock()
	title := fmt.Sprintf("Arc: %d chapters", len(chapters))
	m := model.NewMemorandum(s.newID(), worldID, title, summary.SummarizeArc(summaries), now).
		WithFacts(model.LevelArc, facts, now)
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Debug("remembered arc", "world", worldID, "memorandum", m.ID, "chapters", len(chapters), "facts", len(facts))
	return &m, nil
}

// RetrieveMemorandum looks a memorandum up by id. A missing memorandum is
// (nil, nil).
func (s *Service) RetrieveMemorandum(ctx context.Context, id string) (*model.Memorandum, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "memorandum id is blank")
	}
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storageErr("get memorandum", err, "memorandum", id)
	}
	return m, nil
}

// FindMemorandaByEntity returns the world's memoranda holding at least one
// fact that references entity, ignoring case.
func (s *Service) FindMemorandaByEntity(ctx context.Context, worldID, entity string) ([]model.Memorandum, error) {
	if strings.TrimSpace(entity) == "" {
		return nil, apperrors.New(apperrors.CodeBlankEntity, "entity name is blank")
	}
	all, err := s.list(ctx, worldID)
	if err != nil {
		return nil, err
	}

	found := []model.Memorandum{}
	for _, m := range all {
		if m.MentionsEntity(strings.TrimSpace(entity)) {
			found = append(found, m)
		}
	}

	s.logger.Debug("found memoranda by entity", "world", worldID, "entity", entity, "matches", len(found), "scanned", len(all))
	return found, nil
}

// SummarizeHistory summarizes the events as one chapter and truncates the
// result to targetLength characters, ellipsis included.
func (s *Service) SummarizeHistory(ctx context.Context, worldID string, events []event.Event, targetLength int, ectx extract.Context) (string, error) {
	if len(events) == 0 {
		return "", apperrors.New(apperrors.CodeEmptyEvents, "history has no events")
	}
	if targetLength <= 0 {
		return "", apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("target length must be positive, got %d", targetLength))
	}

	facts, err := s.extractor.ExtractBatch(events, s.batchContext(worldID, ectx))
	if err != nil {
		return "", err
	}
	out := summary.Truncate(summary.SummarizeChapter(facts), targetLength)

	s.logger.Debug("summarized history", "world", worldID, "events", len(events), "facts", len(facts), "length", len([]rune(out)))
	return out, nil
}

// GetCanonicalState merges, in creation order, the world-level states of
// every memorandum created at or before asOf.
func (s *Service) GetCanonicalState(ctx context.Context, worldID string, asOf time.Time) (model.CanonicalState, error) {
	all, err := s.list(ctx, worldID)
	if err != nil {
		return model.CanonicalState{}, err
	}

	state := model.NewCanonicalState(model.StateID(worldID, model.LevelWorld), worldID, model.LevelWorld, asOf)
	var latest time.Time
	merged := 0
	for _, m := range all {
		if m.CreatedAt.After(asOf) {
			continue
		}
		state = state.WithFacts(m.State(model.LevelWorld).Facts, asOf)
		if m.UpdatedAt.After(latest) {
			latest = m.UpdatedAt
		}
		merged++
	}
	if merged > 0 {
		state.UpdatedAt = latest
	}

	s.logger.Debug("built canonical state", "world", worldID, "as_of", asOf, "memoranda", merged, "facts", state.Len())
	return state, nil
}

// ValidateCoherence batch-validates the union of every fact held by the
// memoranda. A nil slice validates the world's stored memoranda.
func (s *Service) ValidateCoherence(ctx context.Context, worldID string, memoranda []model.Memorandum) ([]model.CoherenceViolation, error) {
	if memoranda == nil {
		var err error
		if memoranda, err = s.list(ctx, worldID); err != nil {
			return nil, err
		}
	}

	facts := unionFacts(memoranda)
	violations := s.validator.ValidateFacts(facts)

	if len(violations) > 0 {
		s.logger.Warn("coherence violations found", "world", worldID, "facts", len(facts), "violations", len(violations))
	} else {
		s.logger.Debug("world is coherent", "world", worldID, "facts", len(facts))
	}
	return violations, nil
}

// AssertFact records a fact directly in a new memorandum at the fact's
// level. Existing facts are not checked for contradictions.
func (s *Service) AssertFact(ctx context.Context, worldID string, f *model.Fact) (*model.Memorandum, error) {
	if f == nil {
		return nil, apperrors.New(apperrors.CodeNilFact, "fact is nil")
	}
	if err := requireWorld(worldID); err != nil {
		return nil, err
	}

	in := *f
	if in.CreatedAt == nil {
		at := s.clock()
		in.CreatedAt = &at
	}
	fact, err := model.NewFact(in)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidFact, "invalid fact", err)
	}

	now := s.clock()
	m := model.NewMemorandum(s.newID(), worldID, "Assertion: "+string(fact.Kind), fact.Content, now).
		WithFacts(fact.Level, []model.Fact{fact}, now)
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Debug("asserted fact", "world", worldID, "memorandum", m.ID, "fact", fact.ID, "level", fact.Level)
	return &m, nil
}

// ConsolidateWorld builds a world-level memorandum from every stored
// memorandum of the world. Its description is the world summary, its world
// state holds every known fact, and it carries the violations found by batch
// validation plus the resurrections found walking memoranda in creation
// order.
func (s *Service) ConsolidateWorld(ctx context.Context, worldID string) (*model.Memorandum, error) {
	all, err := s.list(ctx, worldID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("world %s has no memoranda", worldID))
	}

	now := s.clock()
	facts := unionFacts(all)
	state := model.NewCanonicalState(model.StateID("", model.LevelWorld), worldID, model.LevelWorld, now).
		WithFacts(facts, now)

	violations := s.validator.ValidateState(state)
	var seen []model.Fact
	for _, m := range all {
		next := m.AllFacts()
		violations = append(violations, s.validator.ValidateTransition(seen, next)...)
		seen = append(seen, next...)
	}

	m := model.NewMemorandum(s.newID(), worldID, "World", summary.SummarizeWorld(arcSummaries(all)), now)
	state.ID = model.StateID(m.ID, model.LevelWorld)
	m = m.WithState(state, now).WithViolations(violations, now)
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Debug("consolidated world", "world", worldID, "memorandum", m.ID, "sources", len(all), "facts", state.Len(), "violations", len(m.Violations))
	return &m, nil
}

// ResolveViolation marks a violation on a stored memorandum as resolved.
func (s *Service) ResolveViolation(ctx context.Context, memorandumID, violationID, note string) (*model.Memorandum, error) {
	m, err := s.RetrieveMemorandum(ctx, memorandumID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "memorandum not found: "+memorandumID)
	}
	if !hasViolation(*m, violationID) {
		return nil, apperrors.New(apperrors.CodeNotFound, "violation not found: "+violationID)
	}

	resolved, err := m.WithResolvedViolation(violationID, note, s.clock())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "resolve violation", err)
	}
	if err := s.save(ctx, resolved); err != nil {
		return nil, err
	}

	s.logger.Debug("resolved violation", "memorandum", memorandumID, "violation", violationID)
	return &resolved, nil
}

func (s *Service) save(ctx context.Context, m model.Memorandum) error {
	if err := s.store.Save(ctx, m); err != nil {
		return s.storageErr("save memorandum", err, "memorandum", m.ID)
	}
	return nil
}

func (s *Service) list(ctx context.Context, worldID string) ([]model.Memorandum, error) {
	all, err := s.store.ListByWorld(ctx, worldID)
	if err != nil {
		return nil, s.storageErr("list memoranda", err, "world", worldID)
	}
	return all, nil
}

func (s *Service) storageErr(op string, err error, args ...any) error {
	s.logger.Warn(op+" failed", append(args, "error", err)...)
	return apperrors.Wrap(apperrors.CodeStorage, op, err)
}

func (s *Service) extractContext(worldID string, ectx extract.Context) extract.Context {
	if ectx.WorldID == "" {
		ectx.WorldID = worldID
	}
	return ectx
}

// batchContext falls back to the service clock for events without a time.
func (s *Service) batchContext(worldID string, ectx extract.Context) extract.Context {
	ectx = s.extractContext(worldID, ectx)
	if ectx.Timestamp.IsZero() {
		ectx.Timestamp = s.clock()
	}
	return ectx
}

func requireWorld(worldID string) error {
	if strings.TrimSpace(worldID) == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "world id is blank")
	}
	return nil
}

// unionFacts collects every fact of every memorandum, first occurrence of
// an id wins.
func unionFacts(memoranda []model.Memorandum) []model.Fact {
	seen := map[string]bool{}
	facts := []model.Fact{}
	for _, m := range memoranda {
		for _, f := range m.AllFacts() {
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			facts = append(facts, f)
		}
	}
	return facts
}

// arcSummaries returns the descriptions of arc memoranda. Without arcs, the
// chapter summaries (or a summary of the event facts) form a single arc.
func arcSummaries(memoranda []model.Memorandum) []string {
	var arcs, chapters []string
	var events []model.Fact
	for _, m := range memoranda {
		switch {
		case m.State(model.LevelArc).Len() > 0:
			arcs = append(arcs, m.Description)
		case m.State(model.LevelChapter).Len() > 0:
			chapters = append(chapters, m.Description)
		default:
			events = append(events, m.State(model.LevelEvent).Facts...)
		}
	}
	if len(arcs) > 0 {
		return arcs
	}
	if len(events) > 0 {
		chapters = append(chapters, summary.SummarizeChapter(events))
	}
	if len(chapters) == 0 {
		return nil
	}
	return []string{summary.SummarizeArc(chapters)}
}

func hasViolation(m model.Memorandum, id string) bool {
	for _, v := range m.Violations {
		if v.ID == id {
			return true
		}
	}
	return false
}
