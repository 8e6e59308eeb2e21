package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rcliao/story-memory/internal/apperrors"
	"github.com/rcliao/story-memory/internal/event"
	"github.com/rcliao/story-memory/internal/extract"
	"github.com/rcliao/story-memory/internal/memory"
	"github.com/rcliao/story-memory/internal/model"
)

// Handler serves the memory service routes.
type Handler struct {
	svc  *memory.Service
	opts Options
}

func NewHandler(svc *memory.Service, opts Options) *Handler {
	return &Handler{svc: svc, opts: opts}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RememberEvent handles POST /worlds/{world}/events. Each event of the
// document becomes its own memorandum.
func (h *Handler) RememberEvent(w http.ResponseWriter, r *http.Request) {
	doc, err := h.decodeDocument(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	events, err := decodeEvents(doc.Events)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if len(events) == 0 {
		writeServiceError(w, apperrors.New(apperrors.CodeEmptyEvents, "document has no events"))
		return
	}

	world := chi.URLParam(r, "world")
	out := make([]*model.Memorandum, 0, len(events))
	for _, ev := range events {
		m, err := h.svc.RememberEvent(r.Context(), world, ev, extractContext(doc))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out = append(out, m)
	}
	writeJSON(w, http.StatusCreated, out)
}

// RememberChapter handles POST /worlds/{world}/chapters
func (h *Handler) RememberChapter(w http.ResponseWriter, r *http.Request) {
	doc, err := h.decodeDocument(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	events, err := decodeEvents(doc.Events)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	m, err := h.svc.RememberChapter(r.Context(), chi.URLParam(r, "world"), events, extractContext(doc))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// RememberArc handles POST /worlds/{world}/arcs
func (h *Handler) RememberArc(w http.ResponseWriter, r *http.Request) {
	doc, err := h.decodeDocument(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	chapters := make([][]event.Event, 0, len(doc.Chapters))
	for _, envs := range doc.Chapters {
		events, err := decodeEvents(envs)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		chapters = append(chapters, events)
	}

	m, err := h.svc.RememberArc(r.Context(), chi.URLParam(r, "world"), chapters, extractContext(doc))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ConsolidateWorld handles POST /worlds/{world}/consolidate
func (h *Handler) ConsolidateWorld(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.ConsolidateWorld(r.Context(), chi.URLParam(r, "world"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// FindMemoranda handles GET /worlds/{world}/memoranda?entity=
func (h *Handler) FindMemoranda(w http.ResponseWriter, r *http.Request) {
	ms, err := h.svc.FindMemorandaByEntity(r.Context(), chi.URLParam(r, "world"), r.URL.Query().Get("entity"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

// SummarizeHistory handles POST /worlds/{world}/summary?length=
func (h *Handler) SummarizeHistory(w http.ResponseWriter, r *http.Request) {
	length := h.opts.HistoryLength
	if v := r.URL.Query().Get("length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(apperrors.CodeInvalidArgument), "invalid length: "+v)
			return
		}
		length = n
	}

	doc, err := h.decodeDocument(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	events, err := decodeEvents(doc.Events)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s, err := h.svc.SummarizeHistory(r.Context(), chi.URLParam(r, "world"), events, length, extractContext(doc))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": s})
}

// CanonicalState handles GET /worlds/{world}/state?as_of=
func (h *Handler) CanonicalState(w http.ResponseWriter, r *http.Request) {
	asOf := h.opts.Now()
	if v := r.URL.Query().Get("as_of"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(apperrors.CodeInvalidArgument), "invalid as_of: "+v)
			return
		}
		asOf = t
	}

	st, err := h.svc.GetCanonicalState(r.Context(), chi.URLParam(r, "world"), asOf)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type validateRequest struct {
	MemorandumIDs []string `json:"memorandum_ids"`
}

type validateResponse struct {
	Coherent   bool                       `json:"coherent"`
	Violations []model.CoherenceViolation `json:"violations"`
}

// ValidateCoherence handles POST /worlds/{world}/validate. Without
// memorandum_ids every stored memorandum of the world is validated.
func (h *Handler) ValidateCoherence(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := h.decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, string(apperrors.CodeInvalidArgument), "invalid request body: "+err.Error())
		return
	}

	var ms []model.Memorandum
	for _, id := range req.MemorandumIDs {
		m, err := h.svc.RetrieveMemorandum(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if m == nil {
			writeError(w, http.StatusNotFound, string(apperrors.CodeNotFound), "memorandum not found: "+id)
			return
		}
		ms = append(ms, *m)
	}

	vs, err := h.svc.ValidateCoherence(r.Context(), chi.URLParam(r, "world"), ms)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Coherent: len(vs) == 0, Violations: vs})
}

// AssertFact handles POST /worlds/{world}/facts
func (h *Handler) AssertFact(w http.ResponseWriter, r *http.Request) {
	var f *model.Fact
	if err := h.decodeJSON(w, r, &f); err != nil {
		writeError(w, http.StatusBadRequest, string(apperrors.CodeInvalidArgument), "invalid request body: "+err.Error())
		return
	}

	m, err := h.svc.AssertFact(r.Context(), chi.URLParam(r, "world"), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// GetMemorandum handles GET /memoranda/{id}
func (h *Handler) GetMemorandum(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m, err := h.svc.RetrieveMemorandum(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, string(apperrors.CodeNotFound), "memorandum not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type resolveRequest struct {
	Note string `json:"note"`
}

// ResolveViolation handles POST /memoranda/{id}/violations/{violation}/resolve
func (h *Handler) ResolveViolation(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(apperrors.CodeInvalidArgument), "invalid request body: "+err.Error())
		return
	}

	m, err := h.svc.ResolveViolation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "violation"), req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)).Decode(v)
}

// decodeDocument reads a YAML or JSON event document of at most
// MaxBodyBytes. Parse failures are reported as invalid arguments.
func (h *Handler) decodeDocument(w http.ResponseWriter, r *http.Request) (*event.Document, error) {
	doc, err := event.DecodeDocument(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.Wrap(apperrors.CodeInvalidArgument,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err)
		}
		if apperrors.CodeOf(err) == apperrors.CodeUnknown {
			return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid request body", err)
		}
		return nil, err
	}
	return doc, nil
}

func decodeEvents(envs []event.Envelope) ([]event.Event, error) {
	events, err := event.Decode(envs)
	if err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

func extractContext(doc *event.Document) extract.Context {
	return extract.Context{EntityNames: doc.Entities}
}
