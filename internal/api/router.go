// Package api exposes the memory service over HTTP as JSON.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rcliao/story-memory/internal/memory"
)

// Options configures the router.
type Options struct {
	// HistoryLength is the summary target length used when a request
	// gives none.
	HistoryLength int
	// Now is the default as-of time for state queries.
	Now func() time.Time
	// MaxBodyBytes caps every request body.
	MaxBodyBytes int64
}

const defaultMaxBodyBytes = 1 << 20

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(svc *memory.Service, logger *slog.Logger, opts Options) *chi.Mux {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HistoryLength <= 0 {
		opts.HistoryLength = 300
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	h := NewHandler(svc, opts)

	r.Get("/health", h.Health)

	r.Route("/worlds/{world}", func(r chi.Router) {
		r.Post("/events", h.RememberEvent)
		r.Post("/chapters", h.RememberChapter)
		r.Post("/arcs", h.RememberArc)
		r.Post("/consolidate", h.ConsolidateWorld)
		r.Get("/memoranda", h.FindMemoranda)
		r.Post("/summary", h.SummarizeHistory)
		r.Get("/state", h.CanonicalState)
		r.Post("/validate", h.ValidateCoherence)
		r.Post("/facts", h.AssertFact)
	})

	r.Route("/memoranda/{id}", func(r chi.Router) {
		r.Get("/", h.GetMemorandum)
		r.Post("/violations/{violation}/resolve", h.ResolveViolation)
	})

	return r
}
