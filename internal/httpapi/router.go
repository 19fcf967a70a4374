// Package httpapi serves the chunker over HTTP with JSON request and
// response bodies.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dshills/treechunk/internal/chunker"
)

// DefaultMaxBodyBytes caps request bodies when Deps.MaxBodyBytes is zero
const DefaultMaxBodyBytes = 4 << 20

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Chunker      *chunker.Cache
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	h := &handler{
		chunker: deps.Chunker,
		maxBody: maxBody,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chunk", h.chunk)
		r.Post("/reassemble", h.reassemble)
		r.Get("/languages", h.languages)
	})

	return r
}
