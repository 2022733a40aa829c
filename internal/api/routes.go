package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/streamscribe/internal/session"
	"github.com/yegors/streamscribe/internal/storage/sqlite"
	"github.com/yegors/streamscribe/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	logger     *logger.Logger
}

// NewRouter creates a new API router. storage may be nil when persistence is
// disabled; the handler then serves the session's in-memory records.
func NewRouter(sess *session.Orchestrator, storage *sqlite.TranscriptionStorage, log *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(sess, storage, log),
		middleware: NewMiddleware(log),
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)

	router.Get("/healthz", r.handler.Health)

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/session", r.handler.GetSession)
		router.Get("/transcriptions", r.handler.GetTranscriptions)
	})

	return router
}
