// Package api exposes batch synthesis, file download and archive download
// over HTTP, and serves the front-end bundle.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-batch-service/internal/batch"
	"github.com/book-expert/tts-batch-service/internal/core"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// BatchRunner processes one batch of text.
type BatchRunner interface {
	Process(ctx context.Context, rawText string) (*batch.Result, error)
}

// ArchiveBuilder zips one batch.
type ArchiveBuilder interface {
	Build(batchID string) ([]byte, error)
}

// HealthChecker probes the speech backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Router wires the handlers onto a chi mux.
type Router struct {
	mux       *chi.Mux
	batches   BatchRunner
	store     core.AudioStore
	archives  ArchiveBuilder
	backend   HealthChecker
	staticDir string
	log       *logger.Logger
}

// NewRouter creates a Router. backend may be nil.
func NewRouter(
	batches BatchRunner,
	audioStore core.AudioStore,
	archives ArchiveBuilder,
	backend HealthChecker,
	staticDir string,
	log *logger.Logger,
) *Router {
	return &Router{
		mux:       chi.NewRouter(),
		batches:   batches,
		store:     audioStore,
		archives:  archives,
		backend:   backend,
		staticDir: staticDir,
		log:       log,
	}
}

// Setup registers middleware and routes and returns the handler.
func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(rt.logRequests)
	r.Use(chimiddleware.Recoverer)

	static := newStaticHandler(rt.staticDir)

	r.Route("/api", func(r chi.Router) {
		r.Post("/tts", rt.textToSpeech)
		r.Get("/audio/{filename}", rt.getAudio)
		r.Get("/download-all/{batchID}", rt.downloadAll)
		r.Get("/health", rt.health)
		r.Get("/health/backend", rt.backendHealth)

		// Unmatched GETs under /api reach the front end like any other path.
		r.NotFound(func(w http.ResponseWriter, req *http.Request) {
			if req.Method == http.MethodGet || req.Method == http.MethodHead {
				static.index(w, req)

				return
			}

			writeJSON(w, http.StatusNotFound, errorResponse{Success: false, Error: "endpoint not found"})
		})
	})

	r.Get("/", static.index)
	r.Get("/*", static.serve)

	return r
}

func (rt *Router) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(wrapped, r)

		rt.log.Info(
			"%s %s %d %dB %s request_id=%s",
			r.Method,
			r.URL.Path,
			wrapped.Status(),
			wrapped.BytesWritten(),
			time.Since(start).Round(time.Millisecond),
			chimiddleware.GetReqID(r.Context()),
		)
	})
}
