// Package httpapi serves the tool catalog, synchronous tool runs and
// background jobs over HTTP, next to the MCP streamable HTTP transport.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/a3tai/pdf-tools/internal/jobs"
	"github.com/a3tai/pdf-tools/internal/logx"
	"github.com/a3tai/pdf-tools/internal/pdf"
	"github.com/a3tai/pdf-tools/internal/tools"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the API is built from
type Deps struct {
	Service    *pdf.Service
	Dispatcher *tools.Dispatcher
	Jobs       *jobs.Manager
	// MCP is mounted at /mcp when set
	MCP http.Handler
	// Gatherer backs /metrics, the default registry when nil
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
}

type api struct {
	service    *pdf.Service
	dispatcher *tools.Dispatcher
	jobs       *jobs.Manager
	origins    []string
}

// New constructs the HTTP handler for the server.
func New(deps Deps) http.Handler {
	a := &api{
		service:    deps.Service,
		dispatcher: deps.Dispatcher,
		jobs:       deps.Jobs,
		origins:    deps.AllowedOrigins,
	}

	r := chi.NewRouter()
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{"Content-Disposition", "Mcp-Session-Id"},
		}))
	}
	r.Use(middleware.RequestID, requestLogger, middleware.Recoverer)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Get("/healthz", a.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	if deps.MCP != nil {
		r.Handle("/mcp", deps.MCP)
	}

	r.Route("/api", func(ar chi.Router) {
		ar.Get("/categories", a.listCategories)
		ar.Route("/tools", func(tr chi.Router) {
			tr.Get("/", a.listTools)
			tr.Get("/{slug}", a.getTool)
			tr.Post("/{slug}", a.runTool)
		})
		ar.Post("/page-count", a.pageCount)
		if a.jobs != nil {
			ar.Route("/jobs", func(jr chi.Router) {
				jr.Post("/{slug}", a.submitJob)
				jr.Get("/{id}", a.getJob)
				jr.Delete("/{id}", a.resetJob)
				jr.Get("/{id}/result", a.jobResult)
				jr.Get("/{id}/events", a.jobEvents)
			})
		}
	})

	return r
}

func (a *api) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down gracefully
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
