package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/artifact"
	"github.com/rhuss/codeinterp/pkg/transport"
)

// Adapter serves the code interpreter API over HTTP.
// It routes requests to the runner and the artifact reader and serializes
// execution reports.
type Adapter struct {
	runner    transport.Runner
	artifacts transport.ArtifactReader
	health    transport.HealthChecker // nil reports always healthy
	inflight  *transport.Tracker
	mux       *http.ServeMux
	config    Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter. The health checker is optional.
// Middleware is applied to the runner in the given order.
func NewAdapter(runner transport.Runner, artifacts transport.ArtifactReader, health transport.HealthChecker, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		runner = transport.Chain(middlewares...)(runner)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		runner:    runner,
		artifacts: artifacts,
		health:    health,
		inflight:  transport.NewTracker(),
		mux:       http.NewServeMux(),
		config:    cfg,
	}

	a.mux.HandleFunc("POST /run", a.handleRun)
	a.mux.HandleFunc("GET /images/temp/{file}", a.handleArtifact(api.ArtifactImage))
	a.mux.HandleFunc("GET /files/temp/{file}", a.handleArtifact(api.ArtifactDataset))
	a.mux.HandleFunc("GET /health", a.handleHealth)
	a.mux.HandleFunc("GET /healthz", a.handleHealthz)

	return a
}

// Handle mounts an extra handler, such as the metrics or MCP endpoint, on
// the adapter's mux.
func (a *Adapter) Handle(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

// CancelQueued cancels every submission still registered as in flight and
// returns how many there were. Submissions waiting for a worker slot give
// up; running ones are detached and finish on their own deadline.
func (a *Adapter) CancelQueued() int {
	return a.inflight.CancelAll()
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for CORS and request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return corsMiddleware(httpRequestIDMiddleware(a.mux))
}

// corsMiddleware allows any origin, method and header, and answers
// preflight requests directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "*")
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// httpRequestIDMiddleware propagates the X-Request-ID header. A client
// supplied ID is used as is; otherwise a fresh one is generated so that the
// response header and the logs agree.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// handleRun handles POST /run.
func (a *Adapter) handleRun(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			transport.WriteError(w, api.NewInvalidRequestError("content_type", "Content-Type must be application/json").
				WithStatus(http.StatusUnsupportedMediaType))
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var req api.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteError(w, api.NewInvalidRequestError("body",
				fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)).
				WithStatus(http.StatusRequestEntityTooLarge))
			return
		}
		transport.WriteError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		return
	}

	ctx, done := a.inflight.Track(r.Context())
	defer done()

	report, err := a.runner.Run(ctx, &req)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// handleArtifact serves GET /images/temp/{id}.png and
// GET /files/temp/{id}.csv.
func (a *Adapter) handleArtifact(kind api.ArtifactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := strings.CutSuffix(r.PathValue("file"), kind.Extension())
		if !ok || !api.ValidateArtifactID(id) {
			transport.WriteError(w, api.NewNotFoundError(string(kind)+" not found"))
			return
		}

		data, err := a.artifacts.Get(r.Context(), kind, id)
		if err != nil {
			if errors.Is(err, artifact.ErrNotFound) {
				transport.WriteError(w, api.NewNotFoundError(string(kind)+" not found"))
				return
			}
			transport.WriteError(w, api.NewServerError(err.Error()))
			return
		}

		w.Header().Set("Content-Type", kind.ContentType())
		w.Write(data)
	}
}

// handleHealth handles GET /health.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "healthy"}
	status := http.StatusOK
	if a.health != nil {
		if err := a.health.HealthCheck(r.Context()); err != nil {
			body = map[string]string{"status": "unhealthy", "error": err.Error()}
			status = http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// handleHealthz handles GET /healthz, a liveness probe that never touches
// dependencies.
func (a *Adapter) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}
