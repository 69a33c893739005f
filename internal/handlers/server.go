package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/alvarorichard/goanime-resolver/internal/util"
)

// RequestIDHeader carries the per-request id on every response
const RequestIDHeader = "X-Request-ID"

// Options configures the HTTP server
type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the resolution endpoint and its companions
type Server struct {
	resolver Resolver
	perf     *util.PerfTracker
	handler  http.Handler
	server   *http.Server
}

// NewServer wires the routes. perf may be nil.
func NewServer(resolver Resolver, perf *util.PerfTracker, opts Options) *Server {
	s := &Server{resolver: resolver, perf: perf}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /episode-resolution", s.handleResolution)
	mux.HandleFunc("GET /api/animes/{slug}/episodes/{episode}", s.handleResolution)
	mux.HandleFunc("GET /providers", s.handleProviders)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)

	s.handler = s.withRequestLog(mux)
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with request logging
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts down gracefully
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	util.Info("resolver listening", "address", listener.Addr().String(), "providers", s.resolver.Total())

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	<-done
	return nil
}

// statusRecorder captures what the request log line needs
type statusRecorder struct {
	http.ResponseWriter
	status   int
	provider string
	index    int
	hasIndex bool
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// annotate attaches the provider and index to the request log line
func annotate(w http.ResponseWriter, provider string, index int) {
	if rec, ok := w.(*statusRecorder); ok {
		rec.provider, rec.index, rec.hasIndex = provider, index, true
	}
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(started)

		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		s.perf.Record("http "+pattern, elapsed)

		keyvals := []interface{}{
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed.Round(time.Millisecond),
		}
		if rec.hasIndex {
			keyvals = append(keyvals, "provider", rec.provider, "index", rec.index)
		}
		util.Info("request", keyvals...)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		util.Error("failed to encode response", "error", err)
	}
}
