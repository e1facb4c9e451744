// Package server exposes retrieval over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hession/coco/internal/logger"
	"github.com/hession/coco/internal/query"
	"github.com/hession/coco/internal/retrieval"
	"github.com/hession/coco/internal/telemetry"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
	shutdownTimeout     = 10 * time.Second
)

// Retriever answers a retrieval request.
type Retriever interface {
	Retrieve(ctx context.Context, req *retrieval.Request) (*retrieval.Outcome, error)
}

// History lists recorded events. *telemetry.SQLiteStore implements it.
type History interface {
	Recent(ctx context.Context, limit int) ([]*telemetry.Event, error)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server handles the HTTP API.
type Server struct {
	retriever Retriever
	history   History
	log       *logger.Logger
}

// New creates a server. history and log may be nil.
func New(retriever Retriever, history History, log *logger.Logger) *Server {
	return &Server{retriever: retriever, history: history, log: log}
}

// Router builds the chi router with the middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.jsonRecoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(Middleware())

	r.Get("/search", s.Search)
	r.Get("/history", s.History)
	r.Get("/healthz", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.infof("Starting HTTP server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.infof("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.infof("Server stopped gracefully")
	return nil
}

// Search handles GET /search?what=&where=&extra=&user=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	what := strings.TrimSpace(params.Get("what"))
	where := strings.TrimSpace(params.Get("where"))
	if what == "" || where == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "query parameters what and where are required")
		return
	}

	req := retrieval.NewRequest(params.Get("user"), what, where, params.Get("extra"))
	s.infof("search request %s (http %s) from %s", req.ID, chiMiddleware.GetReqID(r.Context()), req.User)

	outcome, err := s.retriever.Retrieve(r.Context(), req)
	if err != nil {
		if errors.Is(err, query.ErrConfig) {
			writeError(w, http.StatusInternalServerError, "config_error", "search is misconfigured")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// History handles GET /history?limit=.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "not_found", "event history is disabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	events, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.errorf("failed to read history: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	if events == nil {
		events = []*telemetry.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				s.errorf("panic recovered on %s %s: %v", r.Method, r.URL.Path, rvr)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) infof(format string, args ...any) {
	if s.log != nil {
		s.log.Info(format, args...)
	}
}

func (s *Server) errorf(format string, args ...any) {
	if s.log != nil {
		s.log.Error(format, args...)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
