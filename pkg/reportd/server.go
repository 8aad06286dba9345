package reportd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/varekai/opsmind/internal/core/domain"
	"github.com/varekai/opsmind/internal/core/ports"
)

const defaultListLimit = 50

// Server exposes task results and traces read-only over HTTP. It is a
// reporting surface: rendering and notification are the caller's business.
type Server struct {
	logger *slog.Logger
	repo   ports.Repository
	server *http.Server
}

// NewServer builds the report server listening on addr.
func NewServer(logger *slog.Logger, repo ports.Repository, addr string) *Server {
	s := &Server{
		logger: logger,
		repo:   repo,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/results", s.handleListResults)
	mux.HandleFunc("GET /api/results/{name}", s.handleGetResult)
	mux.HandleFunc("GET /api/traces", s.handleListTraces)
	mux.HandleFunc("GET /api/traces/{id}", s.handleGetTrace)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           cors.Default().Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown or listener failure.
func (s *Server) Start() error {
	s.logger.Info("report server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("report server error: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.repo.ListTaskResults(r.Context(), queryLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.repo.GetTaskResult(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListTraces(w http.ResponseWriter, r *http.Request) {
	traces, err := s.repo.ListTraces(r.Context(), queryLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"traces": traces})
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	trace, err := s.repo.GetTrace(r.Context(), domain.TraceID(r.PathValue("id")))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, trace)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}

// statusFor maps lookup failures to 404; everything else is a server fault.
func statusFor(err error) int {
	if strings.Contains(err.Error(), "not found") {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
