// Package api exposes the engine over a small JSON HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/ragent/internal/checkpoint"
	"github.com/koopa0/ragent/internal/orchestrator"
)

// Engine is the slice of the orchestrator the server uses.
type Engine interface {
	Run(ctx context.Context, threadID, question string) (*orchestrator.Result, error)
	History(ctx context.Context, threadID string) (checkpoint.SessionState, bool, error)
}

// Server serves the JSON API.
type Server struct {
	engine Engine
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server.
func NewServer(engine Engine, logger *slog.Logger) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{engine: engine, logger: logger, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/v1/ask", s.handleAsk)
	s.mux.HandleFunc("GET /api/v1/threads/{thread}", s.handleHistory)
	s.mux.HandleFunc("GET /api/v1/diagram", s.handleDiagram)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s, nil
}

// Handler returns the root handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.mux)
}

// withRequestID tags each request with an id for log correlation.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

type askRequest struct {
	ThreadID string `json:"thread_id"`
	Question string `json:"question"`
}

type askResponse struct {
	ThreadID string               `json:"thread_id"`
	Result   *orchestrator.Result `json:"result"`
	// Warning is set when the answer succeeded but persistence failed.
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ThreadID == "" {
		req.ThreadID = uuid.NewString()
	}

	result, err := s.engine.Run(r.Context(), req.ThreadID, req.Question)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, askResponse{ThreadID: req.ThreadID, Result: result})
	case errors.Is(err, orchestrator.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkpoint.ErrCheckpointIO) && result != nil:
		// The answer survived; report it with a warning instead of failing.
		s.writeJSON(w, http.StatusOK, askResponse{
			ThreadID: req.ThreadID,
			Result:   result,
			Warning:  "answer produced but session state was not persisted",
		})
	default:
		s.logger.Error("ask failed", "thread_id", req.ThreadID, "error", err)
		s.writeError(w, http.StatusBadGateway, "answer generation failed")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("thread")

	state, ok, err := s.engine.History(r.Context(), threadID)
	switch {
	case errors.Is(err, orchestrator.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error("history lookup failed", "thread_id", threadID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "history lookup failed")
	case !ok:
		s.writeError(w, http.StatusNotFound, "thread not found")
	default:
		s.writeJSON(w, http.StatusOK, state)
	}
}

func (s *Server) handleDiagram(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(orchestrator.Diagram()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
