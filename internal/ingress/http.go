package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/harunnryd/denrei/internal/admission"
	"github.com/harunnryd/denrei/internal/config"
	"github.com/harunnryd/denrei/internal/domain"
	denreiErrors "github.com/harunnryd/denrei/internal/errors"
	"github.com/harunnryd/denrei/internal/lifecycle"
	"github.com/harunnryd/denrei/internal/logger"
	"github.com/harunnryd/denrei/internal/retry"
	"github.com/harunnryd/denrei/internal/store"

	"github.com/oklog/ulid/v2"
)

// Sweeper triggers one retry sweep on demand.
type Sweeper interface {
	RetryPending(ctx context.Context) retry.Summary
}

// HTTPServer exposes the command and action API.
type HTTPServer struct {
	admission *admission.Service
	lifecycle *lifecycle.Manager
	store     *store.Store
	sweeper   Sweeper
	server    *http.Server
}

func NewHTTPServer(cfg config.ServerConfig, adm *admission.Service, lc *lifecycle.Manager, st *store.Store, sweeper Sweeper) (*HTTPServer, error) {
	readTimeout, err := config.DurationOrDefault(cfg.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(cfg.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(cfg.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse idle timeout: %w", err)
	}

	port := cfg.Port
	if port <= 0 {
		port = config.DefaultServerPort
	}

	mux := http.NewServeMux()
	s := &HTTPServer{
		admission: adm,
		lifecycle: lc,
		store:     st,
		sweeper:   sweeper,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      traceMiddleware(mux),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}

	mux.HandleFunc("POST /api/v1/commands", s.handleAdmit)
	mux.HandleFunc("GET /api/v1/commands/{id}", s.handleGetCommand)
	mux.HandleFunc("GET /api/v1/actions", s.handleListActions)
	mux.HandleFunc("GET /api/v1/actions/{id}", s.handleGetAction)
	mux.HandleFunc("PATCH /api/v1/actions/{id}/type", s.handleChangeType)
	mux.HandleFunc("POST /api/v1/actions/{id}/approve", s.handleApprove)
	mux.HandleFunc("GET /api/v1/actions/{id}/transitions", s.handleTransitions)
	mux.HandleFunc("POST /api/v1/retry/sweep", s.handleSweep)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s, nil
}

// Start starts the HTTP server in a goroutine.
func (s *HTTPServer) Start() {
	go func() {
		slog.Info("Starting HTTP server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
		}
	}()
}

// Stop stops the HTTP server gracefully.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// traceMiddleware stamps every request with a trace id so log lines from one
// request correlate across admission, classification and lifecycle.
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := ulid.Make().String()
		w.Header().Set("X-Trace-Id", traceID)
		next.ServeHTTP(w, r.WithContext(logger.WithTraceID(r.Context(), traceID)))
	})
}

type admitRequest struct {
	Source     string    `json:"source"`
	ExternalID string    `json:"external_id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

func (s *HTTPServer) handleAdmit(w http.ResponseWriter, r *http.Request) {
	var req admitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.admission.Admit(r.Context(), admission.Event{
		Source:     domain.SourceType(req.Source),
		ExternalID: req.ExternalID,
		UserID:     req.UserID,
		Text:       req.Text,
		Timestamp:  req.Timestamp,
	})
	if err != nil && result == nil {
		writeError(w, r, err)
		return
	}
	if err != nil {
		// Command persisted, classification failed. The command record holds
		// the terminal status; the transport gets its receipt either way.
		slog.Warn("Admitted command failed classification",
			"command", result.CommandID, "trace_id", logger.GetTraceID(r.Context()), "error", err)
	}

	if !result.IsNew {
		writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate", "command_id": result.CommandID})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted", "command_id": result.CommandID})
}

func (s *HTTPServer) handleGetCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := s.store.GetCommand(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

func (s *HTTPServer) handleGetAction(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "Missing required query param: user_id", http.StatusBadRequest)
		return
	}

	action, err := s.lifecycle.GetAction(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (s *HTTPServer) handleListActions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "Missing required query param: user_id", http.StatusBadRequest)
		return
	}

	status := domain.ActionStatus(r.URL.Query().Get("status"))
	actions := s.lifecycle.ListActions(r.Context(), userID, status)
	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

type changeTypeRequest struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
}

func (s *HTTPServer) handleChangeType(w http.ResponseWriter, r *http.Request) {
	var req changeTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "Missing required field: user_id", http.StatusBadRequest)
		return
	}

	newType, err := domain.ParseActionType(req.Type)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tr, err := s.lifecycle.ChangeType(r.Context(), r.PathValue("id"), req.UserID, newType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tr == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "unchanged"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reclassified", "transition": tr})
}

type approveRequest struct {
	UserID string `json:"user_id"`
}

func (s *HTTPServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "Missing required field: user_id", http.StatusBadRequest)
		return
	}

	if err := s.lifecycle.Approve(r.Context(), r.PathValue("id"), req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "approved"})
}

func (s *HTTPServer) handleTransitions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "Missing required query param: user_id", http.StatusBadRequest)
		return
	}

	transitions, err := s.lifecycle.Transitions(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": transitions})
}

func (s *HTTPServer) handleSweep(w http.ResponseWriter, r *http.Request) {
	if s.sweeper == nil {
		http.Error(w, "Retry sweep not available", http.StatusServiceUnavailable)
		return
	}
	summary := s.sweeper.RetryPending(r.Context())
	writeJSON(w, http.StatusOK, summary)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case denreiErrors.IsCategory(err, denreiErrors.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case denreiErrors.IsCategory(err, denreiErrors.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case denreiErrors.IsCategory(err, denreiErrors.ErrInvalidStatus),
		denreiErrors.IsCategory(err, denreiErrors.ErrConflict),
		denreiErrors.IsCategory(err, denreiErrors.ErrConcurrentModification):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		slog.Error("Request failed",
			"method", r.Method, "path", r.URL.Path, "trace_id", logger.GetTraceID(r.Context()), "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
