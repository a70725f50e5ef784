// Package serve exposes the operator-facing admin HTTP surface: health,
// metrics, and a decision probe for debugging policy behavior.
package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lattice-run/warden/internal/policy"
)

// AdminServer provides the admin HTTP API.
type AdminServer interface {
	Start(ctx context.Context, port int) error
}

// adminServer is the internal implementation of AdminServer
type adminServer struct {
	engine   *policy.Engine
	registry *prometheus.Registry

	server *http.Server
}

// DecisionRequest is an operator-submitted probe evaluation. The payloads
// are the same descriptors actors present at invocation time.
type DecisionRequest struct {
	Source map[string]any `json:"source"`
	Target map[string]any `json:"target"`
	Action any            `json:"action"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewAdminServer creates a new admin server
func NewAdminServer(engine *policy.Engine, registry *prometheus.Registry) AdminServer {
	return &adminServer{
		engine:   engine,
		registry: registry,
	}
}

// Start starts the admin server on the specified port
func (s *adminServer) Start(ctx context.Context, port int) error {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/decisions", s.handleDecision)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// handleHealth handles health check requests
func (s *adminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleDecision runs a probe evaluation through the engine. The result is a
// real decision: a successful remote answer is cached exactly as if an actor
// had made the invocation.
func (s *adminServer) handleDecision(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	decision := s.engine.EvaluateAction(r.Context(), req.Source, req.Target, req.Action)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(decision)
}

// sendError sends an error response
func (s *adminServer) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
