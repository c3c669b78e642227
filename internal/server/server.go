// ABOUTME: HTTP API for submitting jobs and inspecting configured agents
// ABOUTME: Provides POST /v1/jobs, GET /v1/agents, and health endpoints

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/porterhq/agentq/internal/config"
	"github.com/porterhq/agentq/internal/message"
	"github.com/porterhq/agentq/internal/queue"
)

// Pinger is implemented by queue engines that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EnqueueResponse is the JSON response for POST /v1/jobs.
type EnqueueResponse struct {
	JobID         string `json:"jobId"`
	CorrelationID string `json:"correlationId"`
	Queue         string `json:"queue"`
}

// AgentInfoResponse is the JSON response entry for GET /v1/agents.
type AgentInfoResponse struct {
	Name             string   `json:"name"`
	Model            string   `json:"model,omitempty"`
	MaxTurns         int      `json:"max_turns,omitempty"`
	AllowedTools     []string `json:"allowed_tools,omitempty"`
	RequiresApproval bool     `json:"requires_approval"`
	Queue            string   `json:"queue"`
}

// Server exposes the job submission API over HTTP.
type Server struct {
	queues queue.Engine
	agents map[string]config.AgentConfig
	authMW func(http.Handler) http.Handler
	logger *slog.Logger
}

// New creates a Server. authMW may be nil for an unauthenticated API.
func New(queues queue.Engine, agents map[string]config.AgentConfig, authMW func(http.Handler) http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if authMW == nil {
		authMW = func(next http.Handler) http.Handler { return next }
	}
	return &Server{
		queues: queues,
		agents: agents,
		authMW: authMW,
		logger: logger,
	}
}

// Handler builds the HTTP routing table. Health endpoints bypass auth.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/v1/jobs", s.authMW(http.HandlerFunc(s.handleEnqueueJob)))
	mux.Handle("/v1/agents", s.authMW(http.HandlerFunc(s.handleListAgents)))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/healthz/ready", s.handleReady)

	return mux
}

// handleEnqueueJob handles POST /v1/jobs requests.
// It validates the job request, fills in a correlation ID when the caller
// omits one, and enqueues the job on the agent's request queue.
func (s *Server) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "reading request body")
		return
	}

	var req message.AgentJobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	if err := req.Validate(); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, ok := s.agents[req.AgentName]; !ok {
		s.sendJSONError(w, http.StatusNotFound, fmt.Sprintf("agent %q not configured", req.AgentName))
		return
	}

	payload, err := json.Marshal(req)
	if err != nil {
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	queueName := message.RequestQueue(req.AgentName)
	jobID, err := s.queues.Send(r.Context(), queueName, payload, &queue.SendOptions{Priority: req.Priority})
	if err != nil {
		s.logger.Error("failed to enqueue job", "agent", req.AgentName, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	s.logger.Info("job enqueued",
		"agent", req.AgentName,
		"correlation_id", req.CorrelationID,
		"job_id", jobID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(EnqueueResponse{
		JobID:         jobID,
		CorrelationID: req.CorrelationID,
		Queue:         queueName,
	})
}

// handleListAgents handles GET /v1/agents requests.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	response := make([]AgentInfoResponse, 0, len(s.agents))
	for name, agent := range s.agents {
		response = append(response, AgentInfoResponse{
			Name:             name,
			Model:            agent.Model,
			MaxTurns:         agent.MaxTurns,
			AllowedTools:     agent.AllowedTools,
			RequiresApproval: agent.HITL != nil && len(agent.HITL.RequireApproval) > 0,
			Queue:            message.RequestQueue(name),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the queue engine is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.queues.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "queue engine unreachable: %v", err)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d agents)", len(s.agents))
}

func (s *Server) sendJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Run serves the API on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}
