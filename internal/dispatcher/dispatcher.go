// ABOUTME: Async dispatcher running one serialized worker per configured agent.
// ABOUTME: Resolves the reply channel, executes the agent with the HITL gate, delivers the outcome.

package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/porterhq/agentq/internal/channel"
	"github.com/porterhq/agentq/internal/dedupe"
	"github.com/porterhq/agentq/internal/engine"
	"github.com/porterhq/agentq/internal/hitl"
	"github.com/porterhq/agentq/internal/message"
	"github.com/porterhq/agentq/internal/metrics"
	"github.com/porterhq/agentq/internal/queue"
)

// Error codes carried in the error variant of AgentJobResponse.
const (
	CodeAgentNotConfigured = "agent_not_configured"
	CodeExecutionFailed    = "execution_failed"
)

// AgentSpec is one agent's execution configuration plus its optional HITL
// policy. A nil HITL installs no approval gate.
type AgentSpec struct {
	Model        string
	SystemPrompt string
	MaxTurns     int
	AllowedTools []string
	HITL         *hitl.Policy
}

// Config holds the dispatcher's explicit wiring: the agent map and worker
// tuning. Channels and HITL defaults are passed as constructed collaborators.
type Config struct {
	Agents map[string]AgentSpec
	// PollInterval is the idle sleep per agent queue. Defaults to one second.
	PollInterval time.Duration
}

// Dispatcher subscribes one worker per configured agent to that agent's
// request queue. Jobs for the same agent never overlap (batch size 1);
// distinct agents run fully in parallel.
type Dispatcher struct {
	queues       queue.Engine
	engine       engine.Engine
	channels     *channel.Registry
	approvals    *hitl.Coordinator
	agents       map[string]AgentSpec
	pollInterval time.Duration
	delivered    *dedupe.Cache
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// New creates a Dispatcher. All collaborators are required except metrics,
// which may be nil.
func New(queues queue.Engine, eng engine.Engine, channels *channel.Registry, approvals *hitl.Coordinator, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Dispatcher{
		queues:       queues,
		engine:       eng,
		channels:     channels,
		approvals:    approvals,
		agents:       cfg.Agents,
		pollInterval: pollInterval,
		delivered:    dedupe.New(time.Hour, 16384),
		metrics:      m,
		logger:       logger.With("component", "dispatcher"),
	}
}

// Run starts one worker per configured agent and blocks until the context is
// cancelled or a worker fails fatally.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.delivered.Close()

	g, ctx := errgroup.WithContext(ctx)

	for name := range d.agents {
		queueName := message.RequestQueue(name)
		logger := d.logger.With("agent", name)
		logger.Info("worker starting", "queue", queueName)

		g.Go(func() error {
			return queue.Work(ctx, d.queues, queueName, d.handleJob, queue.WorkOptions{
				BatchSize:    1,
				PollInterval: d.pollInterval,
				Logger:       logger,
			})
		})
	}

	return g.Wait()
}

// handleJob processes one fetched job. A returned error fails the job at the
// queue level, driving redelivery and eventual dead-lettering; returning nil
// completes it. Outcomes that notified the caller complete the job even when
// the execution itself failed.
func (d *Dispatcher) handleJob(ctx context.Context, job *queue.Job) error {
	var req message.AgentJobRequest
	if err := json.Unmarshal(job.Payload, &req); err != nil {
		d.logger.Error("malformed job payload", "job_id", job.ID, "error", err)
		return fmt.Errorf("decoding job payload: %w", err)
	}
	if err := req.Validate(); err != nil {
		d.logger.Error("invalid job request", "job_id", job.ID, "error", err)
		return fmt.Errorf("invalid job request: %w", err)
	}

	logger := d.logger.With("correlation_id", req.CorrelationID, "agent", req.AgentName)

	// At-least-once delivery means a crash between deliver and Complete
	// redelivers the job. A correlation id whose response already went out
	// is completed without running the agent again.
	if d.delivered.Check(req.CorrelationID) {
		logger.Info("response already delivered, completing redelivered job")
		return nil
	}

	// Channel resolution happens before the config lookup so the caller is
	// notified of configuration errors whenever a channel can be resolved
	// at all. Without a channel there is nowhere to send anything: the
	// failure is surfaced to the queue engine and its retry policy.
	ch, err := d.channels.Resolve(req.ReplyTo)
	if err != nil {
		logger.Error("reply channel resolution failed", "reply_to", req.ReplyTo, "error", err)
		return fmt.Errorf("resolving reply channel %q: %w", req.ReplyTo, err)
	}

	start := time.Now()
	spec, ok := d.agents[req.AgentName]
	if !ok {
		logger.Warn("agent not configured")
		resp := message.NewError(&req, "",
			fmt.Sprintf("Agent '%s' not configured", req.AgentName),
			CodeAgentNotConfigured, time.Since(start))
		if err := d.deliver(ctx, ch, resp, logger); err != nil {
			return err
		}
		d.delivered.Mark(req.CorrelationID)
		return nil
	}

	d.metrics.JobStarted(req.AgentName)
	resp := d.execute(ctx, spec, &req, ch, logger)
	status := resp.Type
	if err := d.deliver(ctx, ch, resp, logger); err != nil {
		d.metrics.JobFinished(req.AgentName, "failed", time.Since(start))
		return err
	}
	d.delivered.Mark(req.CorrelationID)
	d.metrics.JobFinished(req.AgentName, status, time.Since(start))
	return nil
}

// execute runs the agent engine for one request and shapes the terminal
// response. Execution failures become the error variant; the job itself is
// still completed at the queue level once the response is delivered.
func (d *Dispatcher) execute(ctx context.Context, spec AgentSpec, req *message.AgentJobRequest, ch channel.Channel, logger *slog.Logger) *message.AgentJobResponse {
	start := time.Now()

	opts := engine.Options{
		Prompt:       req.Prompt,
		SystemPrompt: spec.SystemPrompt,
		Model:        spec.Model,
		MaxTurns:     spec.MaxTurns,
		AllowedTools: spec.AllowedTools,
		Resume:       req.SessionID,
		Fork:         req.ForkSession,
		OnToolUse:    d.approvals.Handler(spec.HITL, req, ch),
	}

	events, err := d.engine.Execute(ctx, opts)
	if err != nil {
		logger.Error("agent execution could not start", "error", err)
		return message.NewError(req, "", err.Error(), CodeExecutionFailed, time.Since(start))
	}

	// Capture the session id as soon as it appears: the init event usually
	// carries it, the terminal result always does.
	var sessionID string
	var output string
	var structured json.RawMessage
	var errMsg string
	sawTerminal := false

	for ev := range events {
		if ev.SessionID != "" {
			sessionID = ev.SessionID
		}
		switch ev.Type {
		case engine.EventInit:
			logger.Debug("agent session started", "session_id", ev.SessionID)
		case engine.EventMessage:
			logger.Debug("agent progress", "text", ev.Text)
		case engine.EventResult:
			output = ev.Text
			structured = ev.Structured
			sawTerminal = true
		case engine.EventError:
			errMsg = ev.Error
			sawTerminal = true
		}
	}

	if !sawTerminal {
		errMsg = "agent stream ended without a terminal event"
	}
	if errMsg != "" {
		logger.Warn("agent execution failed", "error", errMsg)
		return message.NewError(req, sessionID, errMsg, CodeExecutionFailed, time.Since(start))
	}

	logger.Info("agent execution finished", "session_id", sessionID, "duration", time.Since(start))
	return message.NewResult(req, sessionID, output, structured, time.Since(start))
}

// deliver marshals and sends the response. Delivery failures are logged and
// reported as the failure outcome of the job, which drives the queue
// engine's own redelivery and dead-letter policy.
func (d *Dispatcher) deliver(ctx context.Context, ch channel.Channel, resp *message.AgentJobResponse, logger *slog.Logger) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	if err := ch.Send(ctx, payload); err != nil {
		logger.Error("response delivery failed", "type", resp.Type, "error", err)
		return fmt.Errorf("delivering response: %w", err)
	}
	logger.Info("response delivered", "type", resp.Type)
	return nil
}
