// ABOUTME: Approval coordinator deciding allow/deny/abort per tool invocation.
// ABOUTME: Required approvals run a publish-then-poll round trip on an ephemeral queue.

package hitl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/porterhq/agentq/internal/channel"
	"github.com/porterhq/agentq/internal/engine"
	"github.com/porterhq/agentq/internal/message"
	"github.com/porterhq/agentq/internal/metrics"
	"github.com/porterhq/agentq/internal/queue"
)

// DefaultApprovalTimeout applies when neither the agent policy nor the
// module defaults set one.
const DefaultApprovalTimeout = 5 * time.Minute

// OnTimeout selects what happens when an approval deadline elapses.
type OnTimeout string

const (
	// TimeoutDeny blocks the tool call; the agent continues without it.
	TimeoutDeny OnTimeout = "deny"
	// TimeoutAbort terminates the whole agent execution.
	TimeoutAbort OnTimeout = "abort"
)

// Policy is an agent's HITL configuration. AutoApprove wins over
// RequireApproval; tools matching neither list are allowed by default.
type Policy struct {
	AutoApprove     []string
	RequireApproval []string
	// ApprovalTimeout bounds one approval wait. Zero falls back to the
	// module default, then to DefaultApprovalTimeout.
	ApprovalTimeout time.Duration
	// OnTimeout resolves an elapsed deadline. Empty falls back to the
	// module default, then to deny.
	OnTimeout OnTimeout
}

// Defaults are the module-wide fallbacks for per-agent policies.
type Defaults struct {
	ApprovalTimeout time.Duration
	OnTimeout       OnTimeout
}

// Coordinator builds approval callbacks for the dispatcher. Approval waits
// poll the ephemeral decision queue with exponential backoff; approval
// latency is human-scale, so a cheap poll loop beats a push subscription per
// pending approval.
type Coordinator struct {
	queues   queue.Engine
	defaults Defaults
	logger   *slog.Logger
	metrics  *metrics.Metrics

	pollInitial time.Duration
	pollMax     time.Duration
}

// New creates a Coordinator using the shared queue engine for approval
// round trips.
func New(queues queue.Engine, defaults Defaults, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		queues:      queues,
		defaults:    defaults,
		logger:      logger.With("component", "hitl"),
		pollInitial: time.Second,
		pollMax:     5 * time.Second,
	}
}

// SetMetrics wires approval counters. Optional; nil metrics record nothing.
func (c *Coordinator) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// Handler returns the approval callback for one job, bound to its policy,
// request, and reply channel. A nil policy installs no gate: the returned
// callback is nil and the engine runs tools unchecked.
func (c *Coordinator) Handler(policy *Policy, req *message.AgentJobRequest, ch channel.Channel) engine.ApprovalFunc {
	if policy == nil {
		return nil
	}
	return func(ctx context.Context, call engine.ToolCall) (engine.ToolDecision, error) {
		return c.decide(ctx, policy, req, ch, call)
	}
}

func (c *Coordinator) decide(ctx context.Context, policy *Policy, req *message.AgentJobRequest, ch channel.Channel, call engine.ToolCall) (engine.ToolDecision, error) {
	// Auto-approve always wins, even when the tool also matches a
	// require-approval pattern.
	if Matches(call.Name, policy.AutoApprove) {
		return engine.Allow(), nil
	}
	if !Matches(call.Name, policy.RequireApproval) {
		return engine.Allow(), nil
	}
	return c.requestApproval(ctx, policy, req, ch, call)
}

// requestApproval publishes an ApprovalRequest on the job's reply channel and
// waits for the decision on a fresh ephemeral queue.
func (c *Coordinator) requestApproval(ctx context.Context, policy *Policy, req *message.AgentJobRequest, ch channel.Channel, call engine.ToolCall) (engine.ToolDecision, error) {
	approvalID := uuid.New().String()
	queueName := message.ApprovalQueue(req.CorrelationID, approvalID[:8])
	timeout := c.resolveTimeout(policy)
	deadline := time.Now().Add(timeout)

	logger := c.logger.With(
		"correlation_id", req.CorrelationID,
		"approval_id", approvalID,
		"tool", call.Name,
	)

	if err := c.queues.CreateQueue(ctx, queueName); err != nil {
		return engine.ToolDecision{}, fmt.Errorf("creating approval queue: %w", err)
	}
	defer func() {
		// the queue only ever holds one decision; drop it regardless of
		// how the wait ended
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := c.queues.DropQueue(cleanupCtx, queueName); err != nil {
			logger.Warn("dropping approval queue", "error", err)
		}
	}()

	approval := message.ApprovalRequest{
		Type:              message.TypeApprovalRequest,
		ApprovalID:        approvalID,
		CorrelationID:     req.CorrelationID,
		Tool:              message.ToolCall{Name: call.Name, Input: call.Input},
		ExpiresAt:         deadline.UTC(),
		ApprovalQueueName: queueName,
	}
	payload, err := json.Marshal(&approval)
	if err != nil {
		return engine.ToolDecision{}, fmt.Errorf("encoding approval request: %w", err)
	}
	if err := ch.Send(ctx, payload); err != nil {
		return engine.ToolDecision{}, fmt.Errorf("publishing approval request: %w", err)
	}

	logger.Info("approval requested", "queue", queueName, "timeout", timeout)
	c.metrics.ApprovalRequested(req.AgentName)

	decision, err := c.awaitDecision(ctx, queueName, approvalID, deadline)
	if err != nil {
		return engine.ToolDecision{}, err
	}
	if decision == nil {
		// deadline elapsed: resolve deterministically via policy
		onTimeout := c.resolveOnTimeout(policy)
		logger.Info("approval timed out", "on_timeout", string(onTimeout))
		c.metrics.ApprovalResolved(req.AgentName, "timeout")
		if onTimeout == TimeoutAbort {
			return engine.ToolDecision{
				Behavior: engine.BehaviorAbort,
				Message:  fmt.Sprintf("approval for tool %q timed out after %s", call.Name, timeout),
			}, nil
		}
		return engine.ToolDecision{
			Behavior: engine.BehaviorDeny,
			Message:  fmt.Sprintf("approval for tool %q timed out after %s", call.Name, timeout),
		}, nil
	}

	logger.Info("approval decided", "decision", decision.Decision, "decided_by", decision.DecidedBy)
	c.metrics.ApprovalResolved(req.AgentName, decision.Decision)
	return mapDecision(decision, call), nil
}

// awaitDecision polls the ephemeral queue with exponential backoff until a
// decision arrives or the deadline elapses. A nil decision with nil error
// means timeout.
func (c *Coordinator) awaitDecision(ctx context.Context, queueName, approvalID string, deadline time.Time) (*message.ApprovalDecision, error) {
	backoff := c.pollInitial
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		job, err := c.queues.Fetch(ctx, queueName)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("polling approval queue", "queue", queueName, "error", err)
		}
		if job != nil {
			if cerr := c.queues.Complete(ctx, queueName, job.ID, nil); cerr != nil {
				c.logger.Warn("completing approval job", "queue", queueName, "error", cerr)
			}
			var decision message.ApprovalDecision
			if err := json.Unmarshal(job.Payload, &decision); err != nil {
				c.logger.Warn("malformed approval decision", "queue", queueName, "error", err)
				continue
			}
			if decision.ApprovalID != "" && decision.ApprovalID != approvalID {
				c.logger.Warn("decision for wrong approval id, ignoring",
					"queue", queueName, "got", decision.ApprovalID, "want", approvalID)
				continue
			}
			return &decision, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.pollMax {
			backoff = c.pollMax
		}
	}
}

func mapDecision(decision *message.ApprovalDecision, call engine.ToolCall) engine.ToolDecision {
	switch decision.Decision {
	case message.DecisionApprove:
		return engine.ToolDecision{
			Behavior:     engine.BehaviorAllow,
			UpdatedInput: decision.UpdatedInput,
		}
	case message.DecisionAbort:
		reason := decision.Reason
		if reason == "" {
			reason = fmt.Sprintf("execution aborted by approver for tool %q", call.Name)
		}
		return engine.ToolDecision{Behavior: engine.BehaviorAbort, Message: reason}
	case message.DecisionDeny:
		fallthrough
	default:
		reason := decision.Reason
		if reason == "" {
			reason = fmt.Sprintf("tool %q denied by approver", call.Name)
		}
		return engine.ToolDecision{Behavior: engine.BehaviorDeny, Message: reason}
	}
}

func (c *Coordinator) resolveTimeout(policy *Policy) time.Duration {
	if policy.ApprovalTimeout > 0 {
		return policy.ApprovalTimeout
	}
	if c.defaults.ApprovalTimeout > 0 {
		return c.defaults.ApprovalTimeout
	}
	return DefaultApprovalTimeout
}

func (c *Coordinator) resolveOnTimeout(policy *Policy) OnTimeout {
	if policy.OnTimeout != "" {
		return policy.OnTimeout
	}
	if c.defaults.OnTimeout != "" {
		return c.defaults.OnTimeout
	}
	return TimeoutDeny
}
