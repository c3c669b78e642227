// ABOUTME: Wire types for agent job requests, responses, and approval round trips.
// ABOUTME: Field names are part of the wire contract and must not change.

package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMissingCorrelationID indicates a request without a correlation id.
var ErrMissingCorrelationID = errors.New("correlationId is required")

// ErrMissingReplyTo indicates a request without a reply destination.
var ErrMissingReplyTo = errors.New("replyTo is required")

// Response type discriminators for AgentJobResponse.
const (
	TypeResult          = "result"
	TypeError           = "error"
	TypeApprovalRequest = "approval_request"
)

// Origin identifies where a request came from. It is carried through to the
// response verbatim and never interpreted by the dispatcher.
type Origin struct {
	Platform  string            `json:"platform,omitempty"`
	UserID    string            `json:"userId,omitempty"`
	ChannelID string            `json:"channelId,omitempty"`
	ThreadID  string            `json:"threadId,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AgentJobRequest is one unit of agent work submitted by a producer.
type AgentJobRequest struct {
	AgentName     string    `json:"agentName"`
	Prompt        string    `json:"prompt"`
	CorrelationID string    `json:"correlationId"`
	SessionID     string    `json:"sessionId,omitempty"`
	ForkSession   bool      `json:"forkSession,omitempty"`
	Origin        Origin    `json:"origin,omitempty"`
	ReplyTo       string    `json:"replyTo"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	Priority      int       `json:"priority,omitempty"`
}

// Validate checks the fields a dispatcher cannot work without.
func (r *AgentJobRequest) Validate() error {
	if r.AgentName == "" {
		return errors.New("agentName is required")
	}
	if r.CorrelationID == "" {
		return ErrMissingCorrelationID
	}
	if r.ReplyTo == "" {
		return ErrMissingReplyTo
	}
	return nil
}

// Envelope holds the fields shared by both response variants. Every response
// echoes the correlation id and origin of its originating request.
type Envelope struct {
	Type          string    `json:"type"`
	CorrelationID string    `json:"correlationId"`
	SessionID     string    `json:"sessionId,omitempty"`
	Origin        Origin    `json:"origin,omitempty"`
	CompletedAt   time.Time `json:"completedAt"`
	DurationMS    int64     `json:"durationMs"`
}

// AgentJobResponse is the terminal outcome of one job attempt. The Type field
// discriminates the result and error variants; exactly one response is
// produced per attempt.
type AgentJobResponse struct {
	Envelope

	// Result variant
	Output           string          `json:"output,omitempty"`
	StructuredOutput json.RawMessage `json:"structuredOutput,omitempty"`

	// Error variant
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// NewResult builds the success variant of an AgentJobResponse.
func NewResult(req *AgentJobRequest, sessionID, output string, structured json.RawMessage, duration time.Duration) *AgentJobResponse {
	return &AgentJobResponse{
		Envelope: Envelope{
			Type:          TypeResult,
			CorrelationID: req.CorrelationID,
			SessionID:     sessionID,
			Origin:        req.Origin,
			CompletedAt:   time.Now().UTC(),
			DurationMS:    duration.Milliseconds(),
		},
		Output:           output,
		StructuredOutput: structured,
	}
}

// NewError builds the error variant of an AgentJobResponse.
func NewError(req *AgentJobRequest, sessionID, errMsg, code string, duration time.Duration) *AgentJobResponse {
	return &AgentJobResponse{
		Envelope: Envelope{
			Type:          TypeError,
			CorrelationID: req.CorrelationID,
			SessionID:     sessionID,
			Origin:        req.Origin,
			CompletedAt:   time.Now().UTC(),
			DurationMS:    duration.Milliseconds(),
		},
		Error: errMsg,
		Code:  code,
	}
}

// IsError reports whether the response is the error variant.
func (r *AgentJobResponse) IsError() bool {
	return r.Type == TypeError
}

// ToolCall is the tool name and input an agent wants to invoke.
type ToolCall struct {
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ApprovalRequest asks a human-facing integration to approve or deny one tool
// invocation. It is published on the job's reply channel and answered on the
// ephemeral queue named by ApprovalQueueName.
type ApprovalRequest struct {
	Type              string    `json:"type"`
	ApprovalID        string    `json:"approvalId"`
	CorrelationID     string    `json:"correlationId"`
	Tool              ToolCall  `json:"tool"`
	ExpiresAt         time.Time `json:"expiresAt"`
	ApprovalQueueName string    `json:"approvalQueueName"`
}

// Decision values accepted in an ApprovalDecision.
const (
	DecisionApprove = "approve"
	DecisionDeny    = "deny"
	DecisionAbort   = "abort"
)

// ApprovalDecision is the human answer to one ApprovalRequest. UpdatedInput
// is honored only on approve.
type ApprovalDecision struct {
	ApprovalID   string          `json:"approvalId"`
	Decision     string          `json:"decision"`
	Reason       string          `json:"reason,omitempty"`
	UpdatedInput json.RawMessage `json:"updatedInput,omitempty"`
	DecidedBy    string          `json:"decidedBy,omitempty"`
}

// RequestQueue returns the durable request queue name for an agent. The
// naming convention is part of the wire contract shared with producers.
func RequestQueue(agentName string) string {
	return fmt.Sprintf("claude.agents.%s.requests", agentName)
}

// ApprovalQueue returns the ephemeral approval queue name for one tool
// approval round trip. The suffix keeps the name unique when a single job
// requests more than one approval; responders address the queue via the
// ApprovalQueueName field, never by reconstructing the name.
func ApprovalQueue(correlationID, suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("claude.approvals.%s", correlationID)
	}
	return fmt.Sprintf("claude.approvals.%s.%s", correlationID, suffix)
}
