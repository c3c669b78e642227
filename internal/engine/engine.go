// ABOUTME: Contract for the agent execution engine: options, event stream, approval callback.
// ABOUTME: The dispatcher depends only on these types, never on a concrete engine.

package engine

import (
	"context"
	"encoding/json"
)

// Behavior is the outcome of an approval callback for one tool invocation.
type Behavior string

const (
	// BehaviorAllow lets the tool call proceed, optionally with updated input.
	BehaviorAllow Behavior = "allow"
	// BehaviorDeny blocks this tool call; the agent continues without it.
	BehaviorDeny Behavior = "deny"
	// BehaviorAbort terminates the whole agent execution.
	BehaviorAbort Behavior = "abort"
)

// ToolCall describes a tool invocation the agent wants to perform.
type ToolCall struct {
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolDecision is the answer an ApprovalFunc gives for one ToolCall.
type ToolDecision struct {
	Behavior Behavior `json:"behavior"`
	// UpdatedInput replaces the tool input on allow. Nil keeps the original.
	UpdatedInput json.RawMessage `json:"updatedInput,omitempty"`
	// Message is the deny or abort reason shown to the agent.
	Message string `json:"message,omitempty"`
}

// Allow is the pass-through decision with the original input.
func Allow() ToolDecision {
	return ToolDecision{Behavior: BehaviorAllow}
}

// ApprovalFunc is consulted synchronously before each tool invocation. The
// engine blocks the tool call until it returns. A nil ApprovalFunc in
// Options means no gate is installed.
type ApprovalFunc func(ctx context.Context, call ToolCall) (ToolDecision, error)

// Options configures one agent execution.
type Options struct {
	Prompt       string
	SystemPrompt string
	Model        string
	MaxTurns     int
	AllowedTools []string

	// Resume continues the session with this id; empty starts fresh.
	Resume string
	// Fork branches off the resumed session instead of continuing it.
	Fork bool

	// OnToolUse gates tool invocations. Nil means every tool is allowed.
	OnToolUse ApprovalFunc
}

// EventType discriminates engine stream events.
type EventType string

const (
	// EventInit is emitted once execution starts and carries the session id.
	EventInit EventType = "init"
	// EventMessage is streamed agent output.
	EventMessage EventType = "message"
	// EventResult is the terminal success event.
	EventResult EventType = "result"
	// EventError is the terminal failure event.
	EventError EventType = "error"
)

// Event is one entry in the execution stream. The stream ends after the
// first EventResult or EventError; the channel is closed afterwards.
type Event struct {
	Type      EventType
	SessionID string
	Text      string

	// Structured carries machine-readable output on EventResult.
	Structured json.RawMessage

	// Error is set on EventError.
	Error string
}

// Engine produces a stream of events for one agent execution. Execute
// returns an error only when the execution could not be started at all;
// failures during execution arrive as an EventError on the stream.
type Engine interface {
	Execute(ctx context.Context, opts Options) (<-chan Event, error)
}
