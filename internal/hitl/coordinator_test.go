// ABOUTME: Tests for approval decision order, timeout policies, and the queue round trip.
// ABOUTME: Decisions are injected onto the ephemeral queue named in the published request.

package hitl

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porterhq/agentq/internal/engine"
	"github.com/porterhq/agentq/internal/message"
	"github.com/porterhq/agentq/internal/queue"
)

// captureChannel records published payloads for inspection.
type captureChannel struct {
	mu   sync.Mutex
	sent [][]byte
}

func (c *captureChannel) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, append([]byte(nil), payload...))
	return nil
}

func (c *captureChannel) lastApprovalRequest(t *testing.T) *message.ApprovalRequest {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent, "no approval request was published")
	var ar message.ApprovalRequest
	require.NoError(t, json.Unmarshal(c.sent[len(c.sent)-1], &ar))
	return &ar
}

func newTestCoordinator(t *testing.T, defaults Defaults) (*Coordinator, *queue.SQLiteEngine) {
	t.Helper()
	e, err := queue.NewSQLiteEngine(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	c := New(e, defaults, nil)
	// fast polling for tests
	c.pollInitial = 5 * time.Millisecond
	c.pollMax = 20 * time.Millisecond
	return c, e
}

func testRequest() *message.AgentJobRequest {
	return &message.AgentJobRequest{
		AgentName:     "deploy-bot",
		Prompt:        "deploy",
		CorrelationID: "c1",
		ReplyTo:       "queue://out",
	}
}

func TestHandler_NilPolicyInstallsNoGate(t *testing.T) {
	c, _ := newTestCoordinator(t, Defaults{})
	assert.Nil(t, c.Handler(nil, testRequest(), &captureChannel{}))
}

func TestDecide_AutoApproveWinsOverRequireApproval(t *testing.T) {
	c, _ := newTestCoordinator(t, Defaults{})
	policy := &Policy{
		AutoApprove:     []string{"Bash:*"},
		RequireApproval: []string{"Bash:*"},
	}
	handler := c.Handler(policy, testRequest(), &captureChannel{})

	decision, err := handler(context.Background(), engine.ToolCall{Name: "Bash:rm -rf"})
	require.NoError(t, err)
	assert.Equal(t, engine.BehaviorAllow, decision.Behavior)
	assert.Nil(t, decision.UpdatedInput)
}

func TestDecide_UnmatchedToolAllowedByDefault(t *testing.T) {
	c, _ := newTestCoordinator(t, Defaults{})
	policy := &Policy{RequireApproval: []string{"Bash:*deploy*"}}
	handler := c.Handler(policy, testRequest(), &captureChannel{})

	decision, err := handler(context.Background(), engine.ToolCall{Name: "Read"})
	require.NoError(t, err)
	assert.Equal(t, engine.BehaviorAllow, decision.Behavior)
}

func TestDecide_TimeoutDeny(t *testing.T) {
	c, _ := newTestCoordinator(t, Defaults{})
	policy := &Policy{
		RequireApproval: []string{"Bash:*deploy*"},
		ApprovalTimeout: 50 * time.Millisecond,
		OnTimeout:       TimeoutDeny,
	}
	handler := c.Handler(policy, testRequest(), &captureChannel{})

	start := time.Now()
	decision, err := handler(context.Background(), engine.ToolCall{Name: "Bash:deploy prod"})
	require.NoError(t, err)
	assert.Equal(t, engine.BehaviorDeny, decision.Behavior)
	assert.Contains(t, decision.Message, "timed out")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDecide_TimeoutAbort(t *testing.T) {
	c, _ := newTestCoordinator(t, Defaults{})
	policy := &Policy{
		RequireApproval: []string{"*"},
		ApprovalTimeout: 50 * time.Millisecond,
		OnTimeout:       TimeoutAbort,
	}
	handler := c.Handler(policy, testRequest(), &captureChannel{})

	decision, err := handler(context.Background(), engine.ToolCall{Name: "Bash"})
	require.NoError(t, err)
	assert.Equal(t, engine.BehaviorAbort, decision.Behavior)
}

func TestDecide_TimeoutDefaultsToDeny(t *testing.T) {
	c, _ := newTestCoordinator(t, Defaults{})
	policy := &Policy{
		RequireApproval: []string{"*"},
		ApprovalTimeout: 50 * time.Millisecond,
		// OnTimeout deliberately unset
	}
	handler := c.Handler(policy, testRequest(), &captureChannel{})

	decision, err := handler(context.Background(), engine.ToolCall{Name: "Bash"})
	require.NoError(t, err)
	assert.Equal(t, engine.BehaviorDeny, decision.Behavior)
}

func TestDecide_ModuleDefaultOnTimeoutApplies(t *testing.T) {
	c, _ := newTestCoordinator(t, Defaults{OnTimeout: TimeoutAbort})
	policy := &Policy{
		RequireApproval: []string{"*"},
		ApprovalTimeout: 50 * time.Millisecond,
	}
	handler := c.Handler(policy, testRequest(), &captureChannel{})

	decision, err := handler(context.Background(), engine.ToolCall{Name: "Bash"})
	require.NoError(t, err)
	assert.Equal(t, engine.BehaviorAbort, decision.Behavior)
}

// respond waits for the approval request to land on the channel, then drops a
// decision onto the ephemeral queue it names.
func respond(t *testing.T, ch *captureChannel, q queue.Engine, build func(ar *message.ApprovalRequest) message.ApprovalDecision) {
	t.Helper()
	go func() {
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			ch.mu.Lock()
			n := len(ch.sent)
			ch.mu.Unlock()
			if n > 0 {
				ch.mu.Lock()
				raw := ch.sent[len(ch.sent)-1]
				ch.mu.Unlock()
				var ar message.ApprovalRequest
				if err := json.Unmarshal(raw, &ar); err != nil {
					t.Errorf("unmarshaling approval request: %v", err)
					return
				}
				decision := build(&ar)
				payload, _ := json.Marshal(&decision)
				if _, err := q.Send(context.Background(), ar.ApprovalQueueName, payload, nil); err != nil {
					t.Errorf("sending decision: %v", err)
				}
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
}

func TestDecide_ApproveSubstitutesUpdatedInput(t *testing.T) {
	c, q := newTestCoordinator(t, Defaults{})
	ch := &captureChannel{}
	policy := &Policy{RequireApproval: []string{"Bash:*"}, ApprovalTimeout: 3 * time.Second}

	respond(t, ch, q, func(ar *message.ApprovalRequest) message.ApprovalDecision {
		return message.ApprovalDecision{
			ApprovalID:   ar.ApprovalID,
			Decision:     message.DecisionApprove,
			UpdatedInput: json.RawMessage(`{"command":"ls -la"}`),
			DecidedBy:    "reviewer@example.com",
		}
	})

	handler := c.Handler(policy, testRequest(), ch)
	decision, err := handler(context.Background(), engine.ToolCall{
		Name:  "Bash:ls",
		Input: json.RawMessage(`{"command":"ls"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, engine.BehaviorAllow, decision.Behavior)
	assert.JSONEq(t, `{"command":"ls -la"}`, string(decision.UpdatedInput))
}

func TestDecide_ApproveWithoutUpdatedInputKeepsOriginal(t *testing.T) {
	c, q := newTestCoordinator(t, Defaults{})
	ch := &captureChannel{}
	policy := &Policy{RequireApproval: []string{"*"}, ApprovalTimeout: 3 * time.Second}

	respond(t, ch, q, func(ar *message.ApprovalRequest) message.ApprovalDecision {
		return message.ApprovalDecision{ApprovalID: ar.ApprovalID, Decision: message.DecisionApprove}
	})

	handler := c.Handler(policy, testRequest(), ch)
	decision, err := handler(context.Background(), engine.ToolCall{Name: "Bash"})
	require.NoError(t, err)
	assert.Equal(t, engine.BehaviorAllow, decision.Behavior)
	assert.Nil(t, decision.UpdatedInput, "nil UpdatedInput means keep the original")
}

func TestDecide_DenyCarriesReason(t *testing.T) {
	c, q := newTestCoordinator(t, Defaults{})
	ch := &captureChannel{}
	policy := &Policy{RequireApproval: []string{"*"}, ApprovalTimeout: 3 * time.Second}

	respond(t, ch, q, func(ar *message.ApprovalRequest) message.ApprovalDecision {
		return message.ApprovalDecision{
			ApprovalID: ar.ApprovalID,
			Decision:   message.DecisionDeny,
			Reason:     "not during business hours",
		}
	})

	handler := c.Handler(policy, testRequest(), ch)
	decision, err := handler(context.Background(), engine.ToolCall{Name: "Bash"})
	require.NoError(t, err)
	assert.Equal(t, engine.BehaviorDeny, decision.Behavior)
	assert.Equal(t, "not during business hours", decision.Message)
}

func TestDecide_AbortTerminatesExecution(t *testing.T) {
	c, q := newTestCoordinator(t, Defaults{})
	ch := &captureChannel{}
	policy := &Policy{RequireApproval: []string{"*"}, ApprovalTimeout: 3 * time.Second}

	respond(t, ch, q, func(ar *message.ApprovalRequest) message.ApprovalDecision {
		return message.ApprovalDecision{ApprovalID: ar.ApprovalID, Decision: message.DecisionAbort}
	})

	handler := c.Handler(policy, testRequest(), ch)
	decision, err := handler(context.Background(), engine.ToolCall{Name: "Bash"})
	require.NoError(t, err)
	assert.Equal(t, engine.BehaviorAbort, decision.Behavior)
	assert.NotEmpty(t, decision.Message)
}

func TestRequestApproval_PublishedRequestShape(t *testing.T) {
	c, q := newTestCoordinator(t, Defaults{})
	ch := &captureChannel{}
	policy := &Policy{RequireApproval: []string{"*"}, ApprovalTimeout: 100 * time.Millisecond}

	handler := c.Handler(policy, testRequest(), ch)
	_, err := handler(context.Background(), engine.ToolCall{
		Name:  "Bash:deploy",
		Input: json.RawMessage(`{"command":"deploy"}`),
	})
	require.NoError(t, err)

	ar := ch.lastApprovalRequest(t)
	assert.Equal(t, "approval_request", ar.Type)
	assert.NotEmpty(t, ar.ApprovalID)
	assert.Equal(t, "c1", ar.CorrelationID)
	assert.Equal(t, "Bash:deploy", ar.Tool.Name)
	assert.Contains(t, ar.ApprovalQueueName, "claude.approvals.c1.")
	assert.False(t, ar.ExpiresAt.IsZero())

	// each round trip gets a fresh queue name
	_, err = handler(context.Background(), engine.ToolCall{Name: "Bash:deploy"})
	require.NoError(t, err)
	second := ch.lastApprovalRequest(t)
	assert.NotEqual(t, ar.ApprovalQueueName, second.ApprovalQueueName)

	_ = q // engine lifetime held by test
}

func TestDecide_PublishFailureSurfacesError(t *testing.T) {
	c, _ := newTestCoordinator(t, Defaults{})
	policy := &Policy{RequireApproval: []string{"*"}, ApprovalTimeout: time.Second}

	handler := c.Handler(policy, testRequest(), failingChannel{})
	_, err := handler(context.Background(), engine.ToolCall{Name: "Bash"})
	assert.Error(t, err)
}

type failingChannel struct{}

func (failingChannel) Send(ctx context.Context, payload []byte) error {
	return assert.AnError
}
