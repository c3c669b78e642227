// ABOUTME: Tests for wire type field names, the response union, and queue naming.
// ABOUTME: The JSON shapes here are consumed by external producers and approvers.

package message

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentJobRequest_WireFieldNames(t *testing.T) {
	req := AgentJobRequest{
		AgentName:     "deploy-bot",
		Prompt:        "ship it",
		CorrelationID: "c1",
		SessionID:     "s1",
		ForkSession:   true,
		Origin:        Origin{Platform: "slack", UserID: "U1"},
		ReplyTo:       "queue://out",
		CreatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Priority:      5,
	}

	data, err := json.Marshal(&req)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	for _, key := range []string{
		"agentName", "prompt", "correlationId", "sessionId",
		"forkSession", "origin", "replyTo", "createdAt", "priority",
	} {
		assert.Contains(t, fields, key)
	}
}

func TestAgentJobRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     AgentJobRequest
		wantErr bool
	}{
		{
			name:    "valid",
			req:     AgentJobRequest{AgentName: "a", CorrelationID: "c", ReplyTo: "queue://out"},
			wantErr: false,
		},
		{
			name:    "missing agent name",
			req:     AgentJobRequest{CorrelationID: "c", ReplyTo: "queue://out"},
			wantErr: true,
		},
		{
			name:    "missing correlation id",
			req:     AgentJobRequest{AgentName: "a", ReplyTo: "queue://out"},
			wantErr: true,
		},
		{
			name:    "missing reply to",
			req:     AgentJobRequest{AgentName: "a", CorrelationID: "c"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewResult_EchoesCorrelationAndOrigin(t *testing.T) {
	req := &AgentJobRequest{
		AgentName:     "echo-agent",
		CorrelationID: "c42",
		Origin:        Origin{Platform: "web", ThreadID: "t9"},
		ReplyTo:       "queue://out",
	}

	resp := NewResult(req, "sess-1", "done", nil, 1500*time.Millisecond)

	assert.Equal(t, TypeResult, resp.Type)
	assert.Equal(t, "c42", resp.CorrelationID)
	assert.Equal(t, req.Origin, resp.Origin)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, int64(1500), resp.DurationMS)
	assert.False(t, resp.IsError())
	assert.False(t, resp.CompletedAt.IsZero())
}

func TestNewError_SetsErrorVariant(t *testing.T) {
	req := &AgentJobRequest{AgentName: "a", CorrelationID: "c1", ReplyTo: "queue://out"}

	resp := NewError(req, "", "agent exploded", "execution_failed", 10*time.Millisecond)

	assert.Equal(t, TypeError, resp.Type)
	assert.True(t, resp.IsError())
	assert.Equal(t, "agent exploded", resp.Error)
	assert.Equal(t, "execution_failed", resp.Code)
	assert.Equal(t, "c1", resp.CorrelationID)
}

func TestAgentJobResponse_WireShape(t *testing.T) {
	req := &AgentJobRequest{AgentName: "a", CorrelationID: "c1", ReplyTo: "queue://out"}
	resp := NewResult(req, "s", "hello", json.RawMessage(`{"k":1}`), time.Second)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.Equal(t, "result", fields["type"])
	assert.Contains(t, fields, "correlationId")
	assert.Contains(t, fields, "completedAt")
	assert.Contains(t, fields, "durationMs")
	assert.Contains(t, fields, "structuredOutput")
}

func TestApprovalRequest_WireShape(t *testing.T) {
	ar := ApprovalRequest{
		Type:              TypeApprovalRequest,
		ApprovalID:        "ap1",
		CorrelationID:     "c1",
		Tool:              ToolCall{Name: "Bash", Input: json.RawMessage(`{"command":"ls"}`)},
		ExpiresAt:         time.Now().Add(time.Minute),
		ApprovalQueueName: "claude.approvals.c1.x",
	}

	data, err := json.Marshal(&ar)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.Equal(t, "approval_request", fields["type"])
	assert.Contains(t, fields, "approvalId")
	assert.Contains(t, fields, "approvalQueueName")
	assert.Contains(t, fields, "expiresAt")

	tool, ok := fields["tool"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Bash", tool["name"])
}

func TestRequestQueue_NamingConvention(t *testing.T) {
	assert.Equal(t, "claude.agents.echo-agent.requests", RequestQueue("echo-agent"))
}

func TestApprovalQueue_NamingConvention(t *testing.T) {
	assert.Equal(t, "claude.approvals.c1", ApprovalQueue("c1", ""))
	assert.Equal(t, "claude.approvals.c1.ab12", ApprovalQueue("c1", "ab12"))
}
