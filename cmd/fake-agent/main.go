// ABOUTME: Minimal fake agent for local testing; speaks the JSON-lines agent protocol on stdio.
// ABOUTME: Usage: fake-agent [-tool NAME] [-fail MSG] [-delay DUR]

package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// line covers every message shape in both directions; unused fields stay
// empty and are omitted on the wire.
type line struct {
	Type             string          `json:"type"`
	Prompt           string          `json:"prompt,omitempty"`
	SystemPrompt     string          `json:"systemPrompt,omitempty"`
	Resume           string          `json:"resume,omitempty"`
	Fork             bool            `json:"fork,omitempty"`
	SessionID        string          `json:"sessionId,omitempty"`
	Text             string          `json:"text,omitempty"`
	ID               string          `json:"id,omitempty"`
	Tool             *toolCall       `json:"tool,omitempty"`
	Behavior         string          `json:"behavior,omitempty"`
	Message          string          `json:"message,omitempty"`
	Output           string          `json:"output,omitempty"`
	StructuredOutput json.RawMessage `json:"structuredOutput,omitempty"`
	IsError          bool            `json:"isError,omitempty"`
	Error            string          `json:"error,omitempty"`
}

type toolCall struct {
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

func main() {
	toolName := flag.String("tool", "", "request approval for this tool before answering")
	failMsg := flag.String("fail", "", "report an error result with this message")
	delay := flag.Duration("delay", 0, "sleep before answering")
	flag.Parse()

	if err := run(*toolName, *failMsg, *delay); err != nil {
		log.Fatal(err)
	}
}

func run(toolName, failMsg string, delay time.Duration) error {
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	out := os.Stdout

	if !in.Scan() {
		return fmt.Errorf("no run line on stdin")
	}
	var runReq line
	if err := json.Unmarshal(in.Bytes(), &runReq); err != nil {
		return fmt.Errorf("parsing run line: %w", err)
	}
	if runReq.Type != "run" {
		return fmt.Errorf("expected run line, got %q", runReq.Type)
	}

	// Resume keeps the session; fork and fresh runs mint a new one.
	sessionID := runReq.Resume
	if sessionID == "" || runReq.Fork {
		sessionID = uuid.NewString()
	}

	if err := send(out, line{Type: "init", SessionID: sessionID}); err != nil {
		return err
	}

	if delay > 0 {
		time.Sleep(delay)
	}

	toolNote := ""
	if toolName != "" {
		id := uuid.NewString()
		req := line{
			Type: "tool_request",
			ID:   id,
			Tool: &toolCall{Name: toolName, Input: json.RawMessage(`{"source":"fake-agent"}`)},
		}
		if err := send(out, req); err != nil {
			return err
		}

		if !in.Scan() {
			return fmt.Errorf("no tool_response on stdin")
		}
		var resp line
		if err := json.Unmarshal(in.Bytes(), &resp); err != nil {
			return fmt.Errorf("parsing tool_response: %w", err)
		}
		if resp.Type != "tool_response" || resp.ID != id {
			return fmt.Errorf("unexpected reply to tool_request: %s", in.Text())
		}

		switch resp.Behavior {
		case "allow":
			toolNote = fmt.Sprintf(" [%s allowed]", toolName)
		case "deny":
			toolNote = fmt.Sprintf(" [%s denied: %s]", toolName, resp.Message)
		case "abort":
			return send(out, line{
				Type:      "result",
				SessionID: sessionID,
				IsError:   true,
				Error:     "execution aborted: " + resp.Message,
			})
		default:
			return fmt.Errorf("unknown behavior %q", resp.Behavior)
		}
	}

	if failMsg != "" {
		return send(out, line{Type: "result", SessionID: sessionID, IsError: true, Error: failMsg})
	}

	if err := send(out, line{Type: "message", Text: "thinking..."}); err != nil {
		return err
	}

	return send(out, line{
		Type:      "result",
		SessionID: sessionID,
		Output:    "echo: " + strings.TrimSpace(runReq.Prompt) + toolNote,
	})
}

func send(w *os.File, l line) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
