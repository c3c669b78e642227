// ABOUTME: CommandEngine runs an external agent process per execution.
// ABOUTME: Speaks a line-delimited JSON protocol on the child's stdin/stdout.

package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
)

// CommandEngine executes agents by spawning a configured command per job and
// exchanging newline-delimited JSON with it. One process per execution; the
// process exits after emitting its terminal event.
//
// Child -> engine lines: init, message, tool_request, result.
// Engine -> child lines: run (first), tool_response (per tool_request).
type CommandEngine struct {
	command string
	args    []string
	dir     string
	env     []string
	logger  *slog.Logger
}

// NewCommandEngine creates an engine that runs the given command with args.
func NewCommandEngine(command string, args []string) *CommandEngine {
	return &CommandEngine{
		command: command,
		args:    args,
		logger:  slog.Default().With("component", "engine"),
	}
}

// SetDir sets the working directory for spawned agent processes.
func (e *CommandEngine) SetDir(dir string) { e.dir = dir }

// SetEnv sets extra environment variables for spawned agent processes.
func (e *CommandEngine) SetEnv(env []string) { e.env = env }

// runLine is the first line written to the child process.
type runLine struct {
	Type         string   `json:"type"`
	Prompt       string   `json:"prompt"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
	Model        string   `json:"model,omitempty"`
	MaxTurns     int      `json:"maxTurns,omitempty"`
	AllowedTools []string `json:"allowedTools,omitempty"`
	Resume       string   `json:"resume,omitempty"`
	Fork         bool     `json:"fork,omitempty"`
}

// protoLine is one line read from the child process.
type protoLine struct {
	Type             string          `json:"type"`
	SessionID        string          `json:"sessionId,omitempty"`
	Text             string          `json:"text,omitempty"`
	ID               string          `json:"id,omitempty"`
	Tool             *ToolCall       `json:"tool,omitempty"`
	Output           string          `json:"output,omitempty"`
	StructuredOutput json.RawMessage `json:"structuredOutput,omitempty"`
	IsError          bool            `json:"isError,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// toolResponseLine answers a tool_request.
type toolResponseLine struct {
	Type         string          `json:"type"`
	ID           string          `json:"id"`
	Behavior     Behavior        `json:"behavior"`
	UpdatedInput json.RawMessage `json:"updatedInput,omitempty"`
	Message      string          `json:"message,omitempty"`
}

// Execute spawns the agent process and streams its events. The process is
// killed if the context is cancelled before the terminal event.
func (e *CommandEngine) Execute(ctx context.Context, opts Options) (<-chan Event, error) {
	cmd := exec.CommandContext(ctx, e.command, e.args...)
	cmd.Dir = e.dir
	if len(e.env) > 0 {
		cmd.Env = append(cmd.Environ(), e.env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening agent stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening agent stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting agent process %q: %w", e.command, err)
	}

	run := runLine{
		Type:         "run",
		Prompt:       opts.Prompt,
		SystemPrompt: opts.SystemPrompt,
		Model:        opts.Model,
		MaxTurns:     opts.MaxTurns,
		AllowedTools: opts.AllowedTools,
		Resume:       opts.Resume,
		Fork:         opts.Fork,
	}
	if err := writeLine(stdin, run); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, fmt.Errorf("sending run request: %w", err)
	}

	events := make(chan Event, 16)
	go e.pump(ctx, cmd, stdin, stdout, opts, events)
	return events, nil
}

// pump reads child lines, answers tool requests, and forwards events until
// the terminal line or process exit.
func (e *CommandEngine) pump(ctx context.Context, cmd *exec.Cmd, stdin io.WriteCloser, stdout io.Reader, opts Options, events chan<- Event) {
	defer close(events)
	defer cmd.Wait()
	defer stdin.Close()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		var line protoLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			e.logger.Warn("skipping malformed agent line", "error", err)
			continue
		}

		switch line.Type {
		case "init":
			events <- Event{Type: EventInit, SessionID: line.SessionID}

		case "message":
			events <- Event{Type: EventMessage, Text: line.Text}

		case "tool_request":
			if line.Tool == nil {
				e.logger.Warn("tool_request without tool", "id", line.ID)
				continue
			}
			decision := Allow()
			if opts.OnToolUse != nil {
				var err error
				decision, err = opts.OnToolUse(ctx, *line.Tool)
				if err != nil {
					e.logger.Error("approval callback failed, denying tool",
						"tool", line.Tool.Name, "error", err)
					decision = ToolDecision{Behavior: BehaviorDeny, Message: err.Error()}
				}
			}
			resp := toolResponseLine{
				Type:         "tool_response",
				ID:           line.ID,
				Behavior:     decision.Behavior,
				UpdatedInput: decision.UpdatedInput,
				Message:      decision.Message,
			}
			if err := writeLine(stdin, resp); err != nil {
				events <- Event{Type: EventError, Error: fmt.Sprintf("answering tool request: %v", err)}
				return
			}

		case "result":
			if line.IsError {
				msg := line.Error
				if msg == "" {
					msg = "agent reported an error result"
				}
				events <- Event{Type: EventError, SessionID: line.SessionID, Error: msg}
			} else {
				events <- Event{
					Type:       EventResult,
					SessionID:  line.SessionID,
					Text:       line.Output,
					Structured: line.StructuredOutput,
				}
			}
			return

		default:
			e.logger.Debug("ignoring unknown agent line", "type", line.Type)
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		events <- Event{Type: EventError, Error: fmt.Sprintf("reading agent output: %v", err)}
		return
	}
	if ctx.Err() != nil {
		events <- Event{Type: EventError, Error: "agent execution cancelled"}
		return
	}
	events <- Event{Type: EventError, Error: "agent process exited without a result"}
}

func writeLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
