// ABOUTME: Markdown-based agent plugin discovery
// ABOUTME: Loads agent definitions from .md files with YAML or TOML frontmatter

package plugins

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/porterhq/agentq/internal/config"
)

var (
	yamlDelim = []byte("---")
	tomlDelim = []byte("+++")
)

// Definition is one agent loaded from a markdown plugin file.
type Definition struct {
	// Name is the agent's queue name, from the frontmatter "name" key or
	// the file's base name.
	Name string
	// DisplayName is the first H1 heading of the markdown body, if any.
	DisplayName string
	// Config holds the agent settings assembled from frontmatter and body.
	Config config.AgentConfig
}

// frontmatter mirrors the keys a plugin file may set. The markdown body
// becomes the system prompt unless the frontmatter sets one explicitly.
type frontmatter struct {
	Name            string   `yaml:"name" toml:"name"`
	Model           string   `yaml:"model" toml:"model"`
	SystemPrompt    string   `yaml:"system_prompt" toml:"system_prompt"`
	MaxTurns        int      `yaml:"max_turns" toml:"max_turns"`
	AllowedTools    []string `yaml:"allowed_tools" toml:"allowed_tools"`
	AutoApprove     []string `yaml:"auto_approve" toml:"auto_approve"`
	RequireApproval []string `yaml:"require_approval" toml:"require_approval"`
	OnTimeout       string   `yaml:"on_timeout" toml:"on_timeout"`
	ApprovalTimeout string   `yaml:"approval_timeout" toml:"approval_timeout"`
}

// Discover walks dir for .md files and loads each as an agent definition.
// Files that fail to parse are skipped with a warning; a missing directory
// is not an error and yields no definitions.
func Discover(dir string, logger *slog.Logger) ([]Definition, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var defs []Definition
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		def, err := LoadFile(path)
		if err != nil {
			logger.Warn("skipping agent plugin", "path", path, "error", err)
			return nil
		}

		defs = append(defs, *def)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning plugin dir %s: %w", dir, err)
	}

	return defs, nil
}

// LoadFile parses a single markdown plugin file into a Definition.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plugin file: %w", err)
	}

	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	name := fm.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".md")
	}

	cfg := config.AgentConfig{
		Model:        fm.Model,
		SystemPrompt: fm.SystemPrompt,
		MaxTurns:     fm.MaxTurns,
		AllowedTools: fm.AllowedTools,
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = strings.TrimSpace(string(body))
	}

	if len(fm.AutoApprove) > 0 || len(fm.RequireApproval) > 0 || fm.OnTimeout != "" {
		hitl := &config.HITLConfig{
			AutoApprove:        fm.AutoApprove,
			RequireApproval:    fm.RequireApproval,
			OnTimeout:          fm.OnTimeout,
			ApprovalTimeoutRaw: fm.ApprovalTimeout,
		}
		if fm.ApprovalTimeout != "" {
			d, err := time.ParseDuration(fm.ApprovalTimeout)
			if err != nil {
				return nil, fmt.Errorf("parsing approval_timeout %q: %w", fm.ApprovalTimeout, err)
			}
			hitl.ApprovalTimeout = d
		}
		cfg.HITL = hitl
	}

	return &Definition{
		Name:        name,
		DisplayName: firstHeading(body),
		Config:      cfg,
	}, nil
}

// splitFrontmatter separates the frontmatter block from the markdown body.
// YAML frontmatter is delimited by --- lines, TOML by +++ lines. A file
// without frontmatter is all body.
func splitFrontmatter(data []byte) (*frontmatter, []byte, error) {
	var fm frontmatter

	delim, unmarshal := detectDelim(data)
	if delim == nil {
		return &fm, data, nil
	}

	rest := data[len(delim):]
	// The block runs to the next delimiter on its own line.
	end := bytes.Index(rest, append([]byte("\n"), delim...))
	if end < 0 {
		return nil, nil, fmt.Errorf("unterminated frontmatter block")
	}

	block := rest[:end]
	body := rest[end+1+len(delim):]
	body = bytes.TrimLeft(body, "\r\n")

	if err := unmarshal(block, &fm); err != nil {
		return nil, nil, fmt.Errorf("parsing frontmatter: %w", err)
	}

	return &fm, body, nil
}

func detectDelim(data []byte) ([]byte, func([]byte, any) error) {
	trimmed := bytes.TrimLeft(data, "\r\n")
	switch {
	case bytes.HasPrefix(trimmed, yamlDelim):
		return yamlDelim, yaml.Unmarshal
	case bytes.HasPrefix(trimmed, tomlDelim):
		return tomlDelim, toml.Unmarshal
	default:
		return nil, nil
	}
}

// firstHeading returns the text of the first level-1 heading in the
// markdown body, or "" when there is none.
func firstHeading(body []byte) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(body))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			return ast.WalkContinue, nil
		}

		var sb strings.Builder
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				sb.Write(t.Segment.Value(body))
			}
		}
		title = strings.TrimSpace(sb.String())
		return ast.WalkStop, nil
	})

	return title
}

// Merge applies the discovered definitions onto cfg's agent map. Agents
// already present in the config win over plugin files of the same name.
func Merge(cfg *config.Config, defs []Definition, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Agents == nil {
		cfg.Agents = make(map[string]config.AgentConfig)
	}

	for _, def := range defs {
		if _, exists := cfg.Agents[def.Name]; exists {
			logger.Debug("config agent shadows plugin", "agent", def.Name)
			continue
		}
		cfg.Agents[def.Name] = def.Config
		logger.Info("loaded agent plugin", "agent", def.Name, "display_name", def.DisplayName)
	}
}
