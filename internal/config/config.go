// ABOUTME: Configuration loading and parsing for agentq
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete agentq configuration
type Config struct {
	Server      ServerConfig           `yaml:"server"`
	Queue       QueueConfig            `yaml:"queue"`
	Engine      EngineConfig           `yaml:"engine"`
	Agents      map[string]AgentConfig `yaml:"agents"`
	DefaultHITL *HITLConfig            `yaml:"default_hitl"`
	Channels    ChannelsConfig         `yaml:"channels"`
	Plugins     PluginsConfig          `yaml:"plugins"`
	Logging     LoggingConfig          `yaml:"logging"`
	Metrics     MetricsConfig          `yaml:"metrics"`
}

// ServerConfig holds the HTTP API configuration
type ServerConfig struct {
	HTTPAddr string     `yaml:"http_addr"`
	Auth     AuthConfig `yaml:"auth"`
}

// AuthConfig holds API authentication configuration. JWT bearer tokens and
// basic auth can be enabled independently; a request passing either is let
// through.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	// BasicUser/BasicPasswordHash enable basic auth. The hash is bcrypt,
	// generated with `agentq hashpw`.
	BasicUser         string `yaml:"basic_user"`
	BasicPasswordHash string `yaml:"basic_password_hash"`
}

// QueueConfig selects and configures the job queue engine
type QueueConfig struct {
	// Driver is "sqlite" (default) or "redis"
	Driver string `yaml:"driver"`
	// Path is the SQLite database file (sqlite driver)
	Path string `yaml:"path"`
	// Redis connection settings (redis driver)
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	PollInterval    time.Duration `yaml:"-"`
	PollIntervalRaw string        `yaml:"poll_interval"`
}

// EngineConfig configures the agent execution engine subprocess
type EngineConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Dir     string   `yaml:"dir"`
	Env     []string `yaml:"env"`
}

// AgentConfig holds one agent's execution settings and optional HITL policy
type AgentConfig struct {
	Model        string      `yaml:"model"`
	SystemPrompt string      `yaml:"system_prompt"`
	MaxTurns     int         `yaml:"max_turns"`
	AllowedTools []string    `yaml:"allowed_tools"`
	HITL         *HITLConfig `yaml:"hitl"`
}

// HITLConfig holds a human-in-the-loop approval policy
type HITLConfig struct {
	AutoApprove     []string `yaml:"auto_approve"`
	RequireApproval []string `yaml:"require_approval"`
	// OnTimeout is "deny" (default) or "abort"
	OnTimeout string `yaml:"on_timeout"`

	ApprovalTimeout    time.Duration `yaml:"-"`
	ApprovalTimeoutRaw string        `yaml:"approval_timeout"`
}

// ChannelsConfig holds reply channel settings
type ChannelsConfig struct {
	Webhook WebhookChannelConfig `yaml:"webhook"`
	Discord DiscordChannelConfig `yaml:"discord"`
}

// WebhookChannelConfig tunes the webhook:// reply channel
type WebhookChannelConfig struct {
	Headers map[string]string `yaml:"headers"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// DiscordChannelConfig enables the discord:// reply channel
type DiscordChannelConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// PluginsConfig points at the markdown agent plugin directory
type PluginsConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Queue.Driver {
	case "", "sqlite":
		if c.Queue.Path == "" {
			return fmt.Errorf("queue.path is required for the sqlite driver")
		}
	case "redis":
		if c.Queue.RedisAddr == "" {
			return fmt.Errorf("queue.redis_addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("queue.driver must be sqlite or redis, got %q", c.Queue.Driver)
	}

	if c.Engine.Command == "" {
		return fmt.Errorf("engine.command is required")
	}

	if len(c.Agents) == 0 && c.Plugins.Dir == "" {
		return fmt.Errorf("at least one agent (or plugins.dir) is required")
	}

	for name, agent := range c.Agents {
		if err := validateHITL(agent.HITL); err != nil {
			return fmt.Errorf("agent %q: %w", name, err)
		}
	}
	if err := validateHITL(c.DefaultHITL); err != nil {
		return fmt.Errorf("default_hitl: %w", err)
	}

	if c.Channels.Discord.Enabled && c.Channels.Discord.Token == "" {
		return fmt.Errorf("channels.discord.token is required when discord is enabled")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	return nil
}

func validateHITL(h *HITLConfig) error {
	if h == nil {
		return nil
	}
	switch h.OnTimeout {
	case "", "deny", "abort":
		return nil
	default:
		return fmt.Errorf("hitl.on_timeout must be deny or abort, got %q", h.OnTimeout)
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Queue.PollIntervalRaw != "" {
		cfg.Queue.PollInterval, err = time.ParseDuration(cfg.Queue.PollIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing queue.poll_interval %q: %w", cfg.Queue.PollIntervalRaw, err)
		}
	}

	if cfg.Channels.Webhook.TimeoutRaw != "" {
		cfg.Channels.Webhook.Timeout, err = time.ParseDuration(cfg.Channels.Webhook.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing channels.webhook.timeout %q: %w", cfg.Channels.Webhook.TimeoutRaw, err)
		}
	}

	if cfg.DefaultHITL != nil {
		if err := parseHITLDuration(cfg.DefaultHITL); err != nil {
			return err
		}
	}
	for name, agent := range cfg.Agents {
		if agent.HITL == nil {
			continue
		}
		if err := parseHITLDuration(agent.HITL); err != nil {
			return fmt.Errorf("agent %q: %w", name, err)
		}
		cfg.Agents[name] = agent
	}

	return nil
}

func parseHITLDuration(h *HITLConfig) error {
	if h.ApprovalTimeoutRaw == "" {
		return nil
	}
	d, err := time.ParseDuration(h.ApprovalTimeoutRaw)
	if err != nil {
		return fmt.Errorf("parsing hitl.approval_timeout %q: %w", h.ApprovalTimeoutRaw, err)
	}
	h.ApprovalTimeout = d
	return nil
}
