// Package config handles configuration loading for agentq.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	server:
//	  auth:
//	    jwt_secret: "${AGENTQ_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	queue:
//	  poll_interval: "500ms"
//	default_hitl:
//	  approval_timeout: "5m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: ":8080"
//	  auth:
//	    jwt_secret: "${AGENTQ_JWT_SECRET}"
//
// Queue engine (sqlite or redis):
//
//	queue:
//	  driver: "sqlite"
//	  path: "/var/lib/agentq/queue.db"
//	  poll_interval: "500ms"
//
// Execution engine subprocess:
//
//	engine:
//	  command: "claude"
//	  args: ["--agent-mode"]
//
// Agents, each with an optional human-in-the-loop policy:
//
//	agents:
//	  researcher:
//	    model: "sonnet"
//	    system_prompt: "You research things."
//	    hitl:
//	      auto_approve: ["Read", "Grep"]
//	      require_approval: ["Bash*"]
//	      on_timeout: "deny"
//	      approval_timeout: "5m"
//
// Reply channels:
//
//	channels:
//	  webhook:
//	    timeout: "30s"
//	  discord:
//	    enabled: true
//	    token: "${DISCORD_TOKEN}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration from a path:
//
//	cfg, err := config.Load("/etc/agentq/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
