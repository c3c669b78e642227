// Package plugins discovers agent definitions from markdown files.
//
// A plugin file is a markdown document with optional frontmatter. YAML
// frontmatter is delimited by --- lines, TOML by +++ lines:
//
//	---
//	name: researcher
//	model: sonnet
//	allowed_tools: ["Read", "WebSearch"]
//	auto_approve: ["Read"]
//	require_approval: ["Bash*"]
//	---
//
//	# Research Assistant
//
//	You research things and report back with sources.
//
// The frontmatter carries the agent's execution settings and approval
// policy. The markdown body becomes the system prompt unless the
// frontmatter sets system_prompt explicitly, and the first H1 heading
// supplies a human-readable display name.
//
// Discovered definitions are merged into the runtime configuration with
// Merge; agents declared directly in the config file take precedence over
// plugin files of the same name.
package plugins
