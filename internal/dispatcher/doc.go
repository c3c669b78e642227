// Package dispatcher is the async worker at the center of the system. It
// maintains exactly one queue subscription per configured agent, processing
// one job at a time per agent while distinct agents run concurrently. Per
// job it resolves the replyTo URI to a channel, installs the HITL approval
// callback, drives the agent engine's event stream, and delivers exactly one
// result-or-error response carrying the request's correlation id and origin.
package dispatcher
