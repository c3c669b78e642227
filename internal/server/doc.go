// Package server exposes the agentq HTTP API.
//
// # Endpoints
//
//   - POST /v1/jobs: submit a job for an agent. The body is the same
//     JSON document external producers put on the request queues; the
//     server fills in a correlation ID when omitted and returns 202 with
//     the assigned job and correlation IDs.
//
//   - GET /v1/agents: list the configured agents and their request
//     queue names.
//
//   - GET /healthz: liveness probe.
//
//   - GET /healthz/ready: readiness probe; pings the queue engine.
//
// The /v1 endpoints pass through the configured auth middleware; health
// endpoints are always open.
package server
