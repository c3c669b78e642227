// Package message defines the JSON wire types exchanged between producers,
// the dispatcher, reply channels, and approver integrations: AgentJobRequest,
// the AgentJobResponse result/error union, and the ApprovalRequest /
// ApprovalDecision pair used for tool-approval round trips. It also owns the
// queue naming convention shared with external producers.
package message
