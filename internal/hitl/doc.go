// Package hitl implements the human-in-the-loop approval gate. The
// Coordinator turns an agent's policy into an approval callback: tools
// matching autoApprove pass immediately, tools matching no requireApproval
// pattern pass by default, and everything else runs a round trip: publish
// an ApprovalRequest on the job's reply channel, then poll a uniquely named
// ephemeral queue for the ApprovalDecision until the deadline resolves it
// via the onTimeout policy.
package hitl
