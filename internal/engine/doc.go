// Package engine defines the contract the dispatcher invokes agents through:
// execution options (prompt, session resume/fork, tool allowlist), a streamed
// event channel ending in a terminal result or error, and the ApprovalFunc
// callback consulted before each tool invocation. CommandEngine is the
// shipped implementation, driving an external agent process over a
// line-delimited JSON protocol.
package engine
