// Package channel implements pluggable reply delivery. A Channel sends one
// JSON message to an external destination; a Factory recognizes a URI scheme
// and builds channels bound to the URI's address. The Registry resolves a
// replyTo URI to a channel by walking factories in registration order.
//
// Built-in factories: queue:// (enqueue onto a durable queue) and
// webhook:// (HTTP POST). discord:// is included as an integrator example.
package channel
