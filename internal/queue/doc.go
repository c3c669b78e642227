// Package queue provides the durable job queue the dispatcher runs on: an
// Engine interface with at-least-once, exclusive-fetch delivery semantics,
// SQLite and Redis implementations, and a Work polling loop that subscribes
// a handler to a queue. Fetched jobs carry a lease; a consumer crash makes
// the job fetchable again once the lease expires, so handlers must tolerate
// redelivery.
package queue
