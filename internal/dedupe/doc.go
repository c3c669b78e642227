// Package dedupe tracks recently delivered correlation IDs so that jobs
// redelivered by the at-least-once queue engine are not executed twice
// within the cache window.
package dedupe
