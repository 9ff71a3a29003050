// Package observability owns process metrics.
//
// Ownership boundary:
// - collector definitions and one-time registration
// - record helpers called from the engine session path
// - the /metrics handler for the optional metrics listener
package observability
