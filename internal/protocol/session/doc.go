// Package session owns engine session timing policy.
//
// Ownership boundary:
// - connect/handshake/exchange timeouts
// - poll pacing between progress and output queries
// - retry/backoff primitives for connect attempts and pending output
package session
