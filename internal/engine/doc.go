// Package engine owns the conversation with the remote render engine.
//
// Ownership boundary:
// - the single persistent connection and its handshake
// - strictly half-duplex request/response exchanges
// - the render session state machine (submit, poll, fetch output)
// - single-flight execution of sessions on a worker goroutine
//
// Engine sentinels (no operation, no output, output pending) are outcomes,
// never errors. Only transport, protocol and rejection faults surface as
// errors; a transport fault leaves the Client unusable.
package engine
