// Package protocol owns the engine wire contract.
//
// Ownership boundary:
// - render request shape and local validation
// - request line encoding (render/progress/output)
// - reply classification, including the engine sentinels
//
// The engine speaks one newline-terminated line per message and replies
// strictly once per request. Sentinel replies such as error(4) are named
// outcomes, not failures; see decode.go.
package protocol
