package engine

import (
	"errors"
	"fmt"

	"github.com/danmuck/mandelctl/internal/protocol"
)

var (
	ErrAddressRequired = errors.New("engine: address required")
	ErrConnect         = errors.New("engine: connect failed")
	ErrHandshake       = errors.New("engine: handshake failed")
	ErrTransport       = errors.New("engine: transport failure")
	ErrClientBroken    = errors.New("engine: client broken")
	ErrClientClosed    = errors.New("engine: client closed")
	ErrRenderRejected  = errors.New("engine: render rejected")
	ErrProtocol        = errors.New("engine: protocol violation")
	ErrSessionBusy     = errors.New("engine: session busy")
	ErrSessionFinished = errors.New("engine: session already ran")
)

// RejectedError carries the engine's reply to a refused render command.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if cause, ok := protocol.DescribeEngineError(e.Message); ok {
		return fmt.Sprintf("engine: render rejected message=%q cause=%q", e.Message, cause)
	}
	return fmt.Sprintf("engine: render rejected message=%q", e.Message)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRenderRejected
}
