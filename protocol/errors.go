package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for error classification.
var (
	// ErrProtocol indicates a reply that is not a well-formed response frame.
	ErrProtocol = errors.New("protocol error")

	// ErrRemoteTool indicates that the peer reported a tool-level failure.
	ErrRemoteTool = errors.New("remote tool error")

	// ErrTimeout indicates that no reply arrived within the call timeout.
	ErrTimeout = errors.New("call timed out")
)

// ProtocolError describes a reply frame that could not be decoded.
type ProtocolError struct {
	Server string

	// Line is the raw reply, possibly truncated.
	Line string

	Err error
}

// Error returns the error message.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed reply from %q: %v: %q", e.Server, e.Err, e.Line)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target.
// ProtocolError matches ErrProtocol.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// RemoteToolError carries the error object a peer returned for a call.
type RemoteToolError struct {
	Server  string
	Tool    string
	Code    int
	Message string
	Data    any
}

// Error returns the error message.
func (e *RemoteToolError) Error() string {
	return fmt.Sprintf("tool %q on %q failed (code %d): %s", e.Tool, e.Server, e.Code, e.Message)
}

// Is reports whether this error matches the target.
// RemoteToolError matches ErrRemoteTool.
func (e *RemoteToolError) Is(target error) bool {
	return target == ErrRemoteTool
}
