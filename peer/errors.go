package peer

import (
	"errors"
	"fmt"
)

// Sentinel errors for error classification.
var (
	// ErrProcessStart indicates that a server process could not be launched
	// or exited during its startup grace period.
	ErrProcessStart = errors.New("process start error")

	// ErrPeerExited indicates that the peer process is gone and can no
	// longer answer requests.
	ErrPeerExited = errors.New("peer exited")
)

// StartError describes a failed launch of a named server.
type StartError struct {
	// Server is the configured server name.
	Server string

	// Command is the executable that was launched.
	Command string

	// Stderr holds the last lines the process wrote to stderr, if any.
	Stderr string

	// Err is the underlying error.
	Err error
}

// Error returns the error message including any captured stderr.
func (e *StartError) Error() string {
	msg := fmt.Sprintf("start server %q (%s): %v", e.Server, e.Command, e.Err)
	if e.Stderr != "" {
		msg += ": stderr: " + e.Stderr
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *StartError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target.
// StartError matches ErrProcessStart.
func (e *StartError) Is(target error) bool {
	return target == ErrProcessStart
}
