package generate

import (
	"errors"
	"fmt"
)

// ErrBackend indicates that the generation backend could not produce a
// reply.
var ErrBackend = errors.New("generation backend error")

// BackendError wraps a failed backend invocation.
type BackendError struct {
	// Backend names the backend that failed.
	Backend string

	// Err is the underlying error.
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrBackend.
func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}
