package sandbox

import (
	"errors"
	"fmt"
)

// Sentinel errors for error classification.
var (
	// ErrExecution indicates that a code unit failed to compile or run.
	ErrExecution = errors.New("code execution error")

	// ErrLimitExceeded indicates that a run hit its timeout or tool call
	// limit.
	ErrLimitExceeded = errors.New("limit exceeded")

	// ErrImportNotAllowed indicates an import outside the tier's allow list.
	ErrImportNotAllowed = errors.New("import not allowed")
)

// Kind classifies an ExecutionError.
type Kind string

// Failure kinds.
const (
	KindImport   Kind = "import"
	KindCompile  Kind = "compile"
	KindRuntime  Kind = "runtime"
	KindTimeout  Kind = "timeout"
	KindCanceled Kind = "canceled"
	KindInternal Kind = "internal"
)

// ExecutionError describes why a code unit failed. It only ever appears
// inside an Outcome.
type ExecutionError struct {
	// Kind classifies the failure.
	Kind Kind

	// Message describes the error.
	Message string

	// Line is the 1-based line in the code unit. Zero when unknown.
	Line int

	// Column is the 1-based column. Zero when unknown.
	Column int

	// Err is the underlying error, if any.
	Err error
}

// Error returns the error message, including line and column if available.
func (e *ExecutionError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("%s error: %s (line %d, col %d)", e.Kind, e.Message, e.Line, e.Column)
	case e.Line > 0:
		return fmt.Sprintf("%s error: %s (line %d)", e.Kind, e.Message, e.Line)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether this error matches the target.
// ExecutionError matches ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}
