package sandbox

import (
	"fmt"
	"strings"
)

// Language is the language code units are written in.
const Language = "go"

// Tier selects the capability set a code unit runs with.
type Tier int

const (
	// TierRestricted exposes only the allow list and the agent package.
	TierRestricted Tier = iota

	// TierUnrestricted exposes the full interpreter standard library.
	TierUnrestricted
)

// String returns "restricted" or "unrestricted".
func (t Tier) String() string {
	switch t {
	case TierRestricted:
		return "restricted"
	case TierUnrestricted:
		return "unrestricted"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier parses a tier name. The empty string is TierRestricted.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "restricted":
		return TierRestricted, nil
	case "unrestricted":
		return TierUnrestricted, nil
	default:
		return TierRestricted, fmt.Errorf("unknown sandbox tier %q", s)
	}
}

// ToolCallRecord captures one tool invocation made by a code unit.
type ToolCallRecord struct {
	// Server is the server the call went to.
	Server string `json:"server"`

	// Tool is the peer-facing tool name.
	Tool string `json:"tool"`

	// Args is a deep copy of the arguments as passed.
	Args map[string]any `json:"args,omitempty"`

	// Result is the tool's result on success.
	Result map[string]any `json:"result,omitempty"`

	// Error is the failure message, if the call failed.
	Error string `json:"error,omitempty"`

	// DurationMs is the call time in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// Outcome is the result of one sandbox run.
type Outcome struct {
	// Success is true when the code ran to completion.
	Success bool `json:"success"`

	// Stdout is the captured standard output.
	Stdout string `json:"stdout"`

	// Stderr is the captured standard error, reported as warnings.
	Stderr string `json:"stderr,omitempty"`

	// Error is the failure message when Success is false.
	Error string `json:"error,omitempty"`

	// Trace is the failure detail: a positioned compile error or the
	// panic stack.
	Trace string `json:"trace,omitempty"`

	// Result is the value of the code's result variable, if it declared one.
	Result any `json:"result,omitempty"`

	// ToolCalls lists the tool invocations in call order.
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`

	// Truncated is set when output exceeded the configured limit.
	Truncated bool `json:"truncated,omitempty"`

	// DurationMs is the run time in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// Err is the typed failure; nil on success.
	Err error `json:"-"`
}
