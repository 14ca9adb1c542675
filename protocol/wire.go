package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// Version is the JSON-RPC version written on every frame.
	Version = "2.0"

	// MethodCallTool is the method identifier for tool invocation.
	MethodCallTool = "tools/call"

	// ToolSeparator joins server, category and tool in peer-facing names.
	ToolSeparator = "__"
)

// Request is one outgoing frame.
type Request struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      int64               `json:"id"`
	Method  string              `json:"method"`
	Params  *mcp.CallToolParams `json:"params"`
}

// Response is one incoming frame. Result and Error are kept raw until the
// frame is known to belong to the pending request.
type Response struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
}

// WireError is the error object of a response frame.
type WireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// UnmarshalJSON accepts the JSON-RPC error object and, from peers that do
// not follow it, a bare string or any other value carried as Data.
func (e *WireError) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) > 0 && data[0] == '{':
		type plain WireError
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*e = WireError(p)
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = WireError{Message: s}
	default:
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*e = WireError{Message: "tool error", Data: v}
	}
	return nil
}

// NewRequest builds a tools/call frame. Nil arguments are sent as {}.
func NewRequest(id int64, tool string, args map[string]any) Request {
	if args == nil {
		args = map[string]any{}
	}
	return Request{
		JSONRPC: Version,
		ID:      id,
		Method:  MethodCallTool,
		Params:  &mcp.CallToolParams{Name: tool, Arguments: args},
	}
}

// Encode renders the request as a single line without the trailing newline.
func (r Request) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode request %d: %w", r.ID, err)
	}
	return data, nil
}

// DecodeResponse parses one reply line.
func DecodeResponse(line []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, err
	}
	if resp.ID == nil && resp.Error == nil {
		return Response{}, errors.New("missing id")
	}
	return resp, nil
}

// matchID returns the accept function for the reply to request id. It takes
// the frame carrying id, an error frame with a null id (the peer could not
// read the request), and any line that is not a JSON object so that it
// surfaces as a protocol error. Other frames belong to abandoned calls or
// are notifications.
func matchID(id int64) func([]byte) bool {
	want := strconv.FormatInt(id, 10)
	return func(line []byte) bool {
		var head struct {
			ID    json.RawMessage `json:"id"`
			Error json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(line, &head); err != nil {
			return true
		}
		if len(head.ID) == 0 || string(head.ID) == "null" {
			return len(head.Error) > 0
		}
		return string(bytes.TrimSpace(head.ID)) == want
	}
}

// ToolName composes the peer-facing name server__category__tool.
func ToolName(server, category, tool string) string {
	return server + ToolSeparator + category + ToolSeparator + tool
}

// SplitToolName is the inverse of ToolName. It reports false when name does
// not have exactly three non-empty parts.
func SplitToolName(name string) (server, category, tool string, ok bool) {
	parts := strings.SplitN(name, ToolSeparator, 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
