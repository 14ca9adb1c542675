package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Result is the result object of a successful call, as the peer sent it.
type Result map[string]any

// Content decodes the result as an MCP CallToolResult.
func (r Result) Content() (*mcp.CallToolResult, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	var out mcp.CallToolResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode tool result: %w", err)
	}
	return &out, nil
}

// Text joins the text content items of the result with newlines. Results
// that are not MCP tool results yield "".
func (r Result) Text() string {
	res, err := r.Content()
	if err != nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// IsError reports whether the result is an MCP tool result flagged as an
// error. Such results are still successful calls at the protocol level.
func (r Result) IsError() bool {
	v, _ := r["isError"].(bool)
	return v
}

func decodeResult(raw json.RawMessage) (Result, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Result{}, nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj == nil {
			obj = Result{}
		}
		return obj, nil
	}
	// Some peers answer with a bare value; keep it under "value".
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return Result{"value": v}, nil
}
