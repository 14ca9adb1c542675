package generate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/toolgen/catalog"
)

const jsonFence = "```json"

var errNoJSON = errors.New("no JSON found in response")

// reply is the JSON object a backend is asked to produce.
type reply struct {
	Code          string            `json:"code"`
	Language      string            `json:"language"`
	Description   string            `json:"description"`
	RequiredTools []json.RawMessage `json:"required_tools"`
	Explanation   string            `json:"explanation"`
}

// ParseResponse extracts the code unit from a backend reply. The JSON
// object is taken from the first fenced json block, or else from the span
// between the first "{" and the last "}". A missing language defaults to
// DefaultLanguage and missing fields are left empty. A required_tools
// entry that names no server/category/tool is skipped and reported in
// Parsed.Skipped. Failing to locate or decode the object yields a Degraded
// result holding the reply verbatim.
func ParseResponse(text string) ParseResult {
	span, err := extractJSON(text)
	if err != nil {
		return Degraded{Raw: text, Reason: err.Error()}
	}

	var r reply
	if err := json.Unmarshal([]byte(span), &r); err != nil {
		return Degraded{Raw: text, Reason: fmt.Sprintf("decode response: %v", err)}
	}

	tools := make([]catalog.ToolRef, 0, len(r.RequiredTools))
	var skipped []string
	for _, raw := range r.RequiredTools {
		ref, err := decodeToolRef(raw)
		if err != nil {
			skipped = append(skipped, string(raw))
			continue
		}
		tools = append(tools, ref)
	}

	unit := CodeUnit{
		Code:          r.Code,
		Language:      r.Language,
		Description:   r.Description,
		RequiredTools: tools,
		Explanation:   r.Explanation,
	}
	if unit.Language == "" {
		unit.Language = DefaultLanguage
	}
	return Parsed{CodeUnit: unit, Skipped: skipped}
}

func extractJSON(text string) (string, error) {
	if i := strings.Index(text, jsonFence); i >= 0 {
		rest := text[i+len(jsonFence):]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest), nil
	}
	start := strings.Index(text, "{")
	if start < 0 {
		return "", errNoJSON
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return "", errors.New("unterminated JSON object in response")
	}
	return text[start : end+1], nil
}

// decodeToolRef accepts {"server","category","tool"} objects and
// "server/category/tool" strings.
func decodeToolRef(raw json.RawMessage) (catalog.ToolRef, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		parts := strings.Split(s, "/")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return catalog.ToolRef{}, fmt.Errorf("want server/category/tool, got %q", s)
		}
		return catalog.ToolRef{Server: parts[0], Category: parts[1], Tool: parts[2]}, nil
	}
	var ref catalog.ToolRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return catalog.ToolRef{}, err
	}
	return ref, nil
}
