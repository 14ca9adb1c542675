package generate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolgen/catalog"
)

func TestParseResponse_FencedBlock(t *testing.T) {
	text := "Sure.\n```json\n" +
		`{"code":"x=1","language":"python","description":"d","required_tools":[],"explanation":"e"}` +
		"\n```\nDone."

	res := ParseResponse(text)
	p, ok := res.(Parsed)
	require.True(t, ok, "got %#v", res)

	want := CodeUnit{
		Code:          "x=1",
		Language:      "python",
		Description:   "d",
		RequiredTools: []catalog.ToolRef{},
		Explanation:   "e",
	}
	if diff := cmp.Diff(want, p.CodeUnit); diff != "" {
		t.Errorf("ParseResponse() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, want, res.Unit())
}

func TestParseResponse_NoBracesDegrades(t *testing.T) {
	text := "I cannot help with that request."

	res := ParseResponse(text)
	d, ok := res.(Degraded)
	require.True(t, ok, "got %#v", res)
	assert.Equal(t, text, d.Raw)

	unit := res.Unit()
	assert.Equal(t, text, unit.Code)
	assert.Equal(t, DegradedDescription, unit.Description)
	assert.Equal(t, "no JSON found in response", unit.Explanation)
	assert.Equal(t, DefaultLanguage, unit.Language)
	assert.Empty(t, unit.RequiredTools)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     CodeUnit
		degraded string
	}{
		{
			name: "bare object inside prose",
			text: `Here you go: {"code":"result := 2","description":"two"} hope it helps`,
			want: CodeUnit{Code: "result := 2", Language: "go", Description: "two", RequiredTools: []catalog.ToolRef{}},
		},
		{
			name: "nested braces use the outermost span",
			text: `{"code":"if x { y() }","language":"go"}`,
			want: CodeUnit{Code: "if x { y() }", Language: "go", RequiredTools: []catalog.ToolRef{}},
		},
		{
			name: "required tools as objects and strings",
			text: `{"required_tools":[{"server":"github","category":"repos","tool":"list_repos"},"slack/messages/send_message"]}`,
			want: CodeUnit{Language: "go", RequiredTools: []catalog.ToolRef{
				{Server: "github", Category: "repos", Tool: "list_repos"},
				{Server: "slack", Category: "messages", Tool: "send_message"},
			}},
		},
		{
			name:     "invalid json",
			text:     `{"code": }`,
			degraded: "decode response",
		},
		{
			name:     "braces out of order",
			text:     `} then {`,
			degraded: "unterminated",
		},
		{
			name: "malformed tool reference is skipped",
			text: `{"code":"result := 1","required_tools":["github/list_repos",{"server":"slack","category":"messages","tool":"send_message"}]}`,
			want: CodeUnit{Code: "result := 1", Language: "go", RequiredTools: []catalog.ToolRef{
				{Server: "slack", Category: "messages", Tool: "send_message"},
			}},
		},
		{
			name:     "wrong field type",
			text:     "```json\n{\"code\": 42}\n```",
			degraded: "decode response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseResponse(tt.text)
			if tt.degraded != "" {
				d, ok := res.(Degraded)
				require.True(t, ok, "got %#v", res)
				assert.Contains(t, d.Reason, tt.degraded)
				assert.Equal(t, tt.text, res.Unit().Code)
				return
			}
			p, ok := res.(Parsed)
			require.True(t, ok, "got %#v", res)
			if diff := cmp.Diff(tt.want, p.CodeUnit); diff != "" {
				t.Errorf("ParseResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseResponse_UnreadableRequiredToolKeepsCode(t *testing.T) {
	text := "```json\n" +
		`{"code":"result := 1","description":"open it","required_tools":["github_create_issue", 7]}` +
		"\n```"

	res := ParseResponse(text)
	p, ok := res.(Parsed)
	require.True(t, ok, "got %#v", res)
	assert.Equal(t, "result := 1", p.CodeUnit.Code)
	assert.Equal(t, "open it", p.CodeUnit.Description)
	assert.Empty(t, p.CodeUnit.RequiredTools)
	assert.Equal(t, []string{`"github_create_issue"`, "7"}, p.Skipped)
}
