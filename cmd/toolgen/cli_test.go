package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolgen/config"
	"github.com/jonwraymond/toolgen/sandbox"
	"github.com/jonwraymond/toolgen/workflow"
)

var testCatalog = filepath.Join("testdata", "catalog.yaml")

// execute runs the CLI with args and returns what it wrote to stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes a mock-mode configuration using the static backend
// and a history database under a temp directory.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	reply, err := filepath.Abs(filepath.Join("testdata", "reply.md"))
	require.NoError(t, err)
	cat, err := filepath.Abs(testCatalog)
	require.NoError(t, err)

	body := fmt.Sprintf(`mock_mode: true
catalog: %s
history: %s
generator:
  provider: static
  response_file: %s
sandbox:
  timeout: 10s
`, cat, filepath.Join(dir, "history.db"), reply)
	path := filepath.Join(dir, "toolgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestServers(t *testing.T) {
	out, err := execute(t, "", "servers", "--catalog", testCatalog)
	require.NoError(t, err)
	assert.Contains(t, out, "github (1 tools)\n  issues: Issue tracking (1 tools)\n")
	assert.Contains(t, out, "slack (1 tools)\n")
}

func TestTree(t *testing.T) {
	out, err := execute(t, "", "tree", "slack", "--catalog", testCatalog)
	require.NoError(t, err)
	assert.Equal(t, "slack/\n└── messages/ (1 tools)\n    └── send_message\n", out)

	_, err = execute(t, "", "tree", "nope", "--catalog", testCatalog)
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	out, err := execute(t, "", "search", "message", "--catalog", testCatalog)
	require.NoError(t, err)
	assert.Equal(t, "slack/messages/send_message\n    Post a message to a channel\n", out)

	out, err = execute(t, "", "search", "issue", "--ranked", "--catalog", testCatalog)
	require.NoError(t, err)
	assert.Contains(t, out, "github/issues/create_issue")

	out, err = execute(t, "", "search", "zzz", "--catalog", testCatalog)
	require.NoError(t, err)
	assert.Equal(t, "no tools match \"zzz\"\n", out)
}

func TestMissingCatalog(t *testing.T) {
	_, err := execute(t, "", "servers")
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestCall_Mock(t *testing.T) {
	out, err := execute(t, "", "call", "slack", "messages", "send_message",
		"--mock", "--catalog", testCatalog, "--args", `{"text":"hi"}`)
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, true, res["mock"])
	assert.Equal(t, "slack__messages__send_message", res["tool"])
	assert.Equal(t, map[string]any{"text": "hi"}, res["arguments"])

	_, err = execute(t, "", "call", "slack", "messages", "nope", "--mock", "--catalog", testCatalog)
	assert.Error(t, err)

	_, err = execute(t, "", "call", "slack", "messages", "send_message", "--mock", "--catalog", testCatalog, "--args", "{")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	out, err := execute(t, "", "describe", "github", "issues", "create_issue", "--mock", "--catalog", testCatalog)
	require.NoError(t, err)
	assert.Contains(t, out, `"full_name": "github__issues__create_issue"`)
}

func TestExec(t *testing.T) {
	out, err := execute(t, "result := 2 + 2\n", "exec", "-", "--mock", "--catalog", testCatalog)
	require.NoError(t, err)

	var res sandbox.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, float64(4), res.Result)

	file := filepath.Join(t.TempDir(), "bad.go")
	require.NoError(t, os.WriteFile(file, []byte("import \"os\"\n\nos.Exit(1)\n"), 0o600))
	out, err = execute(t, "", "exec", file, "--mock", "--catalog", testCatalog)
	require.Error(t, err)
	assert.Contains(t, out, `"success": false`)

	_, err = execute(t, "", "exec", file, "--mock", "--catalog", testCatalog, "--tier", "bogus")
	assert.Error(t, err)
}

func TestGenerate_Prompt(t *testing.T) {
	out, err := execute(t, "", "generate", "--prompt", "--catalog", testCatalog, "--context", "be brief", "send", "a", "message")
	require.NoError(t, err)
	assert.Contains(t, out, "User Request: send a message\n")
	assert.Contains(t, out, "1. slack/messages/send_message")
	assert.Contains(t, out, "Additional Context: be brief")
}

func TestRunAndHistory(t *testing.T) {
	cfg := writeConfig(t)

	out, err := execute(t, "", "run", "-c", cfg, "send", "hi", "to", "slack")
	require.NoError(t, err, out)

	var res workflow.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "send hi to slack", res.Query)
	require.NotNil(t, res.Execution)
	assert.Equal(t, "success", res.Execution.Result)
	require.Len(t, res.Execution.ToolCalls, 1)

	out, err = execute(t, "", "history", "list", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, res.RunID)
	assert.Contains(t, out, "send hi to slack")

	out, err = execute(t, "", "history", "show", res.RunID, "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `"description": "Send hi to slack"`)

	_, err = execute(t, "", "history", "show", "missing", "-c", cfg)
	assert.Error(t, err)
}

func TestRun_NoExec(t *testing.T) {
	out, err := execute(t, "", "run", "--no-exec", "-c", writeConfig(t), "anything")
	require.NoError(t, err)

	var res workflow.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Nil(t, res.Execution)
	assert.Equal(t, []workflow.Stage{workflow.StageStart, workflow.StageGenerating, workflow.StageSkipExecution, workflow.StageDone}, res.Stages)
}

func TestHistory_NotConfigured(t *testing.T) {
	_, err := execute(t, "", "history", "list")
	assert.ErrorIs(t, err, config.ErrConfiguration)
}
