package workflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/toolgen/agent"
	"github.com/jonwraymond/toolgen/catalog"
	"github.com/jonwraymond/toolgen/config"
	"github.com/jonwraymond/toolgen/generate"
	"github.com/jonwraymond/toolgen/protocol"
	"github.com/jonwraymond/toolgen/sandbox"
)

func TestRun_MockModeEndToEnd(t *testing.T) {
	cat, err := catalog.New(catalog.Server{
		Name: "slack",
		Categories: []catalog.Category{{
			Name: "messages",
			Tools: []catalog.Tool{
				{Name: "send_message", Description: "Post a message to a channel", Keywords: []string{"chat"}},
			},
		}},
	})
	require.NoError(t, err)

	launch := config.Default()
	launch.MockMode = true
	client, err := protocol.NewClient(protocol.Config{Launch: launch})
	require.NoError(t, err)
	defer client.Close()

	a, err := agent.New(agent.Config{Catalog: cat, Caller: client})
	require.NoError(t, err)
	sb, err := sandbox.New(sandbox.Config{Agent: a})
	require.NoError(t, err)

	code := `r, err := agent.Execute("slack", "messages", "send_message", map[string]any{"text": "hi"})
if err != nil {
	panic(err)
}
fmt.Println(r["message"])
result := r["status"]`
	reply, err := json.Marshal(map[string]any{
		"code":           "import \"fmt\"\n\n" + code,
		"language":       "go",
		"description":    "send hi",
		"required_tools": []string{"slack/messages/send_message"},
	})
	require.NoError(t, err)

	gen, err := generate.NewOrchestrator(generate.Config{
		Catalog: cat,
		Backend: generate.Static{Reply: "```json\n" + string(reply) + "\n```"},
	})
	require.NoError(t, err)

	c, err := New(Config{Generator: gen, Executor: sb})
	require.NoError(t, err)

	res := c.Run(context.Background(), "send a chat message", Options{Execute: true})
	require.True(t, res.Success, "error: %s\ntrace: %s", res.Error, res.Trace)
	require.NotNil(t, res.Execution)
	assert.Equal(t, "success", res.Execution.Result)
	assert.Equal(t, "mock execution of slack/slack__messages__send_message\n", res.Execution.Stdout)
	require.Len(t, res.Execution.ToolCalls, 1)
	assert.Equal(t, "slack__messages__send_message", res.Execution.ToolCalls[0].Tool)
	assert.Equal(t, []catalog.ToolRef{{Server: "slack", Category: "messages", Tool: "send_message"}}, res.Code.RequiredTools)
}
