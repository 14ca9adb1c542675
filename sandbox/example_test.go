package sandbox_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/toolgen/agent"
	"github.com/jonwraymond/toolgen/catalog"
	"github.com/jonwraymond/toolgen/config"
	"github.com/jonwraymond/toolgen/protocol"
	"github.com/jonwraymond/toolgen/sandbox"
)

func newAgent() agent.Agent {
	cat, _ := catalog.New(catalog.Server{
		Name: "slack",
		Categories: []catalog.Category{{
			Name:  "messages",
			Tools: []catalog.Tool{{Name: "send_message", Description: "Post a message"}},
		}},
	})
	launch := config.Default()
	launch.MockMode = true
	client, _ := protocol.NewClient(protocol.Config{Launch: launch})
	a, _ := agent.New(agent.Config{Catalog: cat, Caller: client})
	return a
}

func ExampleSandbox_RunRestricted() {
	sb, err := sandbox.New(sandbox.Config{Agent: newAgent()})
	if err != nil {
		fmt.Println(err)
		return
	}

	out := sb.RunRestricted(context.Background(), "result := 2 + 2")
	fmt.Printf("Success: %v\n", out.Success)
	fmt.Printf("Result: %v\n", out.Result)
	fmt.Printf("Stderr: %q\n", out.Stderr)
	// Output:
	// Success: true
	// Result: 4
	// Stderr: ""
}

func ExampleSandbox_Run_toolCall() {
	sb, err := sandbox.New(sandbox.Config{Agent: newAgent(), MaxToolCalls: 1})
	if err != nil {
		fmt.Println(err)
		return
	}

	code := `r, err := agent.Execute("slack", "messages", "send_message", map[string]any{"text": "hi"})
if err != nil {
	panic(err)
}
result := r["status"]`

	out := sb.Run(context.Background(), code, sandbox.TierRestricted)
	fmt.Printf("Result: %v\n", out.Result)
	fmt.Printf("Tool: %s\n", out.ToolCalls[0].Tool)
	// Output:
	// Result: success
	// Tool: slack__messages__send_message
}

func ExampleSandbox_Run_forbiddenImport() {
	sb, err := sandbox.New(sandbox.Config{Agent: newAgent()})
	if err != nil {
		fmt.Println(err)
		return
	}

	out := sb.Run(context.Background(), "import \"os/exec\"\n\nexec.Command(\"ls\")\n", sandbox.TierRestricted)
	fmt.Printf("Success: %v\n", out.Success)
	fmt.Println(out.Error)
	// Output:
	// Success: false
	// import error: import "os/exec" is not allowed in the restricted tier (line 1)
}
