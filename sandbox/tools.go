package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"

	"github.com/jonwraymond/toolgen/agent"
	"github.com/jonwraymond/toolgen/protocol"
)

// agentPackage is the import path of the injected agent binding.
const agentPackage = "agent"

// recorder is the per-run agent surface. It traces tool calls and enforces
// the tool call limit.
type recorder struct {
	ctx          context.Context
	agent        agent.Agent
	maxToolCalls int

	mu        sync.Mutex
	callCount int
	toolCalls []ToolCallRecord
}

func newRecorder(ctx context.Context, a agent.Agent, maxToolCalls int) *recorder {
	return &recorder{ctx: ctx, agent: a, maxToolCalls: maxToolCalls}
}

// reserve counts one tool call against the limit.
func (r *recorder) reserve() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxToolCalls > 0 && r.callCount >= r.maxToolCalls {
		return fmt.Errorf("%w: max tool calls (%d) exceeded", ErrLimitExceeded, r.maxToolCalls)
	}
	r.callCount++
	return nil
}

func (r *recorder) record(rec ToolCallRecord) {
	r.mu.Lock()
	r.toolCalls = append(r.toolCalls, rec)
	r.mu.Unlock()
}

// ToolCalls returns a copy of all recorded tool calls.
func (r *recorder) ToolCalls() []ToolCallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ToolCallRecord(nil), r.toolCalls...)
}

func (r *recorder) Execute(server, category, tool string, params map[string]any) (map[string]any, error) {
	return r.call(server, protocol.ToolName(server, category, tool), params, func() (map[string]any, error) {
		return r.agent.Execute(r.ctx, server, category, tool, params)
	})
}

func (r *recorder) Call(server, fullName string, args map[string]any) (map[string]any, error) {
	return r.call(server, fullName, args, func() (map[string]any, error) {
		return r.agent.Call(r.ctx, server, fullName, args)
	})
}

func (r *recorder) call(server, name string, args map[string]any, do func() (map[string]any, error)) (map[string]any, error) {
	if err := r.reserve(); err != nil {
		r.record(ToolCallRecord{Server: server, Tool: name, Args: snapshotMap(args), Error: err.Error()})
		return nil, err
	}

	start := time.Now()
	result, err := do()
	rec := ToolCallRecord{
		Server:     server,
		Tool:       name,
		Args:       snapshotMap(args),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
	} else {
		rec.Result = snapshotMap(result)
	}
	r.record(rec)
	return result, err
}

// exports returns the agent package symbol table bound to this run.
func (r *recorder) exports() interp.Exports {
	return interp.Exports{
		agentPackage + "/" + agentPackage: {
			"Servers": reflect.ValueOf(func() ([]string, error) {
				return r.agent.Servers(r.ctx)
			}),
			"Categories": reflect.ValueOf(func(server string) ([]agent.CategoryInfo, error) {
				return r.agent.Categories(r.ctx, server)
			}),
			"Tools": reflect.ValueOf(func(server, category string) ([]agent.ToolInfo, error) {
				return r.agent.Tools(r.ctx, server, category)
			}),
			"Search": reflect.ValueOf(func(query string) ([]agent.ToolInfo, error) {
				return r.agent.Search(r.ctx, query)
			}),
			"Describe": reflect.ValueOf(func(server, category, tool string) (agent.Doc, error) {
				return r.agent.Describe(r.ctx, server, category, tool)
			}),
			"Tree": reflect.ValueOf(func(server string) (string, error) {
				return r.agent.Tree(r.ctx, server)
			}),
			"Execute": reflect.ValueOf(r.Execute),
			"Call":    reflect.ValueOf(r.Call),

			"CategoryInfo": reflect.ValueOf((*agent.CategoryInfo)(nil)),
			"ToolInfo":     reflect.ValueOf((*agent.ToolInfo)(nil)),
			"Doc":          reflect.ValueOf((*agent.Doc)(nil)),
		},
	}
}

// snapshotMap copies m with snapshot applied to every value.
func snapshotMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = snapshot(v)
	}
	return out
}

// snapshot copies v so that later mutation by the script cannot change
// it. Maps, slices and scalars already in JSON form are copied directly;
// any other value is round-tripped through encoding/json, which also
// flattens interpreter-defined types.
func snapshot(v any) any {
	switch val := v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case map[string]any:
		return snapshotMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = snapshot(e)
		}
		return out
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
