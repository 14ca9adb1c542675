// Package agent is the tool surface handed to generated code.
//
// An [Agent] browses the tool catalog, searches it, documents single tools
// and executes them through a [Caller], normally a *protocol.Client. The
// sandbox exposes an Agent to interpreted code as the package "agent".
//
// # Identity
//
// Tools are addressed by server, category and simple name. Execute joins
// the three into the peer-facing name server__category__tool; Call takes a
// peer-facing name directly for tools the catalog does not describe.
//
// # State
//
// An Agent built by [New] keeps no per-call state, so one instance can back
// any number of sandbox runs. Per-run bookkeeping such as call tracing and
// limits belongs to the sandbox.
package agent
