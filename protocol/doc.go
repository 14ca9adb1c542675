// Package protocol performs single tool calls against named MCP tool
// servers over the line-delimited JSON-RPC channel that [peer] provides.
//
// Each call is one frame out and one frame back:
//
//	{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"github__repos__list","arguments":{}}}
//	{"jsonrpc":"2.0","id":7,"result":{...}}
//
// The reply is matched by id. Replies to calls that were abandoned after
// [Config].CallTimeout are discarded when they eventually arrive.
//
// Peer-facing tool names join server, category and simple tool name with
// [ToolSeparator]; see [ToolName] and [SplitToolName].
//
// In mock mode no process is ever started and [Client.Call] returns
// [MockResult] instead.
package protocol
