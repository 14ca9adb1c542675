// Package peer owns the external tool-server processes that toolgen talks to.
//
// A [Manager] starts at most one process per server name, lazily, on the
// first [Manager.Acquire] for that name, and reuses it for every later call.
// Processes exchange newline-delimited frames over stdin and stdout; stderr
// is drained continuously and its last lines are kept for diagnostics.
//
// # Request/response alternation
//
// [Handle.Exchange] is the only way to talk to a peer. It holds the
// handle's single call slot for the whole write-then-read cycle, so a peer
// never sees a second request before its previous reply was consumed.
// Every wait inside Exchange honors the caller's context.
// Lines that the caller's accept function rejects (late replies to
// abandoned calls, notifications) are logged and dropped.
//
// A peer that stops reading stdin can block a write indefinitely. When the
// context ends mid-write the process is killed and the handle discarded;
// the next [Manager.Acquire] starts a fresh process.
//
// # Shutdown
//
// [Manager.ShutdownAll] closes stdin, sends SIGTERM, waits up to
// Options.ShutdownTimeout and then kills. It clears the cache even when
// individual processes misbehave and never returns an error.
package peer
