// Package sandbox runs generated Go code inside an embedded Yaegi
// interpreter and reports what happened as an [Outcome].
//
// # Tiers
//
// Code runs in one of two trust tiers:
//
//   - [TierRestricted] (the zero value): the interpreter sees only the
//     packages and symbols of an [AllowList] plus the injected agent
//     package. Filesystem, process, network, reflection and unsafe
//     packages can never be allow-listed.
//   - [TierUnrestricted]: the full Yaegi standard library symbol table.
//
// Go builtins (len, make, append, conversions, ...) are always available.
//
// # Code shape
//
// A code unit is either a complete program starting with a package clause
// or a script: optional import declarations followed by statements. The
// package "agent" is imported automatically in scripts. A script that
// declares a variable named result has its value captured in
// [Outcome].Result. Programs run their main function and report output
// only.
//
// # Absorbed failures
//
// Run never returns an error and never panics. Compile errors, disallowed
// imports, runtime panics, timeouts and host panics all become an Outcome
// with Success false, an Error message, a Trace, and whatever output the
// code produced before failing. [Outcome].Err carries the typed
// [*ExecutionError] for callers that want errors.Is.
//
// # Tool calls
//
// Every agent.Execute and agent.Call made by the code is recorded in
// [Outcome].ToolCalls and counted against [Config].MaxToolCalls.
package sandbox
