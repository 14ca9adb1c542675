// Package generate turns a natural-language request into a code unit for
// the sandbox.
//
// An [Orchestrator] narrows the catalog to the tools relevant to the
// request, renders a prompt describing them and the agent API, asks a
// [Backend] for a reply and parses that reply with [ParseResponse].
//
// Parsing never fails outright. A reply that holds no usable JSON object
// becomes a [Degraded] result whose code is the raw reply, so callers
// always get something to show. Only a failing backend is an error
// ([ErrBackend]).
//
// Backends:
//
//   - [Gemini] calls the Gemini API through google.golang.org/genai.
//   - [Static] returns a canned reply, for offline and mock runs.
//   - [BackendFunc] adapts a plain function.
package generate
