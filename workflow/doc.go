// Package workflow runs a request end to end: generate code for it, then
// optionally execute that code in the sandbox.
//
// [Coordinator.Run] never fails. Every error, including panics raised by
// its collaborators, ends up in the returned [Result] with Success false.
package workflow
