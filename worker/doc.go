// Package worker moves a native.Module off the caller's goroutine.
//
// Thread owns a module on one locked OS thread and funnels every call
// through a channel. Process runs the module in a child process (the
// xatlas-worker command) and exchanges gob frames over its stdin and
// stdout; progress reports are streamed back as frames of their own.
// Serve is the child side of that exchange.
//
// Both wrappers implement native.Module. Errors raised on the far side
// keep their errors.Phase and errors.Kind, so errors.Is behaves the same
// for every transport.
package worker
