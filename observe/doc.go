// Package observe provides the logging, tracing and metrics primitives used
// across wikigraph.
//
// Every lookup operation runs through a Middleware, which opens a span named
// wikigraph.<component>.<operation>, records call, error and latency
// instruments, and writes one structured log line. Loggers emit JSON lines
// and redact credential-bearing fields.
package observe
