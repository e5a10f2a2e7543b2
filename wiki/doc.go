// Package wiki talks to the DokuWiki document store.
//
// DocumentSource is the seam the rest of wikigraph depends on. XMLRPCSource
// speaks DokuWiki's XML-RPC API, MemorySource serves an in-process corpus
// (tests and offline fixtures), and Resilient wraps any source with rate
// limiting, a circuit breaker and transient-only retries.
package wiki
