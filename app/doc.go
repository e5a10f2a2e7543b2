// Package app assembles a running wikigraph from a validated
// configuration: observer, cache, document source, extraction service,
// health checks and the optional auth gate.
package app
