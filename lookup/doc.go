// Package lookup is the memoized extraction service behind the query
// surface.
//
// Every operation computes a cache key from its name and normalized
// arguments, answers from the cache when the entry is fresh, and otherwise
// reads the document source, runs the markup extractors and stores the
// result. Upstream failures surface unchanged; a missing document is an
// empty result.
//
// Aggregate operations (BuildGraph, TagIndex) fan out over the corpus with
// a bounded worker group and reuse the per-document entries written by
// Title, Links and Tags.
package lookup
