// Package markup extracts graph structure from raw wiki markup.
//
// ExtractLinks finds internal links ([[target]] and [[target|label]]) and
// resolves them with the pageid rules; ExtractTags reads tag annotations
// ({{tag>alpha beta "two words"}}). Both return ordered, deduplicated
// slices. ExtractTitle returns the first heading, falling back to the
// document id. Excerpt produces a short plain-text preview.
//
// All functions are pure and safe for concurrent use.
package markup
