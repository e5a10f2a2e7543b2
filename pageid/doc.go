// Package pageid resolves wiki link tokens into canonical document identifiers.
//
// A document identifier is a colon-delimited path such as
// "projects:widget:start". The portion before the last colon is the
// namespace, the final segment is the local name. Identifiers compare
// case-insensitively and are canonically lowercase.
//
// Resolve applies the relative-link rules of the wiki in a fixed order:
// absolute (":x"), parent (".."), already namespaced ("a:b"), bare local in
// a namespace, bare local at the top level.
//
// NodeID and TagNodeID derive the graph node identity used by the graph
// package; the same document or tag always yields the same node id.
package pageid
