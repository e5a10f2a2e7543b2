// Package graph is the incremental exploration engine: a session-owned
// node and edge set grown by expanding pages and tags, a traceback
// engine that highlights the path from any node back to its root, and
// the styling and placement rules the renderer draws with.
//
// # Nodes
//
// A node is one of three variants (Kind): a page, a tag, or a root page.
// Node ids are neutral forms of the document id (pageid.NodeID) or
// "tag:<name>". The first discovery of a node fixes its level and parent.
//
// # Asynchrony
//
// Operations that fetch (AddRoot, Expand, LoadTags) return a *Task. The
// fetch runs in its own goroutine; its result is applied in one step
// under the session lock after re-checking that the session has not been
// restarted and the owning node still exists. A failed fetch applies
// nothing. Settle waits for every outstanding task, which is what tests
// and the CLI use to observe a quiescent graph.
//
// # Rendering
//
// A Renderer receives every mutation and reports positions. Navigator and
// InfoPresenter receive double-activate and hover output. MemoryRenderer
// implements all three.
package graph
