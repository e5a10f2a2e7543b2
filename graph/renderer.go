package graph

import (
	"maps"
	"sync"
)

// Renderer receives the node and edge mutations of a session and reports
// on-screen positions.
//
// Contract:
//   - Concurrency: methods are called with the session lock held, one at
//     a time, and must not call back into the Session.
//   - Ownership: slices passed in are owned by the renderer.
type Renderer interface {
	AddNodes(nodes []Node)
	UpdateNodes(nodes []Node)
	AddEdges(edges []Edge)
	UpdateEdges(edges []Edge)
	Clear()

	// Positions returns the current position of every rendered node.
	Positions() map[string]Point
}

// Navigator opens a document in the wiki.
type Navigator interface {
	Open(url string)
}

// InfoPresenter shows and hides the info panel.
type InfoPresenter interface {
	ShowInfo(info Info)
	HideInfo()
}

type nopPresenter struct{}

func (nopPresenter) Open(string)   {}
func (nopPresenter) ShowInfo(Info) {}
func (nopPresenter) HideInfo()     {}

// MemoryRenderer keeps rendered state in memory. It also records
// navigation and the info panel, which makes it a complete headless
// frontend for tests and the CLI.
type MemoryRenderer struct {
	mu        sync.Mutex
	nodes     map[string]Node
	edges     map[string]Edge
	positions map[string]Point
	ops       []string
	opened    []string
	info      *Info
}

// NewMemoryRenderer creates an empty renderer.
func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{
		nodes:     make(map[string]Node),
		edges:     make(map[string]Edge),
		positions: make(map[string]Point),
	}
}

func (r *MemoryRenderer) AddNodes(nodes []Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "addNodes")
	for _, n := range nodes {
		r.nodes[n.ID] = n
		r.positions[n.ID] = n.Position
	}
}

func (r *MemoryRenderer) UpdateNodes(nodes []Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "updateNodes")
	for _, n := range nodes {
		r.nodes[n.ID] = n
	}
}

func (r *MemoryRenderer) AddEdges(edges []Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "addEdges")
	for _, e := range edges {
		r.edges[e.ID] = e
	}
}

func (r *MemoryRenderer) UpdateEdges(edges []Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "updateEdges")
	for _, e := range edges {
		r.edges[e.ID] = e
	}
}

func (r *MemoryRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "clear")
	clear(r.nodes)
	clear(r.edges)
	clear(r.positions)
}

func (r *MemoryRenderer) Positions() map[string]Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.positions)
}

// SetPosition moves a rendered node, as a physics layout would.
func (r *MemoryRenderer) SetPosition(id string, p Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[id]; ok {
		r.positions[id] = p
	}
}

func (r *MemoryRenderer) Open(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, url)
}

func (r *MemoryRenderer) ShowInfo(info Info) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = &info
}

func (r *MemoryRenderer) HideInfo() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info = nil
}

// Node returns the rendered state of id.
func (r *MemoryRenderer) Node(id string) (Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	return n, ok
}

// Edge returns the rendered state of the edge id.
func (r *MemoryRenderer) Edge(id string) (Edge, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.edges[id]
	return e, ok
}

// Len returns the number of rendered nodes and edges.
func (r *MemoryRenderer) Len() (nodes, edges int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes), len(r.edges)
}

// Ops returns the mutation calls received so far.
func (r *MemoryRenderer) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

// Opened returns every URL passed to Open.
func (r *MemoryRenderer) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opened...)
}

// Info returns the visible info panel, if any.
func (r *MemoryRenderer) Info() (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.info == nil {
		return Info{}, false
	}
	return *r.info, true
}

var (
	_ Renderer      = (*MemoryRenderer)(nil)
	_ Navigator     = (*MemoryRenderer)(nil)
	_ InfoPresenter = (*MemoryRenderer)(nil)
)
