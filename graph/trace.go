package graph

import "slices"

// TraceBound caps the parent walk of a traceback.
const TraceBound = 100

// Traceback returns the parent chain of nodeID from its root. The walk
// stops at an active root, at a node without parent, or after TraceBound
// nodes or a repeated node, in which case the path is Truncated.
func (s *Session) Traceback(nodeID string) Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracebackLocked(nodeID)
}

func (s *Session) tracebackLocked(nodeID string) Path {
	var chain []string
	seen := make(map[string]struct{})
	truncated := false
	for cur := nodeID; ; {
		if len(chain) == TraceBound {
			truncated = true
			break
		}
		n, ok := s.nodes[cur]
		if !ok {
			break
		}
		if _, dup := seen[cur]; dup {
			truncated = true
			break
		}
		seen[cur] = struct{}{}
		chain = append(chain, cur)
		if _, root := s.roots[cur]; root || n.Parent == "" {
			break
		}
		cur = n.Parent
	}
	slices.Reverse(chain)

	p := Path{Nodes: chain, Edges: []string{}, Truncated: truncated}
	if p.Nodes == nil {
		p.Nodes = []string{}
	}
	for i := 0; i+1 < len(chain); i++ {
		if id, ok := s.connectingLocked(chain[i], chain[i+1]); ok {
			p.Edges = append(p.Edges, id)
		}
	}
	return p
}

func (s *Session) connectingLocked(from, to string) (string, bool) {
	for _, kind := range []EdgeKind{EdgeLink, EdgeTag} {
		id := EdgeID(kind, from, to)
		if _, ok := s.edges[id]; ok {
			return id, true
		}
	}
	return "", false
}

// Select highlights the traceback of nodeID, reverting any previous
// highlight first. Selecting the selected node again does nothing and
// reports false.
func (s *Session) Select(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if nodeID == s.selected {
		return false
	}
	s.revertLocked()
	s.selected = nodeID
	s.path = s.tracebackLocked(nodeID)

	nodes := make([]Node, 0, len(s.path.Nodes))
	for _, id := range s.path.Nodes {
		n := s.nodes[id]
		n.Color = highlightColor(n.Level)
		nodes = append(nodes, *n)
	}
	edges := make([]Edge, 0, len(s.path.Edges))
	for _, id := range s.path.Edges {
		e := s.edges[id]
		e.Width = PathWidth
		if to, ok := s.nodes[e.To]; ok {
			e.Color = to.Color
		}
		edges = append(edges, *e)
	}
	s.updateLocked(nodes, edges)
	return true
}

// ClearSelection reverts the highlighted path.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revertLocked()
	s.selected = ""
}

// Selected returns the selected node and its highlighted path.
func (s *Session) Selected() (string, Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.path
}

func (s *Session) revertLocked() {
	if len(s.path.Nodes) == 0 {
		return
	}
	var nodes []Node
	for _, id := range s.path.Nodes {
		if n, ok := s.nodes[id]; ok {
			restyle(n)
			nodes = append(nodes, *n)
		}
	}
	var edges []Edge
	for _, id := range s.path.Edges {
		if e, ok := s.edges[id]; ok {
			restyleEdge(e, s.nodes[e.To])
			edges = append(edges, *e)
		}
	}
	s.path = Path{}
	s.updateLocked(nodes, edges)
}

func (s *Session) updateLocked(nodes []Node, edges []Edge) {
	if len(nodes) > 0 {
		s.render.UpdateNodes(nodes)
	}
	if len(edges) > 0 {
		s.render.UpdateEdges(edges)
	}
}
