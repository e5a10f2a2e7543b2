package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/wikigraph/observe"
	"github.com/jonwraymond/wikigraph/pageid"
	"github.com/jonwraymond/wikigraph/wiki"
)

// Fetcher supplies document facts to a session. lookup.Service
// implements it.
type Fetcher interface {
	Title(ctx context.Context, id string) (string, error)
	Links(ctx context.Context, id string) ([]string, error)
	Tags(ctx context.Context, id string) ([]string, error)
	Search(ctx context.Context, query string) ([]wiki.SearchHit, error)
}

// Option configures a Session.
type Option func(*Session)

// WithNavigator receives double-activate navigation.
func WithNavigator(n Navigator) Option {
	return func(s *Session) {
		if n != nil {
			s.nav = n
		}
	}
}

// WithInfoPresenter receives hover info.
func WithInfoPresenter(p InfoPresenter) Option {
	return func(s *Session) {
		if p != nil {
			s.info = p
		}
	}
}

// WithLogger logs failed fetches.
func WithLogger(l observe.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWikiURL sets the base URL used by SourceURL.
func WithWikiURL(u string) Option {
	return func(s *Session) { s.wikiURL = u }
}

// Session is one exploration: the node and edge sets, the active roots
// and the current selection.
//
// Contract:
//   - Concurrency: safe for concurrent use. Fetches run in their own
//     goroutines; their results are applied atomically under the session
//     lock, after re-checking that the session and the owning node still
//     exist.
//   - Errors: a failed fetch leaves the session unchanged and is reported
//     through the returned Task.
//   - Dedup: one node per id, first discovery fixes level and parent; one
//     edge per kind and ordered pair.
type Session struct {
	fetch   Fetcher
	render  Renderer
	nav     Navigator
	info    InfoPresenter
	logger  observe.Logger
	wikiURL string

	mu        sync.Mutex
	gen       uint64
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
	roots     map[string]struct{}
	inflight  map[string]*Task
	selected  string
	path      Path

	wg sync.WaitGroup
}

// NewSession creates an empty session rendering to r.
func NewSession(f Fetcher, r Renderer, opts ...Option) *Session {
	s := &Session{
		fetch:  f,
		render: r,
		nav:    nopPresenter{},
		info:   nopPresenter{},
		logger: observe.NopLogger(),
	}
	s.resetLocked()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) resetLocked() {
	s.gen++
	s.nodes = make(map[string]*Node)
	s.nodeOrder = nil
	s.edges = make(map[string]*Edge)
	s.edgeOrder = nil
	s.roots = make(map[string]struct{})
	s.inflight = make(map[string]*Task)
	s.selected = ""
	s.path = Path{}
}

// spawn runs fn in its own goroutine, tracked by Settle.
func (s *Session) spawn(fn func() error) *Task {
	t := newTask()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t.finish(fn())
	}()
	return t
}

// Settle waits until every task started so far, and every task they
// started, has finished.
func (s *Session) Settle(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start discards the session and begins a new one rooted at pages.
func (s *Session) Start(ctx context.Context, pages ...string) *Task {
	s.mu.Lock()
	s.resetLocked()
	s.render.Clear()
	s.mu.Unlock()

	tasks := make([]*Task, 0, len(pages))
	for _, p := range pages {
		tasks = append(tasks, s.AddRoot(ctx, p))
	}
	return join(tasks...)
}

// AddRoot makes the document id a traversal origin. A new root is placed
// at level 0; an existing page node keeps its level and parent and is
// restyled as a root. Either way its tags are loaded.
func (s *Session) AddRoot(ctx context.Context, id string) *Task {
	id = pageid.Canonical(id)
	nid := pageid.NodeID(id)
	if nid == "" {
		return doneTask(ErrInvalidPage)
	}

	s.mu.Lock()
	gen := s.gen
	if _, ok := s.roots[nid]; ok {
		s.mu.Unlock()
		return doneTask(nil)
	}
	n, exists := s.nodes[nid]
	if exists && !n.Kind.IsDocument() {
		s.mu.Unlock()
		return doneTask(fmt.Errorf("%w: %s names a tag node", ErrInvalidPage, id))
	}
	s.roots[nid] = struct{}{}

	if exists {
		n.Kind = KindRoot
		restyle(n)
		relabel(n, n.Title)
		s.render.UpdateNodes([]Node{*n})
	} else {
		n = s.addNodeLocked(Node{ID: nid, Kind: KindRoot, PageID: id, Level: 0}, pageid.LocalName(id))
		s.render.AddNodes([]Node{*n})
	}
	s.mu.Unlock()

	return join(s.resolveTitle(ctx, gen, nid, id), s.loadTags(ctx, gen, id, nid, 0))
}

// Expand materializes the neighbors of a node: the link targets of a
// page, or the search hits of a tag. Expanding an expanded node does
// nothing; expanding a node with an expansion in flight joins it.
func (s *Session) Expand(ctx context.Context, nodeID string) *Task {
	s.mu.Lock()
	n, ok := s.nodes[nodeID]
	if !ok {
		s.mu.Unlock()
		return doneTask(fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID))
	}
	if n.Expanded {
		s.mu.Unlock()
		return doneTask(nil)
	}
	if t, ok := s.inflight[nodeID]; ok {
		s.mu.Unlock()
		return t
	}
	gen, kind, pageID, tag := s.gen, n.Kind, n.PageID, n.Tag

	t := newTask()
	s.inflight[nodeID] = t
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		var err error
		if kind == KindTag {
			err = s.expandTag(ctx, gen, nodeID, tag)
		} else {
			err = s.expandPage(ctx, gen, nodeID, pageID)
		}
		s.mu.Lock()
		if s.inflight[nodeID] == t {
			delete(s.inflight, nodeID)
		}
		s.mu.Unlock()
		t.finish(err)
	}()
	return t
}

func (s *Session) expandPage(ctx context.Context, gen uint64, nodeID, pageID string) error {
	links, err := s.fetch.Links(ctx, pageID)
	if err != nil {
		s.logger.Warn(ctx, "expand failed", observe.F("node", nodeID), observe.F("error", err))
		return err
	}

	s.mu.Lock()
	parent, err := s.ownerLocked(gen, nodeID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	level := parent.Level + 1
	at := s.spawnPointLocked(parent)
	var added []Node
	var edges []Edge
	for _, link := range links {
		nid := pageid.NodeID(link)
		if nid == "" {
			continue
		}
		if _, ok := s.nodes[nid]; !ok {
			n := s.addNodeLocked(Node{ID: nid, Kind: KindPage, PageID: link, Level: level, Parent: nodeID, Position: at}, pageid.LocalName(link))
			added = append(added, *n)
		}
		if e, ok := s.addEdgeLocked(EdgeLink, nodeID, nid, level); ok {
			edges = append(edges, *e)
		}
	}
	parent.Expanded = true
	s.emitLocked(added, edges)
	s.mu.Unlock()

	for _, n := range added {
		s.resolveTitle(ctx, gen, n.ID, n.PageID)
		s.loadTags(ctx, gen, n.PageID, n.ID, n.Level)
	}
	return nil
}

func (s *Session) expandTag(ctx context.Context, gen uint64, nodeID, tag string) error {
	hits, err := s.fetch.Search(ctx, tag)
	if err != nil {
		s.logger.Warn(ctx, "tag expand failed", observe.F("node", nodeID), observe.F("error", err))
		return err
	}

	s.mu.Lock()
	owner, err := s.ownerLocked(gen, nodeID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	level := owner.Level + 1
	at := s.spawnPointLocked(owner)
	var added []Node
	var edges []Edge
	for _, hit := range hits {
		id := pageid.Canonical(hit.ID)
		nid := pageid.NodeID(id)
		if nid == "" {
			continue
		}
		if _, ok := s.nodes[nid]; !ok {
			n := s.addNodeLocked(Node{ID: nid, Kind: KindPage, PageID: id, Level: level, Parent: nodeID, Position: at}, pageid.LocalName(id))
			added = append(added, *n)
		}
		if e, ok := s.addEdgeLocked(EdgeTag, nodeID, nid, level); ok {
			edges = append(edges, *e)
		}
	}
	owner.Expanded = true
	s.emitLocked(added, edges)
	s.mu.Unlock()

	for _, n := range added {
		s.resolveTitle(ctx, gen, n.ID, n.PageID)
	}
	return nil
}

// LoadTags attaches the tags of document id to the node owner, one level
// below level.
func (s *Session) LoadTags(ctx context.Context, id, owner string, level int) *Task {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	return s.loadTags(ctx, gen, pageid.Canonical(id), owner, level)
}

func (s *Session) loadTags(ctx context.Context, gen uint64, id, owner string, level int) *Task {
	return s.spawn(func() error {
		tags, err := s.fetch.Tags(ctx, id)
		if err != nil {
			s.logger.Warn(ctx, "tag load failed", observe.F("page", id), observe.F("error", err))
			return err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		o, err := s.ownerLocked(gen, owner)
		if err != nil {
			return err
		}
		tagLevel := level + 1
		at := s.spawnPointLocked(o)
		var added []Node
		var edges []Edge
		for _, tag := range tags {
			tid := pageid.TagNodeID(tag)
			if tid == pageid.TagPrefix {
				continue
			}
			if _, ok := s.nodes[tid]; !ok {
				n := s.addNodeLocked(Node{ID: tid, Kind: KindTag, Tag: tag, Level: tagLevel, Parent: owner, Position: at}, tag)
				relabel(n, "#"+tag)
				added = append(added, *n)
			}
			if e, ok := s.addEdgeLocked(EdgeTag, owner, tid, tagLevel); ok {
				edges = append(edges, *e)
			}
		}
		s.emitLocked(added, edges)
		return nil
	})
}

// resolveTitle replaces the provisional label of nodeID once the title
// of id is known.
func (s *Session) resolveTitle(ctx context.Context, gen uint64, nodeID, id string) *Task {
	return s.spawn(func() error {
		title, err := s.fetch.Title(ctx, id)
		if err != nil {
			s.logger.Debug(ctx, "title lookup failed", observe.F("page", id), observe.F("error", err))
			return err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		n, err := s.ownerLocked(gen, nodeID)
		if err != nil {
			return err
		}
		n.Title = title
		relabel(n, title)
		s.render.UpdateNodes([]Node{*n})
		return nil
	})
}

// ownerLocked returns the node a continuation applies to, or why it must
// be dropped.
func (s *Session) ownerLocked(gen uint64, nodeID string) (*Node, error) {
	if s.gen != gen {
		return nil, ErrStale
	}
	n, ok := s.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	return n, nil
}

// addNodeLocked stores n with title as its provisional title and label.
func (s *Session) addNodeLocked(n Node, title string) *Node {
	node := &n
	node.Title = title
	restyle(node)
	relabel(node, title)
	s.nodes[node.ID] = node
	s.nodeOrder = append(s.nodeOrder, node.ID)
	return node
}

// addEdgeLocked adds the edge kind from -> to unless it exists.
func (s *Session) addEdgeLocked(kind EdgeKind, from, to string, level int) (*Edge, bool) {
	id := EdgeID(kind, from, to)
	if _, ok := s.edges[id]; ok {
		return nil, false
	}
	e := &Edge{ID: id, Kind: kind, From: from, To: to, Level: level}
	restyleEdge(e, s.nodes[to])
	s.edges[id] = e
	s.edgeOrder = append(s.edgeOrder, id)
	return e, true
}

func (s *Session) emitLocked(nodes []Node, edges []Edge) {
	if len(nodes) > 0 {
		s.render.AddNodes(nodes)
	}
	if len(edges) > 0 {
		s.render.AddEdges(edges)
	}
}

// spawnPointLocked places children of parent away from the centroid of
// the rendered nodes.
func (s *Session) spawnPointLocked(parent *Node) Point {
	positions := s.render.Positions()
	if len(positions) == 0 {
		positions = make(map[string]Point, len(s.nodes))
		for id, n := range s.nodes {
			positions[id] = n.Position
		}
	}
	at, ok := positions[parent.ID]
	if !ok {
		at = parent.Position
	}
	return SpawnPoint(at, Centroid(positions))
}

// Node returns a copy of the node id.
func (s *Session) Node(id string) (Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns every node in discovery order.
func (s *Session) Nodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, *s.nodes[id])
	}
	return out
}

// Edges returns every edge in discovery order.
func (s *Session) Edges() []Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, *s.edges[id])
	}
	return out
}

// IsRoot reports whether nodeID is an active root.
func (s *Session) IsRoot(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.roots[nodeID]
	return ok
}
