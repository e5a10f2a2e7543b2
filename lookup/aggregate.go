package lookup

import (
	"context"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/wikigraph/cache"
	"github.com/jonwraymond/wikigraph/observe"
	"github.com/jonwraymond/wikigraph/pageid"
	"github.com/jonwraymond/wikigraph/wiki"
)

// BuildGraph returns every document of ns with its links and tags as one
// node/edge set. Page nodes come in corpus order, tag nodes follow in
// order of first use. Building the whole corpus ("") also refreshes the
// tag index.
func (s *Service) BuildGraph(ctx context.Context, ns string) (Graph, error) {
	ns = pageid.Canonical(ns)
	return observe.Run(ctx, s.mw, meta(OpGraph, ns), func(ctx context.Context) (Graph, error) {
		return cache.Remember(ctx, s.memo, OpGraph, []string{ns}, 0, func(ctx context.Context) (Graph, error) {
			all, err := s.scope(ctx, ns)
			if err != nil {
				return Graph{}, err
			}
			docs, err := s.scan(ctx, all)
			if err != nil {
				return Graph{}, err
			}
			if ns == "" {
				if err := cache.Store(ctx, s.memo, OpTagIndex, nil, indexOf(docs), s.indexTTL()); err != nil {
					s.mw.Logger().Warn(ctx, "tag index write failed", observe.F("error", err))
				}
			}
			return assemble(docs), nil
		})
	})
}

// TagIndex returns the aggregate tag index of the whole corpus, building
// it when it is absent or expired.
func (s *Service) TagIndex(ctx context.Context) (TagIndex, error) {
	return observe.Run(ctx, s.mw, meta(OpTagIndex, ""), func(ctx context.Context) (TagIndex, error) {
		return cache.Remember(ctx, s.memo, OpTagIndex, nil, s.indexTTL(), func(ctx context.Context) (TagIndex, error) {
			all, err := s.allPagesFull(ctx)
			if err != nil {
				return nil, err
			}
			docs, err := s.scan(ctx, all)
			if err != nil {
				return nil, err
			}
			return indexOf(docs), nil
		})
	})
}

// PagesByTag returns the documents tagged tag. A cached tag index answers
// directly. Otherwise the corpus is scanned using cached per-document tags
// and at most MaxColdFetches uncached reads; documents beyond that bound
// are counted in Unindexed and picked up by later calls.
func (s *Service) PagesByTag(ctx context.Context, tag string) (TagPages, error) {
	tag = strings.TrimSpace(tag)
	if err := required("tag", tag); err != nil {
		return TagPages{}, err
	}
	return observe.Run(ctx, s.mw, meta(OpTagPages, tag), func(ctx context.Context) (TagPages, error) {
		if idx, ok := cache.Peek[TagIndex](ctx, s.memo, OpTagIndex); ok {
			return TagPages{Pages: nonNil(idx[tag]), FromIndex: true}, nil
		}

		all, err := s.allPagesFull(ctx)
		if err != nil {
			return TagPages{}, err
		}
		out := TagPages{Pages: []PageEntry{}}
		var cold []string
		for _, p := range all {
			tags, ok := cache.Peek[[]string](ctx, s.memo, OpTags, p.ID)
			if !ok {
				cold = append(cold, p.ID)
				continue
			}
			if slices.Contains(tags, tag) {
				out.Pages = append(out.Pages, PageEntry{ID: p.ID})
			}
		}

		for i, id := range cold {
			if i == s.opts.MaxColdFetches {
				out.Unindexed = len(cold) - i
				break
			}
			tags, err := s.tags(ctx, id)
			if err != nil {
				return TagPages{}, err
			}
			if slices.Contains(tags, tag) {
				out.Pages = append(out.Pages, PageEntry{ID: id})
			}
		}
		return out, nil
	})
}

func (s *Service) indexTTL() time.Duration {
	if s.memo == nil {
		return 0
	}
	return s.memo.Policy().IndexTTL
}

// scope lists the documents of ns without the page cap.
func (s *Service) scope(ctx context.Context, ns string) ([]wiki.PageRef, error) {
	if ns == "" {
		return s.allPagesFull(ctx)
	}
	return s.src.ListAll(ctx, ns)
}

// scan extracts every document of pages with at most GraphConcurrency
// reads in flight. The first failure cancels the rest.
func (s *Service) scan(ctx context.Context, pages []wiki.PageRef) ([]facts, error) {
	docs := make([]facts, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.GraphConcurrency)
	for i, p := range pages {
		g.Go(func() error {
			f, err := s.facts(gctx, pageid.Canonical(p.ID))
			if err != nil {
				return err
			}
			docs[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func assemble(docs []facts) Graph {
	g := Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	var tagNodes []GraphNode
	seenTag := make(map[string]struct{})
	seenEdge := make(map[GraphEdge]struct{})
	addEdge := func(e GraphEdge) {
		if _, dup := seenEdge[e]; dup {
			return
		}
		seenEdge[e] = struct{}{}
		g.Edges = append(g.Edges, e)
	}

	for _, d := range docs {
		g.Nodes = append(g.Nodes, GraphNode{
			ID:        d.id,
			Label:     d.title,
			Type:      NodePage,
			Namespace: pageid.Namespace(d.id),
		})
		for _, link := range d.links {
			addEdge(GraphEdge{From: d.id, To: link, Type: EdgeLink})
		}
		for _, tag := range d.tags {
			tagID := pageid.TagNodeID(tag)
			if _, ok := seenTag[tagID]; !ok {
				seenTag[tagID] = struct{}{}
				tagNodes = append(tagNodes, GraphNode{ID: tagID, Label: tag, Type: NodeTag})
			}
			addEdge(GraphEdge{From: d.id, To: tagID, Type: EdgeTag})
		}
	}
	g.Nodes = append(g.Nodes, tagNodes...)
	return g
}

func indexOf(docs []facts) TagIndex {
	idx := make(TagIndex)
	for _, d := range docs {
		for _, tag := range d.tags {
			idx[tag] = append(idx[tag], PageEntry{ID: d.id})
		}
	}
	return idx
}
