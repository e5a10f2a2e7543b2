package lookup

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/jonwraymond/wikigraph/cache"
	"github.com/jonwraymond/wikigraph/pageid"
	"github.com/jonwraymond/wikigraph/wiki"
)

// TestBuildGraph_Namespace verifies nodes and edges come out sorted, pages
// first and tags after.
func TestBuildGraph_Namespace(t *testing.T) {
	f := newFixture(t, Options{}, cache.DefaultPolicy())

	g, err := f.svc.BuildGraph(context.Background(), "a")
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}

	wantNodes := []GraphNode{
		{ID: "a:child", Label: "Child", Type: NodePage, Namespace: "a"},
		{ID: "a:other", Label: "a:other", Type: NodePage, Namespace: "a"},
		{ID: "a:start", Label: "Start", Type: NodePage, Namespace: "a"},
		{ID: "tag:demo", Label: "demo", Type: NodeTag},
		{ID: "tag:guide", Label: "guide", Type: NodeTag},
	}
	if !slices.Equal(g.Nodes, wantNodes) {
		t.Errorf("Nodes = %+v\nwant %+v", g.Nodes, wantNodes)
	}
	wantEdges := []GraphEdge{
		{From: "a:child", To: "a:start", Type: EdgeLink},
		{From: "a:child", To: "tag:demo", Type: EdgeTag},
		{From: "a:start", To: "a:child", Type: EdgeLink},
		{From: "a:start", To: "a:other", Type: EdgeLink},
		{From: "a:start", To: "tag:demo", Type: EdgeTag},
		{From: "a:start", To: "tag:guide", Type: EdgeTag},
	}
	if !slices.Equal(g.Edges, wantEdges) {
		t.Errorf("Edges = %+v\nwant %+v", g.Edges, wantEdges)
	}
}

// TestBuildGraph_TagNodeIDsMatchSessions verifies tag node ids use the same
// neutral form as exploration sessions, so tags differing only in case share
// a node.
func TestBuildGraph_TagNodeIDsMatchSessions(t *testing.T) {
	src := wiki.NewMemorySource(map[string]string{
		"a:one": "====== One ======\n{{tag>Demo}}",
		"a:two": "====== Two ======\n{{tag>demo}}",
	})
	memo := cache.NewMemo(cache.NewMemoryCache(), cache.DefaultPolicy())
	svc := NewService(src, memo, Options{})

	g, err := svc.BuildGraph(context.Background(), "a")
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}

	var tags []GraphNode
	for _, n := range g.Nodes {
		if n.Type == NodeTag {
			tags = append(tags, n)
		}
	}
	if len(tags) != 1 {
		t.Fatalf("tag nodes = %+v, want one shared node", tags)
	}
	if want := pageid.TagNodeID("Demo"); tags[0].ID != want || want != "tag:demo" {
		t.Errorf("tag node id = %q, want %q", tags[0].ID, want)
	}
	wantEdges := []GraphEdge{
		{From: "a:one", To: "tag:demo", Type: EdgeTag},
		{From: "a:two", To: "tag:demo", Type: EdgeTag},
	}
	if !slices.Equal(g.Edges, wantEdges) {
		t.Errorf("Edges = %+v, want %+v", g.Edges, wantEdges)
	}
}

// TestBuildGraph_ReusesDocumentEntries verifies aggregates do not refetch
// documents whose entries are already cached.
func TestBuildGraph_ReusesDocumentEntries(t *testing.T) {
	f := newFixture(t, Options{}, cache.DefaultPolicy())
	ctx := context.Background()

	if _, err := f.svc.Title(ctx, "a:start"); err != nil {
		t.Fatalf("Title() error = %v", err)
	}
	if _, err := f.svc.Links(ctx, "a:start"); err != nil {
		t.Fatalf("Links() error = %v", err)
	}
	if _, err := f.svc.Tags(ctx, "a:start"); err != nil {
		t.Fatalf("Tags() error = %v", err)
	}
	if got := f.fetches(); got != 3 {
		t.Fatalf("fetches = %d, want 3", got)
	}

	if _, err := f.svc.BuildGraph(ctx, "a"); err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}
	if got := f.fetches(); got != 5 {
		t.Errorf("fetches = %d, want 5: only a:child and a:other are read", got)
	}

	if _, err := f.svc.BuildGraph(ctx, "a"); err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}
	if got := f.fetches(); got != 5 {
		t.Errorf("fetches = %d, want 5: the graph itself is cached", got)
	}

	tags, err := f.svc.Tags(ctx, "a:child")
	if err != nil {
		t.Fatalf("Tags() error = %v", err)
	}
	if !slices.Equal(tags, []string{"demo"}) {
		t.Errorf("Tags(a:child) = %v", tags)
	}
	if got := f.fetches(); got != 5 {
		t.Errorf("fetches = %d, want 5: graph building seeds per-document entries", got)
	}
}

func TestBuildGraph_UpstreamFailure(t *testing.T) {
	f := newFixture(t, Options{GraphConcurrency: 2}, cache.DefaultPolicy())
	boom := &wiki.UpstreamError{Op: "wiki.getPage", Err: errors.New("timeout")}
	f.src.FailWith(wiki.OpFetchRaw, boom)

	if _, err := f.svc.BuildGraph(context.Background(), ""); !errors.Is(err, boom) {
		t.Errorf("BuildGraph() error = %v, want %v", err, boom)
	}

	f.src.FailWith(wiki.OpFetchRaw, nil)
	g, err := f.svc.BuildGraph(context.Background(), "")
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}
	if len(g.Nodes) != 6 {
		t.Errorf("len(Nodes) = %d, want 6", len(g.Nodes))
	}
}

// TestBuildGraph_WholeCorpusWritesTagIndex verifies a whole-corpus graph
// answers later tag queries from the index.
func TestBuildGraph_WholeCorpusWritesTagIndex(t *testing.T) {
	f := newFixture(t, Options{}, cache.DefaultPolicy())
	ctx := context.Background()

	if _, err := f.svc.BuildGraph(ctx, ""); err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}
	fetched := f.fetches()

	res, err := f.svc.PagesByTag(ctx, "guide")
	if err != nil {
		t.Fatalf("PagesByTag() error = %v", err)
	}
	if !res.FromIndex || res.Unindexed != 0 {
		t.Errorf("PagesByTag() = %+v, want a complete index answer", res)
	}
	if want := []PageEntry{{ID: "a:start"}, {ID: "b:note"}}; !slices.Equal(res.Pages, want) {
		t.Errorf("Pages = %v, want %v", res.Pages, want)
	}
	if got := f.fetches(); got != fetched {
		t.Errorf("fetches = %d, want %d", got, fetched)
	}

	res, err = f.svc.PagesByTag(ctx, "unknown")
	if err != nil {
		t.Fatalf("PagesByTag() error = %v", err)
	}
	if res.Pages == nil || len(res.Pages) != 0 {
		t.Errorf("Pages = %#v, want an empty non-nil list", res.Pages)
	}
}

// TestTagIndex_OutlivesDocumentEntries verifies the index keeps its own,
// longer TTL.
func TestTagIndex_OutlivesDocumentEntries(t *testing.T) {
	f := newFixture(t, Options{}, cache.DefaultPolicy())
	ctx := context.Background()

	idx, err := f.svc.TagIndex(ctx)
	if err != nil {
		t.Fatalf("TagIndex() error = %v", err)
	}
	want := TagIndex{
		"demo":  {{ID: "a:child"}, {ID: "a:start"}},
		"guide": {{ID: "a:start"}, {ID: "b:note"}},
	}
	if !reflect.DeepEqual(idx, want) {
		t.Errorf("TagIndex() = %v, want %v", idx, want)
	}
	fetched := f.fetches()

	f.clock.Advance(30 * time.Minute)
	res, err := f.svc.PagesByTag(ctx, "demo")
	if err != nil {
		t.Fatalf("PagesByTag() error = %v", err)
	}
	if !res.FromIndex {
		t.Error("index should still answer after 30 minutes")
	}
	if got := f.fetches(); got != fetched {
		t.Errorf("fetches = %d, want %d", got, fetched)
	}

	f.clock.Advance(30 * time.Minute)
	res, err = f.svc.PagesByTag(ctx, "demo")
	if err != nil {
		t.Fatalf("PagesByTag() error = %v", err)
	}
	if res.FromIndex {
		t.Error("index expires after an hour")
	}
}

// TestPagesByTag_BoundedColdScan verifies the fallback scan performs a
// bounded number of cold reads and reports what it could not examine.
func TestPagesByTag_BoundedColdScan(t *testing.T) {
	f := newFixture(t, Options{MaxColdFetches: 1}, cache.DefaultPolicy())
	ctx := context.Background()

	res, err := f.svc.PagesByTag(ctx, "demo")
	if err != nil {
		t.Fatalf("PagesByTag() error = %v", err)
	}
	if res.FromIndex {
		t.Error("no index has been built")
	}
	if !slices.Equal(res.Pages, []PageEntry{{ID: "a:child"}}) || res.Unindexed != 3 {
		t.Errorf("first scan = %+v, want [a:child] with 3 unindexed", res)
	}
	if got := f.fetches(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}

	// a:other has no tags.
	res, err = f.svc.PagesByTag(ctx, "demo")
	if err != nil {
		t.Fatalf("PagesByTag() error = %v", err)
	}
	if !slices.Equal(res.Pages, []PageEntry{{ID: "a:child"}}) || res.Unindexed != 2 {
		t.Errorf("second scan = %+v, want [a:child] with 2 unindexed", res)
	}

	if _, err := f.svc.PagesByTag(ctx, "demo"); err != nil {
		t.Fatalf("PagesByTag() error = %v", err)
	}
	res, err = f.svc.PagesByTag(ctx, "demo")
	if err != nil {
		t.Fatalf("PagesByTag() error = %v", err)
	}
	if want := []PageEntry{{ID: "a:child"}, {ID: "a:start"}}; !slices.Equal(res.Pages, want) || res.Unindexed != 0 {
		t.Errorf("final scan = %+v, want %v complete", res, want)
	}
	if got := f.fetches(); got != 4 {
		t.Errorf("fetches = %d, want 4", got)
	}
}

func TestPagesByTag_SurfacesUpstreamErrors(t *testing.T) {
	f := newFixture(t, Options{}, cache.DefaultPolicy())
	boom := &wiki.UpstreamError{Op: "wiki.getAllPages", Err: errors.New("down")}
	f.src.FailWith(wiki.OpListAll, boom)

	if _, err := f.svc.PagesByTag(context.Background(), "demo"); !errors.Is(err, boom) {
		t.Errorf("PagesByTag() error = %v, want %v", err, boom)
	}
}
