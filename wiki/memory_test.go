package wiki

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/wikigraph/resilience"
)

func corpus() *MemorySource {
	return NewMemorySource(map[string]string{
		"docs:start":   "====== Start ======\nRead [[install]] then [[..:blog:hello]].\n{{tag>guide}}",
		"docs:install": "====== Install ======\nThe installer guide.\n{{tag>guide setup}}",
		"blog:hello":   "Hello world",
		"blog:empty":   "   ",
	})
}

// TestMemorySource_FetchRaw verifies canonical lookup and that blank
// documents count as missing.
func TestMemorySource_FetchRaw(t *testing.T) {
	src := corpus()
	ctx := context.Background()

	text, err := src.FetchRaw(ctx, "Docs:Start")
	if err != nil {
		t.Fatalf("FetchRaw() error = %v", err)
	}
	if !strings.Contains(text, "Start") {
		t.Errorf("FetchRaw() = %q", text)
	}

	if _, err := src.FetchRaw(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchRaw(nope) error = %v, want ErrNotFound", err)
	}
	if _, err := src.FetchRaw(ctx, "blog:empty"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchRaw(blog:empty) error = %v, want ErrNotFound", err)
	}

	if got := src.Calls(OpFetchRaw); got != 3 {
		t.Errorf("Calls(OpFetchRaw) = %d, want 3", got)
	}
}

func TestMemorySource_ListAll(t *testing.T) {
	src := corpus()

	pages, err := src.ListAll(context.Background(), "blog")
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	want := []PageRef{{ID: "blog:empty", Size: 3}, {ID: "blog:hello", Size: len("Hello world")}}
	if !slices.Equal(pages, want) {
		t.Errorf("ListAll(blog) = %v, want %v", pages, want)
	}
}

// TestMemorySource_Search verifies case-insensitive matching ranked by score.
func TestMemorySource_Search(t *testing.T) {
	src := corpus()

	hits, err := src.Search(context.Background(), "GUIDE")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("len(hits) = %d, want 2", len(hits))
	}
	if hits[0].ID != "docs:install" || hits[0].Title != "Install" {
		t.Errorf("top hit = %+v, want docs:install titled Install", hits[0])
	}

	none, err := src.Search(context.Background(), "  ")
	if err != nil || len(none) != 0 {
		t.Errorf("Search(blank) = %v, %v", none, err)
	}
}

func TestMemorySource_FaultInjection(t *testing.T) {
	src := corpus()
	boom := &UpstreamError{Op: "wiki.getPage", Err: errors.New("boom"), Transient: true}

	src.FailWith(OpFetchRaw, boom)
	if _, err := src.FetchRaw(context.Background(), "docs:start"); !errors.Is(err, boom) {
		t.Errorf("FetchRaw() error = %v, want %v", err, boom)
	}

	src.FailWith(OpFetchRaw, nil)
	if _, err := src.FetchRaw(context.Background(), "docs:start"); err != nil {
		t.Errorf("FetchRaw() after reset error = %v", err)
	}
}

func TestParseFixture(t *testing.T) {
	src, err := ParseFixture([]byte("pages:\n  docs:start: |\n    ====== Start ======\n    See [[install]].\n"))
	if err != nil {
		t.Fatalf("ParseFixture() error = %v", err)
	}

	text, err := src.FetchRaw(context.Background(), "docs:start")
	if err != nil {
		t.Fatalf("FetchRaw() error = %v", err)
	}
	if !strings.Contains(text, "[[install]]") {
		t.Errorf("FetchRaw() = %q", text)
	}

	if _, err := ParseFixture([]byte("pages: {}\n")); err == nil {
		t.Error("ParseFixture(empty pages) should fail")
	}
	if _, err := ParseFixture([]byte("pages: [unclosed")); err == nil {
		t.Error("ParseFixture(bad yaml) should fail")
	}
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	if err := os.WriteFile(path, []byte("pages:\n  a: hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture() error = %v", err)
	}
	pages, err := src.ListAll(context.Background(), "")
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if want := []PageRef{{ID: "a", Size: 5}}; !slices.Equal(pages, want) {
		t.Errorf("ListAll() = %v, want %v", pages, want)
	}

	if _, err := LoadFixture(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFixture(missing) should fail")
	}
}

func testExecutor() *resilience.Executor {
	return resilience.New(resilience.Config{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxFailures:   2,
		ResetTimeout:  time.Hour,
		Rate:          1000,
		Burst:         100,
		MaxConcurrent: 4,
		Timeout:       time.Second,
	}, IsTransient)
}

// TestResilient_RetriesTransient verifies transient faults are retried up to the limit.
func TestResilient_RetriesTransient(t *testing.T) {
	src := corpus()
	src.FailWith(OpFetchRaw, &UpstreamError{Op: "wiki.getPage", Err: errors.New("reset"), Transient: true})
	r := NewResilient(src, testExecutor())

	if _, err := r.FetchRaw(context.Background(), "docs:start"); err == nil {
		t.Fatal("FetchRaw() should fail after retries")
	}
	if got := src.Calls(OpFetchRaw); got != 3 {
		t.Errorf("Calls(OpFetchRaw) = %d, want 3", got)
	}
}

// TestResilient_NotFoundPassesThrough verifies missing documents are neither
// retried nor counted against the breaker.
func TestResilient_NotFoundPassesThrough(t *testing.T) {
	src := corpus()
	r := NewResilient(src, testExecutor())

	for i := 0; i < 5; i++ {
		if _, err := r.FetchRaw(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("FetchRaw(missing) error = %v, want ErrNotFound", err)
		}
	}
	if got := src.Calls(OpFetchRaw); got != 5 {
		t.Errorf("Calls(OpFetchRaw) = %d, want 5", got)
	}
	if got := r.CircuitBreaker().State(); got != resilience.StateClosed {
		t.Errorf("breaker state = %v, want closed", got)
	}
}

// TestResilient_OpenCircuitIsUpstreamError verifies breaker rejections surface as upstream faults.
func TestResilient_OpenCircuitIsUpstreamError(t *testing.T) {
	src := corpus()
	src.FailWith(OpListAll, &UpstreamError{Op: "wiki.getAllPages", Err: errors.New("down"), Transient: true})
	r := NewResilient(src, testExecutor())
	ctx := context.Background()

	_, _ = r.ListAll(ctx, "")
	_, _ = r.ListAll(ctx, "")
	if got := r.CircuitBreaker().State(); got != resilience.StateOpen {
		t.Fatalf("breaker state = %v, want open", got)
	}

	calls := src.Calls(OpListAll)
	_, err := r.ListAll(ctx, "")
	if err == nil {
		t.Fatal("ListAll() should fail with an open circuit")
	}
	if !IsUpstream(err) || !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("ListAll() error = %v, want an upstream ErrCircuitOpen", err)
	}
	if got := src.Calls(OpListAll); got != calls {
		t.Errorf("open circuit reached the source: %d calls, want %d", got, calls)
	}
}

func TestResilient_SearchAndAuthenticate(t *testing.T) {
	r := NewResilient(corpus(), nil)
	ctx := context.Background()

	if err := r.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	hits, err := r.Search(ctx, "hello")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("len(hits) = %d, want 2", len(hits))
	}
	if r.CircuitBreaker() != nil {
		t.Error("CircuitBreaker() should be nil without an executor")
	}
}
