package wiki

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jonwraymond/wikigraph/markup"
	"github.com/jonwraymond/wikigraph/pageid"
)

// Operation names used for call counting and fault injection.
const (
	OpAuthenticate = "authenticate"
	OpFetchRaw     = "fetch"
	OpListAll      = "list"
	OpSearch       = "search"
)

// MemorySource serves a corpus held in memory.
type MemorySource struct {
	mu     sync.RWMutex
	pages  map[string]string
	calls  map[string]int
	faults map[string]error
}

// NewMemorySource creates a source over pages (id -> raw markup).
func NewMemorySource(pages map[string]string) *MemorySource {
	m := &MemorySource{
		pages:  make(map[string]string, len(pages)),
		calls:  make(map[string]int),
		faults: make(map[string]error),
	}
	for id, text := range pages {
		m.pages[pageid.Canonical(id)] = text
	}
	return m
}

// Put adds or replaces a document.
func (m *MemorySource) Put(id, text string) {
	m.mu.Lock()
	m.pages[pageid.Canonical(id)] = text
	m.mu.Unlock()
}

// FailWith makes every later call of op return err. A nil err clears it.
func (m *MemorySource) FailWith(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// Calls returns how many times op was invoked.
func (m *MemorySource) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

func (m *MemorySource) enter(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	return m.faults[op]
}

// Authenticate always succeeds unless a fault is injected.
func (m *MemorySource) Authenticate(ctx context.Context) error {
	return m.enter(ctx, OpAuthenticate)
}

// FetchRaw returns the stored markup of id.
func (m *MemorySource) FetchRaw(ctx context.Context, id string) (string, error) {
	if err := m.enter(ctx, OpFetchRaw); err != nil {
		return "", err
	}
	m.mu.RLock()
	text, ok := m.pages[pageid.Canonical(id)]
	m.mu.RUnlock()
	if !ok || strings.TrimSpace(text) == "" {
		return "", ErrNotFound
	}
	return text, nil
}

// ListAll returns the ids in ns, sorted.
func (m *MemorySource) ListAll(ctx context.Context, ns string) ([]PageRef, error) {
	if err := m.enter(ctx, OpListAll); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PageRef, 0, len(m.pages))
	for id, text := range m.pages {
		if pageid.InNamespace(id, ns) {
			out = append(out, PageRef{ID: id, Size: len(text)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Search matches query case-insensitively against id and text. Score is
// the number of occurrences in the text.
func (m *MemorySource) Search(ctx context.Context, query string) ([]SearchHit, error) {
	if err := m.enter(ctx, OpSearch); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return []SearchHit{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	hits := []SearchHit{}
	for id, text := range m.pages {
		score := strings.Count(strings.ToLower(text), needle)
		if score == 0 && !strings.Contains(id, needle) {
			continue
		}
		hits = append(hits, SearchHit{
			ID:      id,
			Title:   markup.ExtractTitle(text, id),
			Score:   score,
			Snippet: markup.Excerpt(text, 120),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	return hits, nil
}

var _ DocumentSource = (*MemorySource)(nil)
