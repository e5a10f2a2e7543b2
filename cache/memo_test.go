package cache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestRemember_HitWithinTTL verifies a value computed at T is returned
// unchanged for reads before T+TTL without recomputing.
func TestRemember_HitWithinTTL(t *testing.T) {
	clock := newFakeClock()
	memo := NewMemo(NewMemoryCache(WithClock(clock.Now)), DefaultPolicy())
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"a:child", "b:other"}, nil
	}

	first, err := Remember(ctx, memo, "links", []string{"a:start"}, 0, fetch)
	if err != nil {
		t.Fatalf("Remember() error = %v", err)
	}
	clock.Advance(4 * time.Minute)
	second, err := Remember(ctx, memo, "links", []string{"a:start"}, 0, fetch)
	if err != nil {
		t.Fatalf("Remember() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached value %v differs from original %v", second, first)
	}
}

// TestRemember_RefetchAfterTTL verifies a read at T' - T >= TTL recomputes.
func TestRemember_RefetchAfterTTL(t *testing.T) {
	clock := newFakeClock()
	memo := NewMemo(NewMemoryCache(WithClock(clock.Now)), DefaultPolicy())
	ctx := context.Background()

	version := 0
	fetch := func(context.Context) (int, error) {
		version++
		return version, nil
	}

	v1, _ := Remember(ctx, memo, "pagename", []string{"a"}, 0, fetch)
	clock.Advance(5 * time.Minute)
	v2, _ := Remember(ctx, memo, "pagename", []string{"a"}, 0, fetch)

	if v1 != 1 || v2 != 2 {
		t.Errorf("got versions %d, %d; want 1, 2", v1, v2)
	}
}

func TestRemember_IndexTTL(t *testing.T) {
	clock := newFakeClock()
	memo := NewMemo(NewMemoryCache(WithClock(clock.Now)), DefaultPolicy())
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (map[string][]string, error) {
		calls++
		return map[string][]string{"demo": {"a:start"}}, nil
	}

	_, _ = Remember(ctx, memo, "tagindex", nil, memo.Policy().IndexTTL, fetch)
	clock.Advance(30 * time.Minute)
	_, _ = Remember(ctx, memo, "tagindex", nil, memo.Policy().IndexTTL, fetch)

	if calls != 1 {
		t.Errorf("index fetched %d times within its TTL, want 1", calls)
	}
}

// TestRemember_ErrorsNotCached verifies failures are surfaced unchanged and retried next call.
func TestRemember_ErrorsNotCached(t *testing.T) {
	memo := NewMemo(NewMemoryCache(), DefaultPolicy())
	ctx := context.Background()
	upstream := errors.New("connection refused")

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", upstream
		}
		return "Title", nil
	}

	if _, err := Remember(ctx, memo, "pagename", []string{"x"}, 0, fetch); !errors.Is(err, upstream) {
		t.Fatalf("first call error = %v, want %v", err, upstream)
	}
	got, err := Remember(ctx, memo, "pagename", []string{"x"}, 0, fetch)
	if err != nil || got != "Title" {
		t.Fatalf("second call = %q, %v; want Title, nil", got, err)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
}

func TestRemember_DisabledPolicy(t *testing.T) {
	memo := NewMemo(NewMemoryCache(), NoCachePolicy())
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}
	_, _ = Remember(ctx, memo, "links", []string{"a"}, 0, fetch)
	_, _ = Remember(ctx, memo, "links", []string{"a"}, 0, fetch)

	if calls != 2 {
		t.Errorf("disabled policy should not cache, calls = %d", calls)
	}
}

func TestRemember_CollapsesConcurrentMisses(t *testing.T) {
	memo := NewMemo(NewMemoryCache(), DefaultPolicy())
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"t1"}, nil
	}

	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Remember(ctx, memo, "tags", []string{"a"}, 0, fetch)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n < 1 || n > 8 {
		t.Fatalf("unexpected fetch count %d", n)
	}
	for i, r := range results {
		if !reflect.DeepEqual(r, []string{"t1"}) {
			t.Errorf("result[%d] = %v", i, r)
		}
	}
	results[0][0] = "mutated"
	if results[1][0] != "t1" {
		t.Error("callers must receive independent copies")
	}
}

func TestPeekAndStore(t *testing.T) {
	memo := NewMemo(NewMemoryCache(), DefaultPolicy())
	ctx := context.Background()

	if _, ok := Peek[[]string](ctx, memo, "tags", "a"); ok {
		t.Fatal("Peek on empty memo should miss")
	}
	if err := Store(ctx, memo, "tags", []string{"a"}, []string{"demo"}, 0); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	got, ok := Peek[[]string](ctx, memo, "tags", "a")
	if !ok || !reflect.DeepEqual(got, []string{"demo"}) {
		t.Errorf("Peek() = %v, %v; want [demo], true", got, ok)
	}

	if err := memo.Forget(ctx, "tags", "a"); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	if _, ok := Peek[[]string](ctx, memo, "tags", "a"); ok {
		t.Error("Peek after Forget should miss")
	}
}

func TestMemo_Hooks(t *testing.T) {
	var hits, misses int
	memo := NewMemo(NewMemoryCache(), DefaultPolicy(), WithHooks(Hooks{
		OnHit:  func(context.Context, string) { hits++ },
		OnMiss: func(context.Context, string) { misses++ },
	}))
	ctx := context.Background()
	fetch := func(context.Context) (bool, error) { return true, nil }

	_, _ = Remember(ctx, memo, "op", []string{"k"}, 0, fetch)
	_, _ = Remember(ctx, memo, "op", []string{"k"}, 0, fetch)
	_, _ = Remember(ctx, memo, "op", []string{"k"}, 0, fetch)

	if hits != 2 || misses != 1 {
		t.Errorf("hits=%d misses=%d, want 2 and 1", hits, misses)
	}
}

func TestDecode_CorruptEntryIsMiss(t *testing.T) {
	c := NewMemoryCache()
	memo := NewMemo(c, DefaultPolicy())
	ctx := context.Background()

	_ = c.Set(ctx, "links:a", []byte("{not json"), time.Minute)
	got, err := Remember(ctx, memo, "links", []string{"a"}, 0, func(context.Context) ([]string, error) {
		return []string{"fresh"}, nil
	})
	if err != nil || !reflect.DeepEqual(got, []string{"fresh"}) {
		t.Errorf("Remember() = %v, %v; want [fresh], nil", got, err)
	}
}
