package cache

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"
)

// Hooks observe memo traffic. Any field may be nil.
type Hooks struct {
	OnHit        func(ctx context.Context, op string)
	OnMiss       func(ctx context.Context, op string)
	OnStoreError func(ctx context.Context, key string, err error)
}

// Memo memoizes typed results in a Cache as JSON.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent misses on one key run
//     the compute function once; every caller decodes its own copy.
//   - Errors: compute errors are returned unchanged and never cached.
//   - Context: a shared computation runs under the first caller's context.
type Memo struct {
	cache  Cache
	keyer  Keyer
	policy Policy
	hooks  Hooks
	group  singleflight.Group
}

// MemoOption configures a Memo.
type MemoOption func(*Memo)

// WithKeyer replaces the default OperationKeyer.
func WithKeyer(k Keyer) MemoOption {
	return func(m *Memo) {
		if k != nil {
			m.keyer = k
		}
	}
}

// WithHooks installs traffic hooks.
func WithHooks(h Hooks) MemoOption {
	return func(m *Memo) { m.hooks = h }
}

// NewMemo creates a memo over c. A nil cache disables storage.
func NewMemo(c Cache, policy Policy, opts ...MemoOption) *Memo {
	m := &Memo{
		cache:  c,
		keyer:  NewOperationKeyer(),
		policy: policy,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the memo's TTL policy.
func (m *Memo) Policy() Policy {
	return m.policy
}

func (m *Memo) active() bool {
	return m != nil && m.cache != nil && m.policy.Enabled()
}

// Forget drops the entry for op and args.
func (m *Memo) Forget(ctx context.Context, op string, args ...string) error {
	if m == nil || m.cache == nil {
		return ErrNilCache
	}
	key, err := m.keyer.Key(op, args...)
	if err != nil {
		return err
	}
	return m.cache.Delete(ctx, key)
}

// Remember returns the cached value for op and args, or computes it with
// fn and stores it for ttl (0 selects the policy's document TTL).
func Remember[T any](ctx context.Context, m *Memo, op string, args []string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if !m.active() {
		return fn(ctx)
	}
	key, err := m.keyer.Key(op, args...)
	if err != nil {
		return fn(ctx)
	}

	if v, ok := decode[T](ctx, m, key); ok {
		if m.hooks.OnHit != nil {
			m.hooks.OnHit(ctx, op)
		}
		return v, nil
	}
	if m.hooks.OnMiss != nil {
		m.hooks.OnMiss(ctx, op)
	}

	raw, err, _ := m.group.Do(key, func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if err := m.cache.Set(ctx, key, data, m.policy.EffectiveTTL(ttl)); err != nil && m.hooks.OnStoreError != nil {
			m.hooks.OnStoreError(ctx, key, err)
		}
		return data, nil
	})
	var zero T
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(raw.([]byte), &out); err != nil {
		return zero, err
	}
	return out, nil
}

// Peek returns the cached value for op and args without computing it.
func Peek[T any](ctx context.Context, m *Memo, op string, args ...string) (T, bool) {
	var zero T
	if !m.active() {
		return zero, false
	}
	key, err := m.keyer.Key(op, args...)
	if err != nil {
		return zero, false
	}
	return decode[T](ctx, m, key)
}

// Store writes v for op and args with ttl (0 selects the document TTL).
func Store[T any](ctx context.Context, m *Memo, op string, args []string, v T, ttl time.Duration) error {
	if !m.active() {
		return nil
	}
	key, err := m.keyer.Key(op, args...)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.cache.Set(ctx, key, data, m.policy.EffectiveTTL(ttl))
}

func decode[T any](ctx context.Context, m *Memo, key string) (T, bool) {
	var out T
	data, ok := m.cache.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		_ = m.cache.Delete(ctx, key)
		var zero T
		return zero, false
	}
	return out, true
}
