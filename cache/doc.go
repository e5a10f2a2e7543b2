// Package cache memoizes extraction results behind a time-to-live store.
//
// A Cache stores opaque byte values under "operation:argument" keys. Expiry
// is checked lazily on read; there is no background sweep. Two backends are
// provided: MemoryCache (process local) and BadgerCache (persistent, using
// badger's native entry TTL).
//
// Memo layers typed JSON values on top of a Cache. Errors are never cached,
// and concurrent misses on the same key share a single computation.
//
//	memo := cache.NewMemo(cache.NewMemoryCache(), cache.DefaultPolicy())
//	links, err := cache.Remember(ctx, memo, "links", []string{id}, 0,
//	    func(ctx context.Context) ([]string, error) { return fetchLinks(ctx, id) })
package cache
