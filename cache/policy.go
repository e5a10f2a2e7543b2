package cache

import "time"

// Policy holds the TTLs used by extraction call sites.
type Policy struct {
	// DocumentTTL applies to per-document lookups (title, links, tags, ...).
	// Zero disables caching.
	DocumentTTL time.Duration

	// IndexTTL applies to aggregate entries such as the tag index.
	IndexTTL time.Duration

	// MaxTTL clamps every TTL. Zero means no clamp.
	MaxTTL time.Duration
}

// DefaultPolicy returns 5 minute document entries and a 1 hour tag index.
func DefaultPolicy() Policy {
	return Policy{
		DocumentTTL: 5 * time.Minute,
		IndexTTL:    time.Hour,
		MaxTTL:      24 * time.Hour,
	}
}

// NoCachePolicy disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// Enabled reports whether anything is cached under this policy.
func (p Policy) Enabled() bool {
	return p.DocumentTTL > 0
}

// EffectiveTTL returns override (or DocumentTTL when override <= 0),
// clamped to MaxTTL. A disabled policy always returns 0.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	if !p.Enabled() {
		return 0
	}
	ttl := override
	if ttl <= 0 {
		ttl = p.DocumentTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
