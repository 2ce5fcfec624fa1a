package cache

import "context"

// Cache is a fixed-capacity key/value store with least-recently-used
// eviction. All methods are safe for concurrent use; each one runs as a
// single critical section, so recency and capacity bookkeeping never
// interleave between callers.
//
// Every operation is O(1) expected except Keys and Clear, which are O(n).
type Cache[K comparable, V any] interface {
	// Get returns the value for k and whether it was present.
	// A hit promotes k to most recently used; a miss changes nothing.
	Get(k K) (V, bool)

	// Set inserts or overwrites k→v and makes k most recently used.
	// Inserting a new key into a full cache first evicts the least
	// recently used entry.
	Set(k K, v V)

	// Add inserts k→v only if k is absent. An existing entry is left
	// untouched (value and recency) and false is returned.
	Add(k K, v V) bool

	// Has reports whether k is present without touching recency.
	Has(k K) bool

	// Peek returns the value for k without touching recency or stats.
	Peek(k K) (V, bool)

	// Delete removes k and reports whether it was present.
	// Other entries keep their relative order.
	Delete(k K) bool

	// Clear removes every entry. Capacity is retained.
	Clear()

	// Len returns the number of resident entries, always in [0, Cap()].
	Len() int

	// Cap returns the configured capacity.
	Cap() int

	// Keys returns a snapshot of resident keys, most recently used first.
	Keys() []K

	// Stats returns cumulative hit/miss/eviction counters.
	Stats() Stats

	// GetOrLoad returns the value for k, calling load on a miss.
	// A nil load falls back to Options.Loader; with neither, ErrNoLoader
	// is returned. Concurrent loads of the same key are coalesced into one
	// load that no caller's cancellation aborts; a cancelled caller only
	// stops waiting. Only successful loads are stored.
	GetOrLoad(ctx context.Context, k K, load func(context.Context, K) (V, error)) (V, error)
}

// Stats is a point-in-time copy of the cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRatio returns Hits/(Hits+Misses), or 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
