package cache

import (
	"context"

	"github.com/IvanBrykalov/dimcache/policy"
)

// EvictReason explains why the cache dropped an entry on its own.
type EvictReason int

const (
	// EvictCapacity: removed to make room for a new key.
	EvictCapacity EvictReason = iota
	// EvictClear: removed by Clear.
	EvictClear
)

// String returns a stable lowercase name, suitable as a metric label.
func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// Options configures the cache. Capacity is required; the rest have
// defaults applied in New():
//   - nil Policy  => LRU
//   - nil Metrics => NoopMetrics
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit. Must be > 0.
	Capacity int

	// Policy decides recency placement and victims; nil => LRU.
	Policy policy.Policy[K, V]

	// Loader is the default loader for GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called for every entry the cache drops on its own
	// (capacity or Clear), under the cache lock. It must not call back
	// into the cache. Delete does not trigger it.
	OnEvict func(k K, v V, reason EvictReason)

	Metrics Metrics
}
