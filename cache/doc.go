// Package cache provides a generic, fixed-capacity in-memory cache with
// least-recently-used eviction.
//
// Design
//
//   - Storage: a map[K]*node for lookups and an intrusive MRU↔LRU doubly
//     linked list for recency. Get, Set, Add, Has, Peek and Delete are O(1)
//     expected.
//
//   - Recency: a strict total order. Every hit (Get) and every write (Set,
//     successful Add) moves the key to the front. Misses, Has and Peek
//     leave the order alone, so callers can probe without side effects.
//
//   - Capacity: Len never exceeds Options.Capacity. Inserting a new key
//     into a full cache evicts the least recently used entry first.
//     A non-positive capacity is rejected by New with ErrInvalidCapacity.
//
//   - Concurrency: one RWMutex guards the map and the list. Each method is
//     a single critical section, so a Get/Set pair from one caller can never
//     observe half of another caller's update.
//
//   - Policies: placement and victim choice go through the policy package.
//     LRU (policy/lru) is the default and the only policy shipped.
//
//   - GetOrLoad: coalesces concurrent loads for the same key. Only successful
//     loads are stored, so a failed load is retried by the next caller.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     NoopMetrics is the default; metrics/prom exports them to Prometheus.
//
// Basic usage
//
//	c, err := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	if err != nil {
//	    return err
//	}
//	c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Delete("a")
//
// With GetOrLoad
//
//	v, err := c.GetOrLoad(ctx, "key", func(ctx context.Context, k string) ([]byte, error) {
//	    return fetch(ctx, k)
//	})
//
// Exporting metrics
//
//	m := prom.New(nil, "dimcache", "demo", nil) // implements Metrics
//	c := cache.MustNew[string, []byte](cache.Options[string, []byte]{
//	    Capacity: 10_000,
//	    Metrics:  m,
//	})
package cache
