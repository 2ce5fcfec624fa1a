package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/IvanBrykalov/dimcache/internal/singleflight"
	"github.com/IvanBrykalov/dimcache/internal/util"
	"github.com/IvanBrykalov/dimcache/policy"
	"github.com/IvanBrykalov/dimcache/policy/lru"
)

var (
	// ErrInvalidCapacity is returned by New when Options.Capacity <= 0.
	ErrInvalidCapacity = errors.New("cache: capacity must be > 0")

	// ErrNoLoader is returned by GetOrLoad when neither a per-call loader
	// nor Options.Loader was supplied.
	ErrNoLoader = errors.New("cache: no loader provided")
)

// maxMapHint bounds the initial map allocation for very large capacities.
const maxMapHint = 4096

// cache is the single-lock implementation of Cache.
type cache[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu   sync.RWMutex
	m    map[K]*node[K, V]
	list recencyList[K, V]
	pol  policy.Recency[K, V]

	opt Options[K, V]

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]

	// ---- counters, readable without mu ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicUint64
	misses util.PaddedAtomicUint64
	evicts util.PaddedAtomicUint64
}

// New constructs a cache with the provided Options.
// A non-positive Capacity is a configuration error wrapping
// ErrInvalidCapacity; no cache is returned in that case.
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	if opt.Capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, opt.Capacity)
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Policy == nil {
		opt.Policy = lru.New[K, V]()
	}

	hint := opt.Capacity
	if hint > maxMapHint {
		hint = maxMapHint
	}
	c := &cache[K, V]{
		m:   make(map[K]*node[K, V], hint),
		opt: opt,
	}
	c.pol = opt.Policy.Bind(listHooks[K, V]{l: &c.list})
	return c, nil
}

// MustNew is like New but panics on invalid Options.
// Intended for package-level caches with constant capacity.
func MustNew[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	c, err := New[K, V](opt)
	if err != nil {
		panic(err)
	}
	return c
}

// ---- Cache[K,V] implementation ----

func (c *cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		c.misses.Add(1)
		c.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	c.pol.OnHit(n)
	c.hits.Add(1)
	c.opt.Metrics.Hit()
	return n.val, true
}

func (c *cache[K, V]) Set(k K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.m[k]; ok {
		// In-place update: count stays the same, recency refreshes.
		n.val = v
		c.pol.OnUpdate(n)
		return
	}
	c.insertLocked(k, v)
}

func (c *cache[K, V]) Add(k K, v V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.m[k]; ok {
		return false
	}
	c.insertLocked(k, v)
	return true
}

func (c *cache[K, V]) Has(k K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.m[k]
	return ok
}

func (c *cache[K, V]) Peek(k K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n, ok := c.m[k]; ok {
		return n.val, true
	}
	var zero V
	return zero, false
}

func (c *cache[K, V]) Delete(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.m[k]
	if !ok {
		return false
	}
	c.dropLocked(n)
	// Explicit deletes are not evictions: no OnEvict, no Evict metric.
	c.opt.Metrics.Size(c.list.len)
	return true
}

func (c *cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for n := c.list.head; n != nil; {
		next := n.next
		c.pol.OnRemove(n)
		c.evicted(n, EvictClear)
		n = next
	}
	c.list.reset()
	clear(c.m)
	c.opt.Metrics.Size(0)
}

func (c *cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.len
}

func (c *cache[K, V]) Cap() int { return c.opt.Capacity }

func (c *cache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]K, 0, c.list.len)
	for n := c.list.head; n != nil; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

func (c *cache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evicts.Load(),
	}
}

// GetOrLoad returns the value for k; on miss it loads via load (or
// Options.Loader), coalescing concurrent loads for the same key.
//
// The load runs detached from every caller's cancellation: it gets the
// first caller's ctx values but not its deadline or cancel. A caller whose
// ctx ends stops waiting and gets ctx.Err(); the load still finishes and
// a successful result is stored for everyone else. Loaders that do I/O
// must bound themselves (e.g. an http.Client timeout).
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K, load func(context.Context, K) (V, error)) (V, error) {
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if load == nil {
		load = c.opt.Loader
	}
	if load == nil {
		var zero V
		return zero, ErrNoLoader
	}

	loadCtx := context.WithoutCancel(ctx)
	return c.sf.Do(ctx, k, func() (V, error) {
		// A flight that finished just before we joined may have stored it.
		if v, ok := c.Peek(k); ok {
			return v, nil
		}
		v, err := load(loadCtx, k)
		if err != nil {
			return v, err
		}
		c.Set(k, v)
		return v, nil
	})
}

// -------------------- internals (mu held) --------------------

// insertLocked adds a key known to be absent. A full cache gives up its
// victim before the new node is linked, so Len never exceeds Capacity.
func (c *cache[K, V]) insertLocked(k K, v V) {
	for c.list.len >= c.opt.Capacity {
		victim := c.pol.Victim()
		if victim == nil {
			break
		}
		n := victim.(*node[K, V])
		c.dropLocked(n)
		c.evicted(n, EvictCapacity)
	}

	n := &node[K, V]{key: k, val: v}
	c.m[k] = n
	c.pol.OnInsert(n)
	c.opt.Metrics.Size(c.list.len)
}

// dropLocked notifies the policy, unlinks n and removes it from the index.
func (c *cache[K, V]) dropLocked(n *node[K, V]) {
	c.pol.OnRemove(n)
	c.list.remove(n)
	delete(c.m, n.key)
}

// evicted records an eviction and runs OnEvict.
func (c *cache[K, V]) evicted(n *node[K, V], reason EvictReason) {
	c.evicts.Add(1)
	c.opt.Metrics.Evict(reason)
	if cb := c.opt.OnEvict; cb != nil {
		cb(n.key, n.val, reason)
	}
}
