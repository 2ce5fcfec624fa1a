// Package lru implements the least-recently-used recency policy.
package lru

import "github.com/IvanBrykalov/dimcache/policy"

// lru keeps the list in strict access order: every hit, overwrite and
// insert moves the entry to the front, and the back is always the victim.
type lru[K comparable, V any] struct {
	l policy.List[K, V]
}

type lruPolicy[K comparable, V any] struct{}

// New returns the LRU policy factory.
func New[K comparable, V any]() policy.Policy[K, V] { return lruPolicy[K, V]{} }

// Bind implements policy.Policy.
func (lruPolicy[K, V]) Bind(l policy.List[K, V]) policy.Recency[K, V] {
	return &lru[K, V]{l: l}
}

// OnInsert links the new entry at MRU.
func (p *lru[K, V]) OnInsert(n policy.Node[K, V]) { p.l.PushFront(n) }

// OnHit promotes the entry to MRU.
func (p *lru[K, V]) OnHit(n policy.Node[K, V]) { p.l.MoveToFront(n) }

// OnUpdate promotes the entry to MRU; an overwrite counts as a use.
func (p *lru[K, V]) OnUpdate(n policy.Node[K, V]) { p.l.MoveToFront(n) }

// OnRemove is a no-op: LRU keeps no state outside the list.
func (p *lru[K, V]) OnRemove(_ policy.Node[K, V]) {}

// Victim returns the LRU entry.
func (p *lru[K, V]) Victim() policy.Node[K, V] { return p.l.Back() }
