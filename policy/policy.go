// Package policy defines the contract between the cache and its recency
// policy. The cache owns the key->node map and the recency list; a policy
// decides where entries go in that list and which one leaves first.
package policy

// Node is the minimal view of a cache entry a policy can see.
// Value returns a pointer so a policy could tag values in place; today
// no policy writes through it.
type Node[K comparable, V any] interface {
	Key() K
	Value() *V
}

// List exposes O(1) operations on the cache's recency list.
// Front is the most recently used entry, Back the least recently used.
//
// All calls happen under the cache lock. List only links and unlinks
// nodes; the cache keeps the key index in sync itself.
type List[K comparable, V any] interface {
	// PushFront links a new node at MRU.
	PushFront(Node[K, V])
	// MoveToFront promotes a linked node to MRU.
	MoveToFront(Node[K, V])
	// Remove unlinks a node.
	Remove(Node[K, V])
	// Back returns the LRU node, or nil when the list is empty.
	Back() Node[K, V]
	// Len returns the number of linked nodes.
	Len() int
}

// Recency is a policy instance bound to one cache's list.
//
// Semantics:
//   - OnInsert links a brand new entry.
//   - OnHit and OnUpdate react to a read hit and to an overwrite.
//   - OnRemove is a notification sent before the cache unlinks a node
//     (explicit delete, eviction or clear).
//   - Victim names the entry that must leave to make room for one more,
//     or nil if there is nothing to evict. It must not unlink the node.
type Recency[K comparable, V any] interface {
	OnInsert(Node[K, V])
	OnHit(Node[K, V])
	OnUpdate(Node[K, V])
	OnRemove(Node[K, V])
	Victim() Node[K, V]
}

// Policy is a factory binding a Recency instance to a cache's list.
type Policy[K comparable, V any] interface {
	Bind(List[K, V]) Recency[K, V]
}
