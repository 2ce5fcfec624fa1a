package cache

// node is an intrusive recency-list element. The cache map points at it
// and the list links run from head (MRU) to tail (LRU).
type node[K comparable, V any] struct {
	key K
	val V

	prev *node[K, V]
	next *node[K, V]
}

// Key returns the node key (part of policy.Node).
func (n *node[K, V]) Key() K { return n.key }

// Value returns a pointer to the stored value (part of policy.Node).
// Only dereference it while holding the cache lock.
func (n *node[K, V]) Value() *V { return &n.val }
