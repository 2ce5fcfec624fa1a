package cache

import "github.com/IvanBrykalov/dimcache/policy"

// recencyList is the intrusive doubly linked list behind the cache.
// It is not safe for concurrent use; the cache lock guards it.
type recencyList[K comparable, V any] struct {
	head *node[K, V] // MRU
	tail *node[K, V] // LRU
	len  int
}

// pushFront links n at MRU in O(1).
func (l *recencyList[K, V]) pushFront(n *node[K, V]) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

// moveToFront promotes a linked node to MRU in O(1).
func (l *recencyList[K, V]) moveToFront(n *node[K, V]) {
	if n == l.head {
		return
	}
	l.unlink(n)
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

// remove unlinks n in O(1).
func (l *recencyList[K, V]) remove(n *node[K, V]) {
	l.unlink(n)
	l.len--
}

// unlink detaches n without touching len.
func (l *recencyList[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if l.head == n {
		l.head = n.next
	}
	if l.tail == n {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (l *recencyList[K, V]) reset() {
	l.head, l.tail, l.len = nil, nil, 0
}

// -------------------- policy hooks --------------------

// listHooks adapts the recency list to policy.List.
type listHooks[K comparable, V any] struct{ l *recencyList[K, V] }

func (h listHooks[K, V]) PushFront(x policy.Node[K, V])   { h.l.pushFront(x.(*node[K, V])) }
func (h listHooks[K, V]) MoveToFront(x policy.Node[K, V]) { h.l.moveToFront(x.(*node[K, V])) }
func (h listHooks[K, V]) Remove(x policy.Node[K, V])      { h.l.remove(x.(*node[K, V])) }
func (h listHooks[K, V]) Len() int                        { return h.l.len }

// Back returns the LRU node. A nil tail must come back as a nil
// interface, not a typed nil pointer.
func (h listHooks[K, V]) Back() policy.Node[K, V] {
	if h.l.tail == nil {
		return nil
	}
	return h.l.tail
}
