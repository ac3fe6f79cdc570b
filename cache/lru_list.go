package cache

// lruNode is one element of the intrusive recency list.
type lruNode[K any] struct {
	key  K
	prev *lruNode[K]
	next *lruNode[K]
}

// lruList is a doubly-linked recency list. Front is most recently used,
// back is the eviction candidate. Not safe for concurrent use; callers
// hold their own locks.
type lruList[K any] struct {
	front *lruNode[K]
	back  *lruNode[K]
	len   int
}

func newLRUList[K any]() *lruList[K] {
	return &lruList[K]{}
}

// PushFront adds a new key at the front and returns its node.
func (l *lruList[K]) PushFront(key K) *lruNode[K] {
	n := &lruNode[K]{key: key}
	n.next = l.front
	if l.front != nil {
		l.front.prev = n
	}
	l.front = n
	if l.back == nil {
		l.back = n
	}
	l.len++
	return n
}

// MoveToFront marks a node as most recently used.
func (l *lruList[K]) MoveToFront(n *lruNode[K]) {
	if n == l.front {
		return
	}
	l.unlink(n)
	n.prev = nil
	n.next = l.front
	if l.front != nil {
		l.front.prev = n
	}
	l.front = n
	if l.back == nil {
		l.back = n
	}
	l.len++
}

// RemoveOldest unlinks and returns the back key.
func (l *lruList[K]) RemoveOldest() (K, bool) {
	if l.back == nil {
		var zero K
		return zero, false
	}
	n := l.back
	l.unlink(n)
	return n.key, true
}

// Remove unlinks a node.
func (l *lruList[K]) Remove(n *lruNode[K]) {
	l.unlink(n)
}

// Len returns the number of nodes.
func (l *lruList[K]) Len() int { return l.len }

// Clear drops every node.
func (l *lruList[K]) Clear() {
	l.front = nil
	l.back = nil
	l.len = 0
}

func (l *lruList[K]) unlink(n *lruNode[K]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else if l.front == n {
		l.front = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if l.back == n {
		l.back = n.prev
	}
	n.prev = nil
	n.next = nil
	l.len--
}
