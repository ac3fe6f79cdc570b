package cache

// lruStore is the recency policy: every Set lands here, hits refresh
// recency, and overflow evicts from the back. The manager forwards
// evicted entries to the predictive policy when the access history says
// they are likely to return.
type lruStore struct {
	capacity int
	entries  map[string]*lruStoreEntry
	order    *lruList[string]

	// onEvict, when set, observes capacity evictions (not deletes).
	onEvict func(key string, val []byte)

	evictions uint64
}

type lruStoreEntry struct {
	val  []byte
	node *lruNode[string]
}

func newLRUStore(capacity int) *lruStore {
	return &lruStore{
		capacity: capacity,
		entries:  make(map[string]*lruStoreEntry),
		order:    newLRUList[string](),
	}
}

func (s *lruStore) get(key string) ([]byte, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	s.order.MoveToFront(e.node)
	return e.val, true
}

func (s *lruStore) set(key string, val []byte) {
	if e, ok := s.entries[key]; ok {
		e.val = val
		s.order.MoveToFront(e.node)
		return
	}
	for s.order.Len() >= s.capacity {
		if !s.evictOldest() {
			break
		}
	}
	s.entries[key] = &lruStoreEntry{val: val, node: s.order.PushFront(key)}
}

func (s *lruStore) delete(key string) {
	if e, ok := s.entries[key]; ok {
		s.order.Remove(e.node)
		delete(s.entries, key)
	}
}

// trimTo evicts from the back until at most n entries remain.
func (s *lruStore) trimTo(n int) {
	if n < 0 {
		n = 0
	}
	for s.order.Len() > n {
		if !s.evictOldest() {
			break
		}
	}
}

// shrinkTo trims to at most n entries and holds the capacity there, so
// a burst of sets between maintenance passes cannot refill the store to
// its full size. Maintenance restores the capacity once pressure eases.
func (s *lruStore) shrinkTo(n int) {
	if n < 1 {
		n = 1
	}
	s.trimTo(n)
	s.capacity = n
}

func (s *lruStore) evictOldest() bool {
	key, ok := s.order.RemoveOldest()
	if !ok {
		return false
	}
	e := s.entries[key]
	delete(s.entries, key)
	s.evictions++
	if s.onEvict != nil && e != nil {
		s.onEvict(key, e.val)
	}
	return true
}

func (s *lruStore) len() int { return len(s.entries) }

func (s *lruStore) clear() {
	s.entries = make(map[string]*lruStoreEntry)
	s.order.Clear()
}
