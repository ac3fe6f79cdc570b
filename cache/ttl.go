package cache

import "time"

// ttlStore is the expiry policy for entries with a caller-set lifetime.
// Expired entries die lazily on access and in sweeps from the
// maintenance pass; nothing expires mid-frame on its own.
type ttlStore struct {
	capacity int
	entries  map[string]ttlEntry

	expirations uint64
}

type ttlEntry struct {
	val     []byte
	expires time.Time
}

func newTTLStore(capacity int) *ttlStore {
	return &ttlStore{entries: make(map[string]ttlEntry), capacity: capacity}
}

func (s *ttlStore) get(key string, now time.Time) ([]byte, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if now.After(e.expires) {
		delete(s.entries, key)
		s.expirations++
		return nil, false
	}
	return e.val, true
}

func (s *ttlStore) set(key string, val []byte, ttl time.Duration, now time.Time) {
	if len(s.entries) >= s.capacity {
		if _, ok := s.entries[key]; !ok {
			// At capacity the soonest-expiring entry makes room.
			s.evictSoonest()
		}
	}
	s.entries[key] = ttlEntry{val: val, expires: now.Add(ttl)}
}

func (s *ttlStore) delete(key string) {
	delete(s.entries, key)
}

// sweep removes every expired entry in one pass.
func (s *ttlStore) sweep(now time.Time) int {
	removed := 0
	for k, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, k)
			s.expirations++
			removed++
		}
	}
	return removed
}

func (s *ttlStore) evictSoonest() {
	var victim string
	var found bool
	var soonest time.Time
	for k, e := range s.entries {
		if !found || e.expires.Before(soonest) {
			victim, found = k, true
			soonest = e.expires
		}
	}
	if found {
		delete(s.entries, victim)
	}
}

// trimTo evicts soonest-expiring entries until at most n remain.
func (s *ttlStore) trimTo(n int) {
	if n < 0 {
		n = 0
	}
	for len(s.entries) > n {
		s.evictSoonest()
	}
}

func (s *ttlStore) len() int { return len(s.entries) }

func (s *ttlStore) clear() {
	s.entries = make(map[string]ttlEntry)
}
