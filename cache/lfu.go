package cache

// lfuStore is the frequency policy. Only high-priority entries land
// here; eviction removes the lowest access count, breaking ties by
// insertion order so the older of two equally-used entries goes first.
// Maintenance halves every count, so ancient popularity decays instead
// of pinning an entry forever.
type lfuStore struct {
	capacity int
	entries  map[string]*lfuEntry
	nextSeq  uint64

	evictions uint64
}

type lfuEntry struct {
	val  []byte
	freq uint64
	seq  uint64 // insertion order, the eviction tiebreak
}

func newLFUStore(capacity int) *lfuStore {
	return &lfuStore{entries: make(map[string]*lfuEntry), capacity: capacity}
}

func (s *lfuStore) get(key string) ([]byte, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	e.freq++
	return e.val, true
}

func (s *lfuStore) set(key string, val []byte) {
	if e, ok := s.entries[key]; ok {
		e.val = val
		e.freq++
		return
	}
	for len(s.entries) >= s.capacity {
		if !s.evictColdest() {
			break
		}
	}
	s.entries[key] = &lfuEntry{val: val, freq: 1, seq: s.nextSeq}
	s.nextSeq++
}

func (s *lfuStore) delete(key string) {
	delete(s.entries, key)
}

// evictColdest removes the entry with the lowest frequency; equal
// frequencies evict the earliest-inserted entry. Linear scan: the store
// holds at most a few hundred high-priority entries.
func (s *lfuStore) evictColdest() bool {
	var victim string
	var found bool
	var minFreq, minSeq uint64
	for k, e := range s.entries {
		if !found || e.freq < minFreq || (e.freq == minFreq && e.seq < minSeq) {
			victim, found = k, true
			minFreq, minSeq = e.freq, e.seq
		}
	}
	if !found {
		return false
	}
	delete(s.entries, victim)
	s.evictions++
	return true
}

// decay halves every frequency. Runs from the maintenance pass so the
// frequency policy ages on its own clock, independent of recency.
func (s *lfuStore) decay() {
	for _, e := range s.entries {
		e.freq /= 2
	}
}

// shrinkTo trims coldest-first to at most n entries and holds the
// capacity there until maintenance restores it.
func (s *lfuStore) shrinkTo(n int) {
	if n < 1 {
		n = 1
	}
	s.trimTo(n)
	s.capacity = n
}

// trimTo evicts coldest-first until at most n entries remain.
func (s *lfuStore) trimTo(n int) {
	if n < 0 {
		n = 0
	}
	for len(s.entries) > n {
		if !s.evictColdest() {
			break
		}
	}
}

func (s *lfuStore) len() int { return len(s.entries) }

func (s *lfuStore) clear() {
	s.entries = make(map[string]*lfuEntry)
}
