package cache

// predictiveStore is the last-chance policy: a victim cache guided by a
// first-order transition model of the access stream. Every lookup trains
// key-follows-key counts; an entry evicted from the recency policy is
// parked here only when the model has seen it follow the current access
// before, so plain streaming churn passes straight through.
//
// Critical memory pressure clears the whole store; predictions are
// cheap to rebuild and never worth keeping over live entries.
type predictiveStore struct {
	capacity int
	entries  map[string][]byte

	// transitions counts key B observed directly after key A.
	transitions map[string]map[string]uint32
	lastKey     string
	haveLast    bool

	admitted uint64
	rejected uint64
}

const (
	// maxTransitionFanout bounds the successor map per key so one hub
	// key cannot grow the model without limit.
	maxTransitionFanout = 8
)

func newPredictiveStore(capacity int) *predictiveStore {
	return &predictiveStore{
		capacity:    capacity,
		entries:     make(map[string][]byte),
		transitions: make(map[string]map[string]uint32),
	}
}

// train records that key was accessed after the previous access.
func (s *predictiveStore) train(key string) {
	if s.haveLast && s.lastKey != key {
		succ := s.transitions[s.lastKey]
		if succ == nil {
			succ = make(map[string]uint32, 2)
			s.transitions[s.lastKey] = succ
		}
		if _, ok := succ[key]; ok || len(succ) < maxTransitionFanout {
			succ[key]++
		}
	}
	s.lastKey = key
	s.haveLast = true
}

// get returns a parked entry. A hit consumes the entry; the manager
// re-admits it to the recency policy.
func (s *predictiveStore) get(key string) ([]byte, bool) {
	val, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	delete(s.entries, key)
	return val, true
}

// offer parks an evicted entry when the model predicts it will follow
// the most recent access again. Returns whether the entry was admitted.
func (s *predictiveStore) offer(key string, val []byte) bool {
	if !s.predicted(key) {
		s.rejected++
		return false
	}
	if len(s.entries) >= s.capacity {
		// The store is append-biased; dropping an arbitrary parked
		// entry keeps admission O(1).
		for k := range s.entries {
			delete(s.entries, k)
			break
		}
	}
	s.entries[key] = val
	s.admitted++
	return true
}

// predicted reports whether key has ever followed the current access.
func (s *predictiveStore) predicted(key string) bool {
	if !s.haveLast {
		return false
	}
	return s.transitions[s.lastKey][key] > 0
}

// decay halves transition counts and drops dead edges, bounding the
// model while the access mix shifts.
func (s *predictiveStore) decay() {
	for from, succ := range s.transitions {
		for to, n := range succ {
			n /= 2
			if n == 0 {
				delete(succ, to)
			} else {
				succ[to] = n
			}
		}
		if len(succ) == 0 {
			delete(s.transitions, from)
		}
	}
}

func (s *predictiveStore) len() int { return len(s.entries) }

// clear drops parked entries but keeps the trained model: after a
// pressure clear the access pattern is still valid.
func (s *predictiveStore) clear() {
	s.entries = make(map[string][]byte)
}
