package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestManager(cfg Config) (*Manager, *time.Time) {
	m := NewManager(cfg)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestSetGetRoundTrip(t *testing.T) {
	m, _ := newTestManager(DefaultConfig())

	m.Set("k", []byte("value"), SetOptions{})
	got, ok := m.Get("k")
	if !ok || !bytes.Equal(got, []byte("value")) {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if st := m.Stats(); st.HitsLRU != 1 {
		t.Errorf("HitsLRU = %d, want 1", st.HitsLRU)
	}
}

func TestGetProbesLFUAfterLRUEviction(t *testing.T) {
	m, _ := newTestManager(Config{LRUCapacity: 2, LFUCapacity: 8})

	m.Set("hot", []byte("hot"), SetOptions{Priority: PriorityHigh})
	m.Set("a", []byte("a"), SetOptions{})
	m.Set("b", []byte("b"), SetOptions{}) // evicts "hot" from recency

	got, ok := m.Get("hot")
	if !ok || !bytes.Equal(got, []byte("hot")) {
		t.Fatalf("Get(hot) = %q, %v", got, ok)
	}
	if st := m.Stats(); st.HitsLFU != 1 {
		t.Errorf("HitsLFU = %d, want 1 (hit should come from the frequency policy)", st.HitsLFU)
	}
}

func TestTTLExpiry(t *testing.T) {
	m, now := newTestManager(Config{LRUCapacity: 1})

	m.Set("short", []byte("v"), SetOptions{TTL: 10 * time.Second})
	m.Set("filler", []byte("f"), SetOptions{}) // pushes "short" out of recency

	if got, ok := m.Get("short"); !ok || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("Get before expiry = %q, %v", got, ok)
	}
	if st := m.Stats(); st.HitsTTL != 1 {
		t.Errorf("HitsTTL = %d, want 1", st.HitsTTL)
	}

	*now = now.Add(11 * time.Second)
	m.Set("filler2", []byte("f"), SetOptions{}) // evict again from recency
	if _, ok := m.Get("short"); ok {
		t.Error("expired entry still served")
	}
}

func TestPredictiveVictimCache(t *testing.T) {
	m, _ := newTestManager(Config{LRUCapacity: 2, PredictiveCapacity: 8})

	// Teach the model that "b" follows "a".
	m.Set("a", []byte("a"), SetOptions{})
	m.Set("b", []byte("b"), SetOptions{})
	m.Get("a")
	m.Get("b")
	m.Get("a")

	// Evict "b" from recency right after an access of "a": the model
	// has seen a->b, so "b" parks in the victim cache.
	m.Set("x", []byte("x"), SetOptions{})
	m.Set("y", []byte("y"), SetOptions{})

	got, ok := m.Get("b")
	if !ok || !bytes.Equal(got, []byte("b")) {
		t.Fatalf("Get(b) = %q, %v", got, ok)
	}
	if st := m.Stats(); st.HitsPredictive != 1 {
		t.Errorf("HitsPredictive = %d, want 1", st.HitsPredictive)
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	m, _ := newTestManager(Config{CompressionThreshold: 64})

	big := bytes.Repeat([]byte("terminal line content "), 64)
	m.Set("big", big, SetOptions{})

	got, ok := m.Get("big")
	if !ok || !bytes.Equal(got, big) {
		t.Fatal("compressed payload did not round-trip")
	}
	if st := m.Stats(); st.Compressed != 1 {
		t.Errorf("Compressed = %d, want 1", st.Compressed)
	}

	m.Set("small", []byte("tiny"), SetOptions{})
	if st := m.Stats(); st.Compressed != 1 {
		t.Error("small payload was compressed")
	}
}

func TestLFUTieBreaksByInsertionOrder(t *testing.T) {
	s := newLFUStore(2)
	s.set("older", []byte("1"))
	s.set("newer", []byte("2"))

	// Equal frequency; inserting a third entry must evict the older.
	s.set("third", []byte("3"))

	if _, ok := s.entries["older"]; ok {
		t.Error("tie eviction kept the older entry")
	}
	if _, ok := s.entries["newer"]; !ok {
		t.Error("tie eviction removed the newer entry")
	}
}

func TestLFUEvictsColdest(t *testing.T) {
	s := newLFUStore(2)
	s.set("hot", []byte("h"))
	s.set("cold", []byte("c"))
	s.get("hot")
	s.get("hot")

	s.set("new", []byte("n"))
	if _, ok := s.entries["cold"]; ok {
		t.Error("coldest entry survived eviction")
	}
	if _, ok := s.entries["hot"]; !ok {
		t.Error("hottest entry was evicted")
	}
}

func TestCriticalPressureClearsPredictiveAndTTL(t *testing.T) {
	cfg := Config{LRUCapacity: 10, LFUCapacity: 10, TTLCapacity: 10, PredictiveCapacity: 1}
	m, _ := newTestManager(cfg)

	// Fill past the critical utilization threshold.
	for i := 0; i < 12; i++ {
		key := fmt.Sprintf("k%d", i)
		m.Set(key, []byte(key), SetOptions{Priority: PriorityHigh, TTL: time.Hour})
	}

	m.Maintain()
	st := m.Stats()
	if st.Pressure != PressureCritical {
		t.Fatalf("Pressure = %v, want critical", st.Pressure)
	}
	if st.TTLLen != 0 || st.PredictiveLen != 0 {
		t.Errorf("TTL/predictive after critical = %d/%d, want 0/0", st.TTLLen, st.PredictiveLen)
	}
	if st.LRULen > cfg.LRUCapacity/2 {
		t.Errorf("LRULen after critical = %d, want <= %d", st.LRULen, cfg.LRUCapacity/2)
	}
}

func TestCriticalPressureShrinksCapacitiesUntilEased(t *testing.T) {
	cfg := Config{LRUCapacity: 10, LFUCapacity: 10, TTLCapacity: 10, PredictiveCapacity: 1}
	m, _ := newTestManager(cfg)

	for i := 0; i < 12; i++ {
		key := fmt.Sprintf("k%d", i)
		m.Set(key, []byte(key), SetOptions{Priority: PriorityHigh, TTL: time.Hour})
	}
	m.Maintain()
	if p := m.Pressure(); p != PressureCritical {
		t.Fatalf("Pressure = %v, want critical", p)
	}

	// A burst of sets between maintenance passes must not refill the
	// shrunk recency policy back to its configured size.
	for i := 0; i < 12; i++ {
		m.Set(fmt.Sprintf("burst%d", i), []byte("b"), SetOptions{})
	}
	if st := m.Stats(); st.LRULen > cfg.LRUCapacity/2 {
		t.Fatalf("LRULen after burst = %d, want <= %d", st.LRULen, cfg.LRUCapacity/2)
	}

	// Utilization is back under the medium threshold, so this pass
	// restores the capacities and the policy grows to full size again.
	m.Maintain()
	if p := m.Pressure(); p != PressureLow {
		t.Fatalf("Pressure after shrink = %v, want low", p)
	}
	for i := 0; i < 12; i++ {
		m.Set(fmt.Sprintf("refill%d", i), []byte("r"), SetOptions{})
	}
	if st := m.Stats(); st.LRULen != cfg.LRUCapacity {
		t.Errorf("LRULen after recovery = %d, want %d", st.LRULen, cfg.LRUCapacity)
	}
}

func TestHighPressureClearsPredictiveAndShrinksTTL(t *testing.T) {
	cfg := Config{LRUCapacity: 10, LFUCapacity: 10, TTLCapacity: 10, PredictiveCapacity: 1}
	m, _ := newTestManager(cfg)

	// 24 of 31 slots used lands in the high tier short of critical.
	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("k%d", i)
		m.Set(key, []byte(key), SetOptions{Priority: PriorityHigh, TTL: time.Hour})
	}

	m.Maintain()
	st := m.Stats()
	if st.Pressure != PressureHigh {
		t.Fatalf("Pressure = %v, want high", st.Pressure)
	}
	if st.PredictiveLen != 0 {
		t.Errorf("PredictiveLen = %d, want 0", st.PredictiveLen)
	}
	if st.TTLLen > cfg.TTLCapacity/2 {
		t.Errorf("TTLLen = %d, want <= %d", st.TTLLen, cfg.TTLCapacity/2)
	}
	if st.LRULen != 8 {
		t.Errorf("LRULen = %d, want 8 (recency untouched below critical)", st.LRULen)
	}
}

func TestGetFromProbesOnePolicy(t *testing.T) {
	m, _ := newTestManager(Config{LRUCapacity: 4, LFUCapacity: 4})
	m.Set("k", []byte("v"), SetOptions{Priority: PriorityHigh})

	if _, ok := m.GetFrom("k", PolicyTTL); ok {
		t.Error("TTL-only lookup hit an entry stored without a ttl")
	}
	got, ok := m.GetFrom("k", PolicyLFU)
	if !ok || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("GetFrom(LFU) = %q, %v", got, ok)
	}
	if st := m.Stats(); st.HitsLFU != 1 || st.Misses != 1 {
		t.Errorf("HitsLFU/Misses = %d/%d, want 1/1", st.HitsLFU, st.Misses)
	}
}

func TestLowPressureLeavesEntriesAlone(t *testing.T) {
	m, _ := newTestManager(DefaultConfig())
	m.Set("k", []byte("v"), SetOptions{})

	m.Maintain()
	st := m.Stats()
	if st.Pressure != PressureLow {
		t.Fatalf("Pressure = %v, want low", st.Pressure)
	}
	if _, ok := m.Get("k"); !ok {
		t.Error("low-pressure maintenance dropped an entry")
	}
}

func TestMaintainSweepsExpired(t *testing.T) {
	m, now := newTestManager(DefaultConfig())
	m.Set("k", []byte("v"), SetOptions{TTL: time.Second})

	*now = now.Add(2 * time.Second)
	m.Maintain()
	if st := m.Stats(); st.TTLLen != 0 || st.Expirations != 1 {
		t.Errorf("after sweep: TTLLen=%d Expirations=%d", st.TTLLen, st.Expirations)
	}
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	m, _ := newTestManager(DefaultConfig())
	m.Set("k", []byte("v"), SetOptions{Priority: PriorityHigh, TTL: time.Hour})

	m.Delete("k")
	if _, ok := m.Get("k"); ok {
		t.Error("deleted entry still served")
	}
}

func TestShardedGetOrCreate(t *testing.T) {
	c := NewSharded[string, int](8, StringHasher)

	calls := 0
	for i := 0; i < 3; i++ {
		v := c.GetOrCreate("key", func() int { calls++; return 42 })
		if v != 42 {
			t.Fatalf("GetOrCreate = %d, want 42", v)
		}
	}
	if calls != 1 {
		t.Errorf("create ran %d times, want 1", calls)
	}
	if st := c.Stats(); st.Hits != 2 || st.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 2/1", st.Hits, st.Misses)
	}
}

func TestShardedEviction(t *testing.T) {
	c := NewSharded[uint64, string](1, Uint64Hasher)

	// Keys 0 and 16 share shard 0 with capacity 1.
	c.Set(0, "first")
	c.Set(16, "second")

	if _, ok := c.Get(0); ok {
		t.Error("evicted entry still present")
	}
	if v, ok := c.Get(16); !ok || v != "second" {
		t.Errorf("Get(16) = %q, %v", v, ok)
	}
}

func TestShardedConcurrent(t *testing.T) {
	c := NewSharded[string, int](64, StringHasher)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%32)
				c.GetOrCreate(key, func() int { return i })
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 32 {
		t.Errorf("Len = %d, want <= 32 distinct keys", c.Len())
	}
}

func BenchmarkManagerGet(b *testing.B) {
	m := NewManager(DefaultConfig())
	m.Set("k", bytes.Repeat([]byte("x"), 256), SetOptions{})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.Get("k")
	}
}
