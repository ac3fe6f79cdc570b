// Package cache layers four eviction policies behind one manager:
// recency (every entry), frequency (high-priority entries), expiry
// (entries with a lifetime), and a prediction-guided victim cache.
// Lookups probe the policies in that fixed order. Large payloads are
// transparently S2-compressed, and a maintenance pass maps overall
// utilization to pressure tiers with increasingly aggressive trimming.
package cache

import (
	"time"
)

// Priority selects the policies an entry is written to.
type Priority uint8

const (
	// PriorityNormal entries live in the recency policy only.
	PriorityNormal Priority = iota

	// PriorityHigh entries are additionally tracked by frequency, so a
	// hot entry survives a burst of one-shot insertions.
	PriorityHigh
)

// Config holds cache manager configuration.
type Config struct {
	// LRUCapacity is the recency policy entry cap. Default: 2048.
	LRUCapacity int

	// LFUCapacity is the frequency policy entry cap. Default: 256.
	LFUCapacity int

	// TTLCapacity is the expiry policy entry cap. Default: 256.
	TTLCapacity int

	// PredictiveCapacity is the victim cache entry cap. Default: 128.
	PredictiveCapacity int

	// CompressionThreshold is the payload size, in bytes, from which
	// entries are S2-compressed. Zero disables compression.
	// Default: 1024.
	CompressionThreshold int
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		LRUCapacity:          2048,
		LFUCapacity:          256,
		TTLCapacity:          256,
		PredictiveCapacity:   128,
		CompressionThreshold: 1024,
	}
}

// SetOptions qualifies one Set call.
type SetOptions struct {
	// Priority routes the entry to the frequency policy as well.
	Priority Priority

	// TTL, when positive, also stores the entry in the expiry policy.
	TTL time.Duration
}

// ManagerStats holds cache counters for the diagnostics surface.
type ManagerStats struct {
	LRULen        int
	LFULen        int
	TTLLen        int
	PredictiveLen int

	HitsLRU        uint64
	HitsLFU        uint64
	HitsTTL        uint64
	HitsPredictive uint64
	Misses         uint64

	Compressed  uint64
	Expirations uint64
	Evictions   uint64
	Pressure    Pressure
}

// Manager is the multi-policy cache façade. Not safe for concurrent
// use; the engine drives it from the cooperative loop.
type Manager struct {
	cfg Config

	lru        *lruStore
	lfu        *lfuStore
	ttl        *ttlStore
	predictive *predictiveStore

	pressure Pressure
	now      func() time.Time

	hitsLRU, hitsLFU, hitsTTL, hitsPredictive uint64
	misses                                    uint64
	compressed                                uint64
}

// NewManager creates a cache manager with the given configuration.
func NewManager(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.LRUCapacity < 1 {
		cfg.LRUCapacity = def.LRUCapacity
	}
	if cfg.LFUCapacity < 1 {
		cfg.LFUCapacity = def.LFUCapacity
	}
	if cfg.TTLCapacity < 1 {
		cfg.TTLCapacity = def.TTLCapacity
	}
	if cfg.PredictiveCapacity < 1 {
		cfg.PredictiveCapacity = def.PredictiveCapacity
	}

	m := &Manager{
		cfg:        cfg,
		lru:        newLRUStore(cfg.LRUCapacity),
		lfu:        newLFUStore(cfg.LFUCapacity),
		ttl:        newTTLStore(cfg.TTLCapacity),
		predictive: newPredictiveStore(cfg.PredictiveCapacity),
		now:        time.Now,
	}
	// Recency evictions get a second life in the victim cache when the
	// access model says the key tends to come back.
	m.lru.onEvict = func(key string, val []byte) {
		m.predictive.offer(key, val)
	}
	return m
}

// Get looks key up through the policies in order: recency, frequency,
// expiry, predictive. The first hit wins; a predictive hit re-admits
// the entry to the recency policy. Every lookup trains the access
// model.
func (m *Manager) Get(key string) ([]byte, bool) {
	m.predictive.train(key)

	if payload, ok := m.lru.get(key); ok {
		m.hitsLRU++
		return m.unwrap(payload)
	}
	if payload, ok := m.lfu.get(key); ok {
		m.hitsLFU++
		return m.unwrap(payload)
	}
	if payload, ok := m.ttl.get(key, m.now()); ok {
		m.hitsTTL++
		return m.unwrap(payload)
	}
	if payload, ok := m.predictive.get(key); ok {
		m.hitsPredictive++
		m.lru.set(key, payload)
		return m.unwrap(payload)
	}
	m.misses++
	return nil, false
}

// Policy names one of the manager's eviction policies for lookups that
// restrict themselves to a single policy.
type Policy uint8

const (
	PolicyLRU Policy = iota
	PolicyLFU
	PolicyTTL
	PolicyPredictive
)

// GetFrom looks key up in one policy only, skipping the probe order.
// Hit and miss accounting matches Get.
func (m *Manager) GetFrom(key string, policy Policy) ([]byte, bool) {
	m.predictive.train(key)

	var payload []byte
	var ok bool
	switch policy {
	case PolicyLRU:
		if payload, ok = m.lru.get(key); ok {
			m.hitsLRU++
		}
	case PolicyLFU:
		if payload, ok = m.lfu.get(key); ok {
			m.hitsLFU++
		}
	case PolicyTTL:
		if payload, ok = m.ttl.get(key, m.now()); ok {
			m.hitsTTL++
		}
	case PolicyPredictive:
		if payload, ok = m.predictive.get(key); ok {
			m.hitsPredictive++
			m.lru.set(key, payload)
		}
	}
	if !ok {
		m.misses++
		return nil, false
	}
	return m.unwrap(payload)
}

// Set stores val under key. Every entry enters the recency policy;
// high priority adds the frequency policy, a positive TTL adds the
// expiry policy. All policies share one framed payload.
func (m *Manager) Set(key string, val []byte, opts SetOptions) {
	payload, wasCompressed := pack(val, m.cfg.CompressionThreshold)
	if wasCompressed {
		m.compressed++
	}

	m.lru.set(key, payload)
	if opts.Priority == PriorityHigh {
		m.lfu.set(key, payload)
	}
	if opts.TTL > 0 {
		m.ttl.set(key, payload, opts.TTL, m.now())
	}
}

// Delete removes key from every policy.
func (m *Manager) Delete(key string) {
	m.lru.delete(key)
	m.lfu.delete(key)
	m.ttl.delete(key)
	delete(m.predictive.entries, key)
}

// Clear drops every entry from every policy.
func (m *Manager) Clear() {
	m.lru.clear()
	m.lfu.clear()
	m.ttl.clear()
	m.predictive.clear()
}

// Maintain runs one maintenance pass: sweep expired entries, re-derive
// the pressure tier from utilization, apply the tier's response, and
// age the frequency and prediction models. Each policy ages on its own
// clock; a sweep here never touches recency order or access counts.
// Wired to the engine's maintenance queue.
func (m *Manager) Maintain() {
	now := m.now()
	m.ttl.sweep(now)

	m.pressure = pressureFor(m.utilization())
	switch m.pressure {
	case PressureLow, PressureMedium:
		// At medium the expired sweep above is the whole trimming
		// response. Either way pressure has eased, so capacities shrunk
		// by an earlier critical pass grow back to their configured
		// sizes.
		m.lru.capacity = m.cfg.LRUCapacity
		m.lfu.capacity = m.cfg.LFUCapacity
	case PressureHigh:
		m.predictive.clear()
		m.ttl.trimTo(m.cfg.TTLCapacity / 2)
	case PressureCritical:
		m.predictive.clear()
		m.ttl.clear()
		m.lru.shrinkTo(m.cfg.LRUCapacity / 2)
		m.lfu.shrinkTo(m.cfg.LFUCapacity / 2)
	}

	m.lfu.decay()
	m.predictive.decay()
}

// Pressure returns the tier derived by the last Maintain.
func (m *Manager) Pressure() Pressure { return m.pressure }

// utilization is the filled fraction across every policy.
func (m *Manager) utilization() float64 {
	total := m.cfg.LRUCapacity + m.cfg.LFUCapacity + m.cfg.TTLCapacity + m.cfg.PredictiveCapacity
	used := m.lru.len() + m.lfu.len() + m.ttl.len() + m.predictive.len()
	return float64(used) / float64(total)
}

// unwrap decodes a framed payload; a corrupt payload counts as a miss.
func (m *Manager) unwrap(payload []byte) ([]byte, bool) {
	val, err := unpack(payload)
	if err != nil {
		m.misses++
		return nil, false
	}
	return val, true
}

// Stats returns a snapshot of the cache counters.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		LRULen:         m.lru.len(),
		LFULen:         m.lfu.len(),
		TTLLen:         m.ttl.len(),
		PredictiveLen:  m.predictive.len(),
		HitsLRU:        m.hitsLRU,
		HitsLFU:        m.hitsLFU,
		HitsTTL:        m.hitsTTL,
		HitsPredictive: m.hitsPredictive,
		Misses:         m.misses,
		Compressed:     m.compressed,
		Expirations:    m.ttl.expirations,
		Evictions:      m.lru.evictions + m.lfu.evictions,
		Pressure:       m.pressure,
	}
}
