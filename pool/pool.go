// Package pool provides bounded object pools for the render hot path.
//
// Unlike sync.Pool, these pools have a fixed capacity and explicit reset
// semantics: Release always runs the caller-supplied reset function so no
// stale reference survives reuse, and objects above capacity are dropped
// for ordinary collection. Exhaustion is a statistic, not an error — Acquire
// falls back to fresh construction.
package pool

// Pool is a generic reusable-object allocator. Ownership of an object
// transfers to the caller on Acquire and back to the pool on Release.
//
// Pool is not safe for concurrent use; the engine mutates it only from the
// single cooperative loop.
type Pool[T any] struct {
	free  []*T
	newFn func() *T
	reset func(*T)

	stats Stats
}

// Stats holds pool counters for the diagnostics surface.
type Stats struct {
	// Hits counts Acquire calls served from the free list.
	Hits uint64

	// Misses counts Acquire calls that constructed a fresh object
	// (pool empty — exhaustion, tracked but never an error).
	Misses uint64

	// Discards counts Release calls dropped because the pool was full.
	Discards uint64

	// InUse is the current number of acquired-but-not-released objects.
	InUse int
}

// New creates a pool holding at most capacity idle objects. newFn constructs
// a fresh object; reset clears every mutable field before reuse. reset may
// be nil when T needs no clearing.
func New[T any](capacity int, newFn func() *T, reset func(*T)) *Pool[T] {
	if capacity < 1 {
		capacity = 1
	}
	if newFn == nil {
		newFn = func() *T { return new(T) }
	}
	return &Pool[T]{
		free:  make([]*T, 0, capacity),
		newFn: newFn,
		reset: reset,
	}
}

// Acquire returns a pooled instance, or constructs a new one when the free
// list is empty.
func (p *Pool[T]) Acquire() *T {
	p.stats.InUse++
	if n := len(p.free); n > 0 {
		obj := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.stats.Hits++
		return obj
	}
	p.stats.Misses++
	return p.newFn()
}

// Release resets obj and returns it to the pool. When the pool is already
// at capacity the object is discarded for ordinary collection. nil is
// ignored.
func (p *Pool[T]) Release(obj *T) {
	if obj == nil {
		return
	}
	if p.stats.InUse > 0 {
		p.stats.InUse--
	}
	if p.reset != nil {
		p.reset(obj)
	}
	if len(p.free) == cap(p.free) {
		p.stats.Discards++
		return
	}
	p.free = append(p.free, obj)
}

// Warmup pre-constructs up to n idle objects, bounded by capacity.
// Call during initialization when allocation-free steady state matters.
func (p *Pool[T]) Warmup(n int) {
	for len(p.free) < cap(p.free) && n > 0 {
		obj := p.newFn()
		if p.reset != nil {
			p.reset(obj)
		}
		p.free = append(p.free, obj)
		n--
	}
}

// Idle returns the number of objects currently on the free list.
func (p *Pool[T]) Idle() int { return len(p.free) }

// Cap returns the maximum number of idle objects retained.
func (p *Pool[T]) Cap() int { return cap(p.free) }

// Stats returns a copy of the pool counters.
func (p *Pool[T]) Stats() Stats { return p.stats }

// Utilization returns the fraction of Acquire calls served from the pool,
// in [0, 1]. Returns 0 before the first Acquire.
func (p *Pool[T]) Utilization() float64 {
	total := p.stats.Hits + p.stats.Misses
	if total == 0 {
		return 0
	}
	return float64(p.stats.Hits) / float64(total)
}
