// Package ring provides a fixed-capacity circular buffer with
// overwrite-oldest semantics. It backs the terminal scrollback store where
// pushes must never fail and memory must stay bounded regardless of how
// much output a session produces.
package ring

// Buffer is a generic fixed-capacity ring buffer. When full, Push
// overwrites the logical oldest slot and records an eviction.
//
// Buffer is not safe for concurrent use; callers mutate it only from the
// cooperative render/maintenance loop.
type Buffer[T any] struct {
	slots []T
	head  int // next write position
	count int // valid entries, 0..cap

	stats Stats
}

// Stats holds buffer counters for the diagnostics surface.
type Stats struct {
	// Pushes is the total number of Push calls.
	Pushes uint64

	// Evictions is the number of pushes that overwrote the oldest entry.
	Evictions uint64
}

// New creates a ring buffer with the given capacity.
// Capacities below 1 are clamped to 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		slots: make([]T, capacity),
	}
}

// Push stores item, overwriting the oldest entry when the buffer is full.
// It never fails. Returns the overwritten entry and true when an eviction
// happened, so callers can recycle the evicted value through a pool.
func (b *Buffer[T]) Push(item T) (evicted T, ok bool) {
	b.stats.Pushes++
	if b.count == len(b.slots) {
		evicted = b.slots[b.head]
		ok = true
		b.stats.Evictions++
	}
	b.slots[b.head] = item
	b.head = (b.head + 1) % len(b.slots)
	if b.count < len(b.slots) {
		b.count++
	}
	return evicted, ok
}

// Get returns the i-th entry relative to the logical oldest (Get(0) is the
// oldest retained entry). The second return is false when i is out of range.
// O(1).
func (b *Buffer[T]) Get(i int) (T, bool) {
	var zero T
	if i < 0 || i >= b.count {
		return zero, false
	}
	start := b.head - b.count
	if start < 0 {
		start += len(b.slots)
	}
	return b.slots[(start+i)%len(b.slots)], true
}

// Last returns the most recently pushed entry.
func (b *Buffer[T]) Last() (T, bool) {
	return b.Get(b.count - 1)
}

// Len returns the number of valid entries.
func (b *Buffer[T]) Len() int { return b.count }

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int { return len(b.slots) }

// ForEach visits valid entries oldest-first. Return false from fn to stop
// early. Entries are passed by pointer so callers can flip dirty flags
// without copying.
func (b *Buffer[T]) ForEach(fn func(i int, item *T) bool) {
	if b.count == 0 {
		return
	}
	start := b.head - b.count
	if start < 0 {
		start += len(b.slots)
	}
	for i := 0; i < b.count; i++ {
		if !fn(i, &b.slots[(start+i)%len(b.slots)]) {
			return
		}
	}
}

// Clear drops all entries. Slots are zeroed so no stale references keep
// evicted values alive.
func (b *Buffer[T]) Clear() {
	var zero T
	for i := range b.slots {
		b.slots[i] = zero
	}
	b.head = 0
	b.count = 0
}

// Stats returns a copy of the buffer counters.
func (b *Buffer[T]) Stats() Stats { return b.stats }
