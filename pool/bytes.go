package pool

import "math/bits"

// Bytes is a size-classed byte-slice pool for raw scratch buffers (vertex
// staging, compression scratch). Slices are grouped into power-of-two size
// classes; Get rounds the requested size up to the next class so a returned
// slice is always reusable for requests of the same class.
type Bytes struct {
	classes [bytesClasses][][]byte
	perCls  int

	stats Stats
}

const (
	// bytesMinShift is the smallest class, 1<<6 = 64 bytes.
	bytesMinShift = 6

	// bytesClasses covers 64 B .. 8 MiB.
	bytesClasses = 18
)

// NewBytes creates a byte-slice pool retaining at most perClass idle slices
// in each size class.
func NewBytes(perClass int) *Bytes {
	if perClass < 1 {
		perClass = 4
	}
	return &Bytes{perCls: perClass}
}

// Get returns a zero-length slice with capacity of at least size. Slices
// larger than the biggest class are allocated directly and never pooled.
func (b *Bytes) Get(size int) []byte {
	cls, ok := bytesClass(size)
	if !ok {
		b.stats.Misses++
		return make([]byte, 0, size)
	}
	if free := b.classes[cls]; len(free) > 0 {
		buf := free[len(free)-1]
		free[len(free)-1] = nil
		b.classes[cls] = free[:len(free)-1]
		b.stats.Hits++
		return buf[:0]
	}
	b.stats.Misses++
	return make([]byte, 0, 1<<(bytesMinShift+cls))
}

// Put returns buf to its size class. Slices whose capacity matches no class
// exactly, and slices above a full class, are dropped for collection.
func (b *Bytes) Put(buf []byte) {
	c := cap(buf)
	if c == 0 {
		return
	}
	cls, ok := bytesClass(c)
	if !ok || 1<<(bytesMinShift+cls) != c {
		b.stats.Discards++
		return
	}
	if len(b.classes[cls]) >= b.perCls {
		b.stats.Discards++
		return
	}
	b.classes[cls] = append(b.classes[cls], buf[:0])
}

// Stats returns a copy of the pool counters.
func (b *Bytes) Stats() Stats { return b.stats }

// bytesClass maps a size to its class index, or ok=false when the size is
// above the largest class.
func bytesClass(size int) (cls int, ok bool) {
	if size <= 1<<bytesMinShift {
		return 0, true
	}
	cls = bits.Len(uint(size-1)) - bytesMinShift
	if cls >= bytesClasses {
		return 0, false
	}
	return cls, true
}
