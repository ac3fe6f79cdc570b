// Package termbuf stores streamed terminal output in a fixed-capacity
// scrollback with pooled line records and an inverted word index for
// search. It is the single inbound surface of the engine: the terminal
// emulation layer appends lines and reads nothing back.
package termbuf

import (
	"time"

	"github.com/gogpu/termgfx/pool"
	"github.com/gogpu/termgfx/ring"
)

// Config holds terminal buffer configuration.
type Config struct {
	// Scrollback is the number of retained lines. Default: 10000.
	Scrollback int

	// PoolCapacity is the maximum number of idle pooled line records.
	// Default: 256.
	PoolCapacity int
}

// DefaultConfig returns the default buffer configuration.
func DefaultConfig() Config {
	return Config{
		Scrollback:   10000,
		PoolCapacity: 256,
	}
}

// Buffer is the optimized terminal scrollback store. Lines live in a ring
// buffer; overwritten records are recycled through an object pool with full
// field reset. An inverted word index supports search over retained lines.
//
// Buffer is not safe for concurrent use; the engine mutates it only from
// the cooperative loop.
type Buffer struct {
	lines *ring.Buffer[*Line]
	pool  *pool.Pool[Line]
	index *wordIndex

	// nextSeq is the sequence number of the next appended line.
	nextSeq uint64

	// onAppend, when set, runs after every AddLine. The scroller hooks
	// this to keep the viewport pinned to the bottom.
	onAppend func()

	now func() time.Time
}

// Stats holds buffer counters for the diagnostics surface.
type Stats struct {
	Lines        int
	Capacity     int
	Appends      uint64
	Evictions    uint64
	IndexedWords int
	PoolHits     uint64
	PoolMisses   uint64
}

// New creates a terminal buffer with the given configuration.
func New(cfg Config) *Buffer {
	if cfg.Scrollback < 1 {
		cfg.Scrollback = DefaultConfig().Scrollback
	}
	if cfg.PoolCapacity < 1 {
		cfg.PoolCapacity = DefaultConfig().PoolCapacity
	}
	return &Buffer{
		lines: ring.New[*Line](cfg.Scrollback),
		pool: pool.New(cfg.PoolCapacity,
			func() *Line { return &Line{} },
			resetLine),
		index: newWordIndex(),
		now:   time.Now,
	}
}

// AddLine appends one line of output with its style spans. At capacity the
// logical oldest line is overwritten and its record recycled through the
// pool. AddLine never fails.
func (b *Buffer) AddLine(text string, spans []Span) {
	l := b.pool.Acquire()
	l.Seq = b.nextSeq
	l.Text = text
	l.Spans = append(l.Spans[:0], spans...)
	l.Cells = lineCells(text)
	l.Dir = detectDirection(text)
	l.Time = b.now()
	l.Dirty = true
	b.nextSeq++

	b.index.add(l.Seq, text)

	if evicted, ok := b.lines.Push(l); ok {
		b.pool.Release(evicted)
	}

	if b.onAppend != nil {
		b.onAppend()
	}
}

// Line returns the i-th retained line, oldest first.
func (b *Buffer) Line(i int) (*Line, bool) {
	return b.lines.Get(i)
}

// Len returns the number of retained lines.
func (b *Buffer) Len() int { return b.lines.Len() }

// Cap returns the scrollback capacity.
func (b *Buffer) Cap() int { return b.lines.Cap() }

// OldestSeq returns the sequence number of the oldest retained line, or the
// next sequence number when the buffer is empty.
func (b *Buffer) OldestSeq() uint64 {
	if l, ok := b.lines.Get(0); ok {
		return l.Seq
	}
	return b.nextSeq
}

// BySeq returns the retained line with the given sequence number.
// O(1): retained lines are contiguous in sequence order.
func (b *Buffer) BySeq(seq uint64) (*Line, bool) {
	oldest := b.OldestSeq()
	if seq < oldest || seq >= b.nextSeq {
		return nil, false
	}
	return b.lines.Get(int(seq - oldest))
}

// Search returns the retained lines containing word, oldest first. Lines
// already evicted from the scrollback are never returned; their index
// entries are pruned as a side effect.
func (b *Buffer) Search(word string) []*Line {
	seqs := b.index.lookup(word, b.OldestSeq())
	if len(seqs) == 0 {
		return nil
	}
	out := make([]*Line, 0, len(seqs))
	for _, seq := range seqs {
		if l, ok := b.BySeq(seq); ok {
			out = append(out, l)
		}
	}
	return out
}

// Maintain runs one bounded index-compaction pass. Wired to the engine's
// maintenance queue; cost is proportional to distinct indexed words.
func (b *Buffer) Maintain() {
	b.index.compact(b.OldestSeq())
}

// Clear drops every retained line and the whole index. Records return to
// the pool for reuse.
func (b *Buffer) Clear() {
	b.lines.ForEach(func(_ int, l **Line) bool {
		b.pool.Release(*l)
		return true
	})
	b.lines.Clear()
	b.index.clear()
}

// OnAppend registers fn to run after every AddLine.
func (b *Buffer) OnAppend(fn func()) { b.onAppend = fn }

// Stats returns a snapshot of the buffer counters.
func (b *Buffer) Stats() Stats {
	rs := b.lines.Stats()
	ps := b.pool.Stats()
	return Stats{
		Lines:        b.lines.Len(),
		Capacity:     b.lines.Cap(),
		Appends:      rs.Pushes,
		Evictions:    rs.Evictions,
		IndexedWords: b.index.words,
		PoolHits:     ps.Hits,
		PoolMisses:   ps.Misses,
	}
}
