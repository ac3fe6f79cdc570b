// Package batch accumulates glyph quads into draw batches and submits
// each batch as exactly one indexed draw call. Batches sharing texture,
// color, and opacity grow until the configured size cap, then flush
// automatically into a FIFO of pending batches; FlushAll drains the FIFO
// in submission order. Batch records recycle through an object pool.
package batch

import (
	"errors"
	"fmt"

	"github.com/eapache/queue"

	"github.com/gogpu/termgfx/pool"
)

// ErrNoActiveBatch is returned when Add is called before Begin.
var ErrNoActiveBatch = errors.New("batch: no active batch, call Begin first")

// Submitter turns one batch into one draw call. The GPU pipeline is the
// production implementation; tests substitute a recorder.
type Submitter interface {
	Submit(b *Batch) error
}

// Config holds batch renderer configuration.
type Config struct {
	// MaxBatchSize is the quad cap per batch; reaching it flushes the
	// batch automatically. Values above MaxIndexedQuads clamp to it,
	// since the shared uint16 index table cannot address more vertices.
	// Default: 4096.
	MaxBatchSize int

	// PoolCapacity is the maximum number of idle pooled batch records.
	// Default: 16.
	PoolCapacity int
}

// DefaultConfig returns the default renderer configuration.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize: 4096,
		PoolCapacity: 16,
	}
}

// Stats holds renderer counters for the diagnostics surface.
type Stats struct {
	Quads       uint64
	Batches     uint64
	DrawCalls   uint64
	AutoFlushes uint64
	Pending     int
}

// Renderer accumulates quads into the current batch and keeps finished
// batches in FIFO order until FlushAll submits them. Not safe for
// concurrent use.
type Renderer struct {
	cfg Config
	sub Submitter

	cur     *Batch
	pending *queue.Queue // of *Batch, submission order
	pool    *pool.Pool[Batch]

	// indexData is the precomputed index table covering MaxBatchSize
	// quads. Shared by every batch; submitters slice it by quad count.
	indexData []byte

	quads       uint64
	batches     uint64
	drawCalls   uint64
	autoFlushes uint64
}

// New creates a renderer submitting through sub.
func New(sub Submitter, cfg Config) *Renderer {
	if cfg.MaxBatchSize < 1 {
		cfg.MaxBatchSize = DefaultConfig().MaxBatchSize
	}
	if cfg.MaxBatchSize > MaxIndexedQuads {
		cfg.MaxBatchSize = MaxIndexedQuads
	}
	if cfg.PoolCapacity < 1 {
		cfg.PoolCapacity = DefaultConfig().PoolCapacity
	}
	return &Renderer{
		cfg:     cfg,
		sub:     sub,
		pending: queue.New(),
		pool: pool.New(cfg.PoolCapacity,
			func() *Batch { return &Batch{} },
			resetBatch),
		indexData: BuildIndexData(cfg.MaxBatchSize),
	}
}

// Begin starts accumulating under the given texture, color, and opacity.
// When those parameters match the active batch it keeps growing; when
// they differ the active batch moves to the pending FIFO first.
func (r *Renderer) Begin(texture TextureID, color RGBA, opacity float32) {
	if r.cur != nil {
		if r.cur.Texture == texture && r.cur.Color == color && r.cur.Opacity == opacity {
			return
		}
		r.Flush()
	}
	b := r.pool.Acquire()
	b.Texture = texture
	b.Color = color
	b.Opacity = opacity
	r.cur = b
}

// Add appends one quad to the active batch. Hitting MaxBatchSize flushes
// the batch and opens a fresh one with the same parameters; the quad
// that triggered the flush is never dropped.
func (r *Renderer) Add(q Quad) error {
	if r.cur == nil {
		return ErrNoActiveBatch
	}
	r.cur.Quads = append(r.cur.Quads, q)
	r.quads++

	if len(r.cur.Quads) >= r.cfg.MaxBatchSize {
		texture, color, opacity := r.cur.Texture, r.cur.Color, r.cur.Opacity
		r.Flush()
		r.autoFlushes++

		b := r.pool.Acquire()
		b.Texture = texture
		b.Color = color
		b.Opacity = opacity
		r.cur = b
	}
	return nil
}

// AddAll appends quads in order, auto-flushing along the way like Add.
func (r *Renderer) AddAll(quads []Quad) error {
	for _, q := range quads {
		if err := r.Add(q); err != nil {
			return err
		}
	}
	return nil
}

// Flush moves the active batch to the pending FIFO. Empty batches return
// straight to the pool.
func (r *Renderer) Flush() {
	if r.cur == nil {
		return
	}
	if len(r.cur.Quads) == 0 {
		r.pool.Release(r.cur)
		r.cur = nil
		return
	}
	r.pending.Add(r.cur)
	r.batches++
	r.cur = nil
}

// FlushAll submits every pending batch in FIFO order, one draw call per
// batch, then recycles the records. On a submit error the failed batch is
// recycled and the remaining batches stay queued.
func (r *Renderer) FlushAll() error {
	r.Flush()
	for r.pending.Length() > 0 {
		b := r.pending.Remove().(*Batch)
		err := r.sub.Submit(b)
		r.pool.Release(b)
		if err != nil {
			return fmt.Errorf("batch: submit: %w", err)
		}
		r.drawCalls++
	}
	return nil
}

// Discard drops the active batch and every pending batch without
// submitting them. Used when the atlas generation changes mid-frame and
// recorded UVs no longer point at valid texels.
func (r *Renderer) Discard() {
	if r.cur != nil {
		r.pool.Release(r.cur)
		r.cur = nil
	}
	for r.pending.Length() > 0 {
		r.pool.Release(r.pending.Remove().(*Batch))
	}
}

// IndexData returns the shared index table sized for MaxBatchSize quads.
// Submitters upload it once and draw the first 6*n indices per batch.
func (r *Renderer) IndexData() []byte { return r.indexData }

// MaxBatchSize returns the quad cap per batch.
func (r *Renderer) MaxBatchSize() int { return r.cfg.MaxBatchSize }

// Stats returns a snapshot of the renderer counters.
func (r *Renderer) Stats() Stats {
	return Stats{
		Quads:       r.quads,
		Batches:     r.batches,
		DrawCalls:   r.drawCalls,
		AutoFlushes: r.autoFlushes,
		Pending:     r.pending.Length(),
	}
}
