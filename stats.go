package termgfx

import (
	"github.com/tidwall/sjson"

	"github.com/gogpu/termgfx/atlas"
	"github.com/gogpu/termgfx/batch"
	"github.com/gogpu/termgfx/cache"
	"github.com/gogpu/termgfx/render"
	"github.com/gogpu/termgfx/sched"
	"github.com/gogpu/termgfx/scroll"
	"github.com/gogpu/termgfx/termbuf"
)

// Stats aggregates the counters of every engine component.
type Stats struct {
	Frames    uint64
	Buffer    termbuf.Stats
	Atlas     atlas.Stats
	Batch     batch.Stats
	Scroll    scroll.Stats
	Cache     cache.ManagerStats
	Scheduler sched.Stats
	Render    render.Stats
}

// Stats returns a snapshot of every component's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Frames:    e.frames,
		Buffer:    e.buf.Stats(),
		Atlas:     e.atlas.Stats(),
		Batch:     e.batcher.Stats(),
		Scroll:    e.scroller.Stats(),
		Cache:     e.cache.Stats(),
		Scheduler: e.sched.Stats(),
		Render:    e.renderer.Stats(),
	}
}

// StatsJSON renders the stats snapshot as a JSON document for the
// host's diagnostics surface.
func (e *Engine) StatsJSON() ([]byte, error) {
	st := e.Stats()

	doc := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err != nil {
			return
		}
		doc, err = sjson.SetBytes(doc, path, value)
	}

	set("frames", st.Frames)

	set("buffer.lines", st.Buffer.Lines)
	set("buffer.capacity", st.Buffer.Capacity)
	set("buffer.appends", st.Buffer.Appends)
	set("buffer.evictions", st.Buffer.Evictions)
	set("buffer.indexed_words", st.Buffer.IndexedWords)
	set("buffer.pool_hits", st.Buffer.PoolHits)
	set("buffer.pool_misses", st.Buffer.PoolMisses)

	set("atlas.glyphs", st.Atlas.Glyphs)
	set("atlas.hits", st.Atlas.Hits)
	set("atlas.misses", st.Atlas.Misses)
	set("atlas.refused", st.Atlas.Refused)
	set("atlas.generation", st.Atlas.Generation)
	set("atlas.utilization", st.Atlas.Utilization)

	set("batch.quads", st.Batch.Quads)
	set("batch.batches", st.Batch.Batches)
	set("batch.draw_calls", st.Batch.DrawCalls)
	set("batch.auto_flushes", st.Batch.AutoFlushes)
	set("batch.pending", st.Batch.Pending)

	set("scroll.recomputes", st.Scroll.Recomputes)
	set("scroll.coalesced", st.Scroll.Coalesced)

	set("cache.lru_len", st.Cache.LRULen)
	set("cache.lfu_len", st.Cache.LFULen)
	set("cache.ttl_len", st.Cache.TTLLen)
	set("cache.predictive_len", st.Cache.PredictiveLen)
	set("cache.hits_lru", st.Cache.HitsLRU)
	set("cache.hits_lfu", st.Cache.HitsLFU)
	set("cache.hits_ttl", st.Cache.HitsTTL)
	set("cache.hits_predictive", st.Cache.HitsPredictive)
	set("cache.misses", st.Cache.Misses)
	set("cache.compressed", st.Cache.Compressed)
	set("cache.expirations", st.Cache.Expirations)
	set("cache.evictions", st.Cache.Evictions)
	set("cache.pressure", st.Cache.Pressure.String())

	set("scheduler.frame_tasks", st.Scheduler.FrameTasks)
	set("scheduler.coalesced", st.Scheduler.Coalesced)
	set("scheduler.maintenance_runs", st.Scheduler.MaintenanceRuns)
	set("scheduler.pending_frame", st.Scheduler.PendingFrame)

	set("render.lines", st.Render.Lines)
	set("render.cached_lines", st.Render.CachedLines)
	set("render.shaped_lines", st.Render.ShapedLines)
	set("render.fallback_lines", st.Render.FallbackLines)
	set("render.glyphs_resolved", st.Render.GlyphsResolved)
	set("render.glyphs_refused", st.Render.GlyphsRefused)
	set("render.shape_cache_hits", st.Render.ShapeCacheHits)

	if err != nil {
		return nil, err
	}
	return doc, nil
}
