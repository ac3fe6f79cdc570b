package termgfx

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/termgfx/atlas"
	"github.com/gogpu/termgfx/batch"
	"github.com/gogpu/termgfx/cache"
	"github.com/gogpu/termgfx/render"
	"github.com/gogpu/termgfx/sched"
	"github.com/gogpu/termgfx/scroll"
	"github.com/gogpu/termgfx/termbuf"
)

var (
	// ErrNoFont is returned when the engine is constructed without font data.
	ErrNoFont = errors.New("termgfx: config has no font data")

	// ErrNoPipeline is returned by GPU frame calls on a headless engine.
	ErrNoPipeline = errors.New("termgfx: engine has no GPU pipeline attached")
)

// overscanTTL expires cached compositions of rows outside the strict
// viewport, so scrolled-past geometry ages out on its own.
const overscanTTL = 5 * time.Second

// Engine is the terminal text engine: scrollback, atlas, scroller,
// caches, scheduler, and the composition pipeline wired into one
// explicit context object. The host streams lines in with AddLine and
// drives rendering with Frame.
//
// The Engine is not safe for concurrent use; it belongs to the host's
// render loop.
type Engine struct {
	cfg Config

	buf      *termbuf.Buffer
	atlas    *atlas.Atlas
	batcher  *batch.Renderer
	scroller *scroll.Scroller
	cache    *cache.Manager
	sched    *sched.Scheduler
	renderer *render.Renderer

	// pipeline is nil on headless engines; their Submitter is host-provided.
	pipeline *batch.Pipeline

	frames uint64
}

// New creates a headless engine that submits finished batches to sub.
// Use NewEngineGPU to draw through a shared GPU device instead.
func New(sub batch.Submitter, cfg Config) (*Engine, error) {
	if len(cfg.Font) == 0 {
		return nil, ErrNoFont
	}
	cfg = cfg.withDefaults()

	acfg := atlas.DefaultConfig()
	acfg.Size = cfg.AtlasSize
	acfg.FontSize = cfg.FontSize
	a, err := atlas.New(cfg.Font, acfg)
	if err != nil {
		return nil, fmt.Errorf("termgfx: %w", err)
	}
	// Warm the page with the glyphs nearly every frame needs. A page too
	// small even for ASCII still works through fallback advances.
	if err := a.EnsureTier(atlas.TierASCII); err != nil {
		Logger().Warn("atlas page too small for ASCII tier", "size", cfg.AtlasSize, "error", err)
	}

	var shaper render.Shaper
	if !cfg.NoShaping {
		hb, err := render.NewHarfbuzzLineShaper(cfg.Font)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("termgfx: shaper: %w", err)
		}
		shaper = hb
	}

	e := &Engine{
		cfg:      cfg,
		buf:      termbuf.New(termbuf.Config{Scrollback: cfg.Scrollback}),
		atlas:    a,
		batcher:  batch.New(sub, batch.Config{MaxBatchSize: cfg.MaxBatchSize}),
		scroller: scroll.New(scroll.Config{ViewportLines: cfg.ViewportLines, Overscan: cfg.Overscan}),
		cache:    cache.NewManager(cfg.Cache),
		sched:    sched.New(sched.Config{MaintenanceInterval: cfg.MaintenanceInterval}),
	}
	e.renderer = render.New(a, e.batcher, e.cache, shaper, render.DefaultConfig())

	e.buf.OnAppend(func() { e.scroller.SetTotal(e.buf.Len()) })
	e.sched.RegisterMaintenance("index-compact", e.buf.Maintain)
	e.sched.RegisterMaintenance("cache", e.cache.Maintain)

	Logger().Info("engine created",
		"scrollback", cfg.Scrollback,
		"font_size", cfg.FontSize,
		"atlas_size", cfg.AtlasSize,
		"shaping", !cfg.NoShaping)
	return e, nil
}

// NewEngineGPU creates an engine drawing through the host's GPU device.
// The handle must expose HAL resources the way gogpu's context does.
func NewEngineGPU(handle DeviceHandle, cfg Config) (*Engine, error) {
	device, queue, err := halResources(handle)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	p, err := batch.NewPipeline(device, queue, cfg.AtlasSize, cfg.MaxBatchSize,
		batch.BuildIndexData(cfg.MaxBatchSize))
	if err != nil {
		return nil, fmt.Errorf("termgfx: %w", err)
	}
	e, err := New(p, cfg)
	if err != nil {
		p.Destroy()
		return nil, err
	}
	e.pipeline = p
	return e, nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Scrollback < 1 {
		c.Scrollback = def.Scrollback
	}
	if c.FontSize <= 0 {
		c.FontSize = def.FontSize
	}
	if c.AtlasSize < 1 {
		c.AtlasSize = def.AtlasSize
	}
	if c.ViewportLines < 1 {
		c.ViewportLines = def.ViewportLines
	}
	if c.Overscan < 0 {
		c.Overscan = def.Overscan
	}
	if c.MaxBatchSize < 1 {
		c.MaxBatchSize = def.MaxBatchSize
	}
	if c.MaxBatchSize > batch.MaxIndexedQuads {
		c.MaxBatchSize = batch.MaxIndexedQuads
	}
	if c.Cache == (cache.Config{}) {
		c.Cache = def.Cache
	}
	return c
}

// AddLine appends one styled line to the scrollback. Called for every
// inbound line of streamed output; the heavy work happens at the next
// Frame, not here.
func (e *Engine) AddLine(text string, spans ...termbuf.Span) {
	e.buf.AddLine(text, spans)
}

// Post schedules fn for the start of the next frame. A non-empty key
// coalesces repeated posts into one run.
func (e *Engine) Post(key string, fn func()) { e.sched.Post(key, fn) }

// Frame runs one engine frame: scheduled tasks, the window recompute,
// composition of every visible line, the atlas upload if the page
// changed, and the final flush of pending batches to the submitter.
//
// On a GPU engine, bracket Frame with BeginFrame and EndFrame.
func (e *Engine) Frame(now time.Time) error {
	e.frames++

	e.sched.RunFrame(now)
	e.scroller.SetTotal(e.buf.Len())
	e.scroller.Recompute()

	win := e.scroller.Window()
	lineHeight := e.atlas.LineHeight()
	top := e.scroller.Pos()
	for i := win.Start; i < win.End; i++ {
		line, ok := e.buf.Line(i)
		if !ok {
			break
		}
		y := float64((i - top) * lineHeight)

		// Strict-viewport rows are the hot set; overscan rows expire.
		opts := cache.SetOptions{Priority: cache.PriorityHigh}
		if i < top || i >= top+e.cfg.ViewportLines {
			opts = cache.SetOptions{TTL: overscanTTL}
		}
		if err := e.renderer.RenderLine(line, 0, y, 1, opts); err != nil {
			return err
		}
		line.Dirty = false
	}

	if e.pipeline != nil && e.atlas.Dirty() {
		e.pipeline.UploadAtlas(e.atlas.Image())
		e.atlas.MarkClean()
	}
	return e.batcher.FlushAll()
}

// BeginFrame opens a GPU frame on the attached pipeline, recording into
// the host's render pass.
func (e *Engine) BeginFrame(rp hal.RenderPassEncoder, viewW, viewH float32) error {
	if e.pipeline == nil {
		return ErrNoPipeline
	}
	e.pipeline.BeginFrame(rp, viewW, viewH)
	return nil
}

// EndFrame releases the frame's transient GPU resources. Call it after
// the render pass that consumed them was submitted.
func (e *Engine) EndFrame() {
	if e.pipeline != nil {
		e.pipeline.EndFrame()
	}
}

// ScrollTo moves the viewport so line index pos is the top visible row.
func (e *Engine) ScrollTo(pos int) { e.scroller.ScrollTo(pos) }

// ScrollBy moves the viewport by delta rows.
func (e *Engine) ScrollBy(delta int) { e.scroller.ScrollBy(delta) }

// PinToBottom re-enables follow mode: the viewport tracks appends.
func (e *Engine) PinToBottom() { e.scroller.PinToBottom() }

// Pinned reports whether the viewport follows appends.
func (e *Engine) Pinned() bool { return e.scroller.Pinned() }

// SetViewportLines resizes the viewport row count.
func (e *Engine) SetViewportLines(n int) {
	e.scroller.SetViewportLines(n)
	if n > 0 {
		e.cfg.ViewportLines = n
	}
}

// EnableScrolling restores windowed rendering after a Disable.
func (e *Engine) EnableScrolling() { e.scroller.Enable() }

// DisableScrolling renders the full scrollback until re-enabled.
func (e *Engine) DisableScrolling() { e.scroller.Disable() }

// SetFontSize rebuilds the atlas at a new rasterization size. Cached
// compositions keyed under the old size or generation simply stop
// matching and age out.
func (e *Engine) SetFontSize(size float64) error {
	return e.atlas.SetFontSize(size)
}

// Search returns the retained lines whose indexed words include word.
func (e *Engine) Search(word string) []*termbuf.Line {
	return e.buf.Search(word)
}

// Line returns the i-th oldest retained line.
func (e *Engine) Line(i int) (*termbuf.Line, bool) { return e.buf.Line(i) }

// Len returns the number of retained lines.
func (e *Engine) Len() int { return e.buf.Len() }

// Window returns the currently composed line range.
func (e *Engine) Window() scroll.Window { return e.scroller.Window() }

// Atlas exposes the glyph atlas, letting headless hosts upload the page
// themselves when it is dirty.
func (e *Engine) Atlas() *atlas.Atlas { return e.atlas }

// Clear drops the scrollback and every cached composition.
func (e *Engine) Clear() {
	e.buf.Clear()
	e.cache.Clear()
	e.scroller.SetTotal(0)
}

// Close releases the engine's GPU and font resources.
func (e *Engine) Close() error {
	if e.pipeline != nil {
		e.pipeline.Destroy()
		e.pipeline = nil
	}
	return e.atlas.Close()
}
