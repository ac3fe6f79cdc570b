// Package render composes retained terminal lines into glyph quads. The
// Renderer walks each visible line through a fixed pipeline: shape the
// text into positioned glyphs, resolve every glyph against the font
// atlas, batch the resulting quads by style run, and cache the composed
// geometry so unchanged lines skip straight from cache to batch on
// later frames.
package render

import (
	"encoding/binary"
	"hash/fnv"
	"io"
	"strconv"

	"github.com/rivo/uniseg"

	"github.com/gogpu/termgfx/atlas"
	"github.com/gogpu/termgfx/batch"
	"github.com/gogpu/termgfx/cache"
	"github.com/gogpu/termgfx/termbuf"
)

// State is the pipeline stage a line currently occupies. The renderer
// is idle between lines; each RenderLine call advances through shaping,
// glyph resolution, and batching, and lands on cached once the composed
// geometry is stored.
type State uint8

const (
	StateIdle State = iota
	StateShaping
	StateGlyphResolution
	StateBatching
	StateCached
)

// String returns the stage name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateShaping:
		return "shaping"
	case StateGlyphResolution:
		return "glyph-resolution"
	case StateBatching:
		return "batching"
	case StateCached:
		return "cached"
	default:
		return "unknown"
	}
}

// Config holds renderer configuration.
type Config struct {
	// ShapeCacheCapacity is the per-shard capacity of the shaped-run
	// memo. Default: 256.
	ShapeCacheCapacity int

	// DefaultStyle renders spans of a line no style covers. The zero
	// value selects a light-gray foreground.
	DefaultStyle termbuf.Style
}

// DefaultConfig returns the default renderer configuration.
func DefaultConfig() Config {
	return Config{
		ShapeCacheCapacity: 256,
		DefaultStyle:       termbuf.Style{Foreground: termbuf.RGB(229, 229, 229)},
	}
}

// Stats holds renderer counters for the diagnostics surface.
type Stats struct {
	Lines          uint64
	CachedLines    uint64
	ShapedLines    uint64
	FallbackLines  uint64
	GlyphsResolved uint64
	GlyphsRefused  uint64
	ShapeCacheHits uint64
}

// Renderer composes lines into the batcher. Not safe for concurrent
// use; it belongs to the engine loop. The shaped-run memo underneath is
// sharded and thread-safe, so it may be warmed from other goroutines.
type Renderer struct {
	cfg      Config
	atlas    *atlas.Atlas
	batcher  *batch.Renderer
	cache    *cache.Manager
	shaped   *cache.Sharded[string, []ShapedGlyph]
	shaper   Shaper
	fallback Shaper

	state State

	lines         uint64
	cachedLines   uint64
	shapedLines   uint64
	fallbackLines uint64
	resolved      uint64
	refused       uint64
}

// New creates a renderer. shaper may be nil, in which case every line
// takes the fixed-advance fallback path.
func New(a *atlas.Atlas, b *batch.Renderer, m *cache.Manager, shaper Shaper, cfg Config) *Renderer {
	if cfg.ShapeCacheCapacity <= 0 {
		cfg.ShapeCacheCapacity = DefaultConfig().ShapeCacheCapacity
	}
	if cfg.DefaultStyle == (termbuf.Style{}) {
		cfg.DefaultStyle = DefaultConfig().DefaultStyle
	}
	return &Renderer{
		cfg:     cfg,
		atlas:   a,
		batcher: b,
		cache:   m,
		shaped:  cache.NewSharded[string, []ShapedGlyph](cfg.ShapeCacheCapacity, cache.StringHasher),
		shaper:  shaper,
		fallback: &FixedShaper{Advance: func(r rune) float64 {
			if g, ok := a.Glyph(r); ok {
				return g.Advance
			}
			return a.FallbackAdvance()
		}},
	}
}

// State returns the current pipeline stage.
func (r *Renderer) State() State { return r.state }

// RenderLine composes one line at pen origin (x, y) and feeds its quads
// to the batcher. A cached composition is replayed directly; otherwise
// the line is shaped, resolved against the atlas, batched by style run,
// and its geometry cached under opts.
func (r *Renderer) RenderLine(line *termbuf.Line, x, y float64, opacity float32, opts cache.SetOptions) error {
	r.lines++
	defer func() { r.state = StateIdle }()

	key := r.lineKey(line, x, y)
	if payload, ok := r.cache.Get(key); ok {
		runs, err := decodeRuns(payload)
		if err == nil {
			r.state = StateCached
			r.cachedLines++
			return r.emit(runs, opacity)
		}
		// A corrupt payload falls through to a full re-compose.
		slogger().Warn("cached composition corrupt, recomposing",
			"seq", line.Seq, "error", err)
		r.cache.Delete(key)
	}

	r.state = StateShaping
	glyphs := r.shape(line)

	r.state = StateGlyphResolution
	runs := r.resolve(line, glyphs, x, y)

	r.state = StateBatching
	if err := r.emit(runs, opacity); err != nil {
		return err
	}

	r.state = StateCached
	r.cache.Set(key, encodeRuns(runs), opts)
	return nil
}

// InvalidateLine drops the cached composition of a line at one pen
// origin, forcing the next RenderLine to re-compose it.
func (r *Renderer) InvalidateLine(line *termbuf.Line, x, y float64) {
	r.cache.Delete(r.lineKey(line, x, y))
}

// shape turns the line's text into positioned glyphs, memoizing by text
// and font size. The fallback shaper covers empty primary output so a
// shaping failure degrades to fixed advances instead of a blank line.
func (r *Renderer) shape(line *termbuf.Line) []ShapedGlyph {
	rtl := line.Dir == termbuf.DirectionRTL
	size := r.atlas.FontSize()

	fellBack := false
	glyphs := r.shaped.GetOrCreate(shapeKey(line.Text, size, rtl), func() []ShapedGlyph {
		if r.shaper != nil {
			if out := r.shaper.Shape(line.Text, size, rtl); len(out) > 0 {
				return out
			}
		}
		fellBack = true
		return r.fallback.Shape(line.Text, size, rtl)
	})
	if fellBack {
		r.fallbackLines++
	} else {
		r.shapedLines++
	}
	return glyphs
}

// resolve looks up every shaped glyph in the atlas and groups the
// resulting quads into same-color runs. Glyphs the atlas refuses
// contribute no quad; their pen space is already reserved by the
// shaper's advances. Span ranges are cell ranges, while glyph clusters
// index runes, so styling goes through the rune-to-cell mapping.
func (r *Renderer) resolve(line *termbuf.Line, glyphs []ShapedGlyph, x, y float64) []styledRun {
	baseline := y + float64(r.atlas.Ascent())

	var cells []int
	if len(line.Spans) > 0 {
		cells = cellOffsets(line.Text)
	}

	var runs []styledRun
	for _, sg := range glyphs {
		g, ok := r.atlas.Glyph(sg.Rune)
		if !ok {
			r.refused++
			continue
		}
		r.resolved++
		if g.Rect.Empty() {
			continue // no ink
		}

		cell := sg.Cluster
		if cell >= 0 && cell < len(cells) {
			cell = cells[cell]
		}
		color := rgbaOf(r.styleAt(line, cell).Effective())
		if len(runs) == 0 || runs[len(runs)-1].Color != color {
			runs = append(runs, styledRun{Color: color})
		}
		cur := &runs[len(runs)-1]

		qx0 := float32(x + sg.X + float64(g.Left))
		qy0 := float32(baseline + sg.Y + float64(g.Top))
		cur.Quads = append(cur.Quads, batch.Quad{
			X0: qx0,
			Y0: qy0,
			X1: qx0 + float32(g.Rect.Dx()),
			Y1: qy0 + float32(g.Rect.Dy()),
			U0: g.U0, V0: g.V0, U1: g.U1, V1: g.V1,
		})
	}
	return runs
}

// emit feeds composed runs to the batcher, one Begin per color run. The
// texture is the live atlas generation, which the cache key pins, so
// replayed UVs always match the page they were packed under.
func (r *Renderer) emit(runs []styledRun, opacity float32) error {
	texture := batch.TextureID(r.atlas.Generation())
	for _, run := range runs {
		r.batcher.Begin(texture, run.Color, opacity)
		if err := r.batcher.AddAll(run.Quads); err != nil {
			return err
		}
	}
	return nil
}

// cellOffsets maps each rune index of text to the terminal cell its
// grapheme starts at, under the same width rules the buffer measures
// lines with. Wide East-Asian characters occupy two cells, so rune
// indices and cells diverge past the first wide glyph.
func cellOffsets(text string) []int {
	offsets := make([]int, 0, len(text))
	cell := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		for range g.Runes() {
			offsets = append(offsets, cell)
		}
		cell += g.Width()
	}
	return offsets
}

// styleAt returns the style covering one cell of the line, or the
// default style when no span does.
func (r *Renderer) styleAt(line *termbuf.Line, cell int) termbuf.Style {
	for _, s := range line.Spans {
		if cell >= s.Start && cell < s.End {
			return s.Style
		}
	}
	return r.cfg.DefaultStyle
}

// lineKey builds the composition cache key. It pins everything the
// cached geometry depends on: content and styling (hashed), pen origin,
// font size, and the atlas generation the UVs reference.
func (r *Renderer) lineKey(line *termbuf.Line, x, y float64) string {
	h := fnv.New64a()
	_, _ = io.WriteString(h, line.Text)
	var buf [8]byte
	for _, s := range line.Spans {
		binary.LittleEndian.PutUint32(buf[:4], uint32(s.Start))
		binary.LittleEndian.PutUint32(buf[4:], uint32(s.End))
		_, _ = h.Write(buf[:])
		_, _ = h.Write(styleBytes(s.Style))
	}

	key := make([]byte, 0, 80)
	key = append(key, "line:"...)
	key = strconv.AppendUint(key, h.Sum64(), 16)
	key = append(key, ':')
	key = strconv.AppendFloat(key, x, 'g', -1, 64)
	key = append(key, ':')
	key = strconv.AppendFloat(key, y, 'g', -1, 64)
	key = append(key, ':')
	key = strconv.AppendFloat(key, r.atlas.FontSize(), 'g', -1, 64)
	key = append(key, ':')
	key = strconv.AppendUint(key, r.atlas.Generation(), 10)
	return string(key)
}

func shapeKey(text string, size float64, rtl bool) string {
	key := make([]byte, 0, len(text)+16)
	key = strconv.AppendFloat(key, size, 'g', -1, 64)
	if rtl {
		key = append(key, ":r:"...)
	} else {
		key = append(key, ":l:"...)
	}
	return string(append(key, text...))
}

func styleBytes(s termbuf.Style) []byte {
	b := make([]byte, 0, 12)
	b = append(b, s.Foreground.R, s.Foreground.G, s.Foreground.B, s.Foreground.A)
	b = append(b, s.Background.R, s.Background.G, s.Background.B, s.Background.A)
	var flags byte
	if s.Bold {
		flags |= 1
	}
	if s.Dim {
		flags |= 2
	}
	if s.Underline {
		flags |= 4
	}
	if s.Inverse {
		flags |= 8
	}
	return append(b, flags)
}

func rgbaOf(c termbuf.Color) batch.RGBA {
	return batch.RGBA{
		R: float32(c.R) / 255,
		G: float32(c.G) / 255,
		B: float32(c.B) / 255,
		A: float32(c.A) / 255,
	}
}

// Stats returns a snapshot of the renderer counters.
func (r *Renderer) Stats() Stats {
	return Stats{
		Lines:          r.lines,
		CachedLines:    r.cachedLines,
		ShapedLines:    r.shapedLines,
		FallbackLines:  r.fallbackLines,
		GlyphsResolved: r.resolved,
		GlyphsRefused:  r.refused,
		ShapeCacheHits: r.shaped.Stats().Hits,
	}
}
