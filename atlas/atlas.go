// Package atlas rasterizes terminal glyphs into a shared texture page.
// Common tiers are generated up front; anything else is rasterized on
// demand and packed into the page with a shelf allocator. When the page
// fills up the atlas refuses new glyphs and hands out a fallback advance
// so text layout keeps moving.
package atlas

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	// ErrInvalidFont reports font data the sfnt parser rejects.
	ErrInvalidFont = errors.New("atlas: invalid font data")

	// ErrAtlasFull reports that the texture page has no room for another
	// glyph. The atlas refuses new glyphs from then on; callers lay out
	// missing characters with the fallback advance.
	ErrAtlasFull = errors.New("atlas: texture page full")
)

// Glyph is one rasterized character: its pixel rectangle in the atlas
// page, the normalized texture coordinates of that rectangle, and the
// metrics needed to place its quad against the baseline.
type Glyph struct {
	Rune rune

	// Rect is the pixel rectangle in the atlas page. Empty for glyphs
	// with no ink, such as space.
	Rect image.Rectangle

	// U0, V0, U1, V1 are the normalized texture coordinates of Rect.
	// Valid only while Generation matches the atlas generation.
	U0, V0, U1, V1 float32

	// Left and Top offset the rectangle from the pen position: Left from
	// the pen x, Top from the baseline y (negative above the baseline).
	Left, Top int

	// Advance is the pen advance in pixels.
	Advance float64

	// Generation is the atlas generation this glyph was packed under.
	Generation uint64
}

// Config holds atlas configuration.
type Config struct {
	// Size is the width and height of the square texture page in pixels.
	// Default: 512.
	Size int

	// FontSize is the rasterization size in pixels per em. Default: 16.
	FontSize float64

	// Padding is the gap between packed rectangles. Default: 1.
	Padding int
}

// DefaultConfig returns the default atlas configuration.
func DefaultConfig() Config {
	return Config{
		Size:     512,
		FontSize: 16,
		Padding:  1,
	}
}

// Stats holds atlas counters for the diagnostics surface.
type Stats struct {
	Glyphs      int
	Hits        uint64
	Misses      uint64
	Refused     uint64
	Generation  uint64
	Utilization float64
}

// Atlas owns one texture page of rasterized glyphs and the packing state
// behind it. Not safe for concurrent use; the engine drives it from the
// cooperative loop only.
type Atlas struct {
	cfg  Config
	font *opentype.Font
	face font.Face

	img    *image.Alpha
	packer *shelfPacker
	glyphs map[rune]Glyph

	// generation increments whenever the page is rebuilt, invalidating
	// every previously handed-out UV rectangle.
	generation uint64

	// exhausted latches once a placement fails. Logged a single time;
	// later misses fail fast without touching the rasterizer.
	exhausted bool

	ascent          int
	lineHeight      int
	cellWidth       float64
	fallbackAdvance float64
	dirty           bool

	hits, misses, refused uint64
}

// New parses font data and prepares an empty atlas page. No glyphs are
// rasterized yet; call EnsureTier or Glyph to populate it.
func New(data []byte, cfg Config) (*Atlas, error) {
	if cfg.Size <= 0 {
		cfg.Size = DefaultConfig().Size
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = DefaultConfig().FontSize
	}
	if cfg.Padding < 0 {
		cfg.Padding = DefaultConfig().Padding
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}

	a := &Atlas{
		cfg:    cfg,
		font:   f,
		img:    image.NewAlpha(image.Rect(0, 0, cfg.Size, cfg.Size)),
		packer: newShelfPacker(cfg.Size, cfg.Size, cfg.Padding),
		glyphs: make(map[rune]Glyph),
	}
	if err := a.openFace(); err != nil {
		return nil, err
	}
	return a, nil
}

// openFace creates the rasterization face at the configured size and
// derives the metrics the renderer lays out against.
func (a *Atlas) openFace() error {
	face, err := opentype.NewFace(a.font, &opentype.FaceOptions{
		Size:    a.cfg.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}
	if a.face != nil {
		_ = a.face.Close()
	}
	a.face = face

	m := face.Metrics()
	a.ascent = m.Ascent.Ceil()
	a.lineHeight = m.Height.Ceil()

	// Monospace cell width from a representative glyph; the fallback
	// advance reuses it so unplaceable glyphs still move the pen one cell.
	if adv, ok := face.GlyphAdvance('M'); ok {
		a.cellWidth = fixedToFloat(adv)
	} else {
		a.cellWidth = a.cfg.FontSize * 0.6
	}
	a.fallbackAdvance = a.cellWidth
	return nil
}

// Glyph returns the atlas entry for r, rasterizing it on demand. ok is
// false when the page is full or the font has no such glyph; the returned
// entry still carries the fallback advance so layout can continue.
func (a *Atlas) Glyph(r rune) (Glyph, bool) {
	if g, ok := a.glyphs[r]; ok {
		a.hits++
		return g, true
	}
	a.misses++
	g, err := a.generate(r)
	if err != nil {
		a.refused++
		return Glyph{Rune: r, Advance: a.fallbackAdvance, Generation: a.generation}, false
	}
	return g, true
}

// EnsureTier rasterizes every glyph of the tier that is not already in
// the page. Generation stops at the first failed placement and returns
// ErrAtlasFull; glyphs placed before the failure stay valid.
func (a *Atlas) EnsureTier(t Tier) error {
	for _, r := range t.Runes() {
		if _, ok := a.glyphs[r]; ok {
			continue
		}
		if _, err := a.generate(r); err != nil {
			if errors.Is(err, ErrAtlasFull) {
				return err
			}
			continue // font lacks the glyph, skip it
		}
	}
	return nil
}

// generate rasterizes one glyph and packs it into the page.
func (a *Atlas) generate(r rune) (Glyph, error) {
	if a.exhausted {
		return Glyph{}, ErrAtlasFull
	}

	bounds, advance, ok := a.face.GlyphBounds(r)
	if !ok {
		return Glyph{}, fmt.Errorf("atlas: font has no glyph for %q", r)
	}

	minX := bounds.Min.X.Floor()
	minY := bounds.Min.Y.Floor()
	maxX := bounds.Max.X.Ceil()
	maxY := bounds.Max.Y.Ceil()
	w := maxX - minX
	h := maxY - minY

	g := Glyph{
		Rune:       r,
		Left:       minX,
		Top:        minY,
		Advance:    fixedToFloat(advance),
		Generation: a.generation,
	}

	// Glyphs with no ink (space, NBSP) carry metrics only.
	if w > 0 && h > 0 {
		x, y, placed := a.packer.place(w, h)
		if !placed {
			if !a.exhausted {
				a.exhausted = true
				slogger().Warn("atlas page full, refusing new glyphs",
					"size", a.cfg.Size,
					"fontSize", a.cfg.FontSize,
					"glyphs", len(a.glyphs),
					"utilization", a.packer.utilization())
			}
			return Glyph{}, ErrAtlasFull
		}

		// Rasterize straight into the page. The dot is offset so the
		// glyph's bounding box lands exactly on the packed rectangle.
		d := font.Drawer{
			Dst:  a.img,
			Src:  image.White,
			Face: a.face,
			Dot: fixed.Point26_6{
				X: fixed.I(x) - bounds.Min.X,
				Y: fixed.I(y) - bounds.Min.Y,
			},
		}
		d.DrawString(string(r))

		g.Rect = image.Rect(x, y, x+w, y+h)
		size := float32(a.cfg.Size)
		g.U0 = float32(x) / size
		g.V0 = float32(y) / size
		g.U1 = float32(x+w) / size
		g.V1 = float32(y+h) / size
		a.dirty = true
	}

	a.glyphs[r] = g
	return g, nil
}

// SetFontSize rebuilds the page at a new rasterization size. Every glyph
// is dropped, the generation increments so stale UVs are recognizably
// invalid, and the ASCII tier is regenerated eagerly.
func (a *Atlas) SetFontSize(size float64) error {
	if size <= 0 {
		return fmt.Errorf("atlas: font size %v out of range", size)
	}
	a.cfg.FontSize = size
	if err := a.openFace(); err != nil {
		return err
	}
	a.reset()
	return a.EnsureTier(TierASCII)
}

// reset clears the page and bumps the generation.
func (a *Atlas) reset() {
	clear(a.img.Pix)
	a.packer.reset()
	a.glyphs = make(map[rune]Glyph)
	a.generation++
	a.exhausted = false
	a.dirty = true
}

// Image returns the alpha page backing the atlas. The caller uploads it
// as a single-channel texture; Dirty reports whether a re-upload is due.
func (a *Atlas) Image() *image.Alpha { return a.img }

// Size returns the page edge length in pixels.
func (a *Atlas) Size() int { return a.cfg.Size }

// Generation returns the current page generation. Glyphs whose
// Generation differs were packed into an earlier page and their UVs no
// longer point at valid texels.
func (a *Atlas) Generation() uint64 { return a.generation }

// Dirty reports whether the page changed since the last MarkClean.
func (a *Atlas) Dirty() bool { return a.dirty }

// MarkClean records that the page was uploaded.
func (a *Atlas) MarkClean() { a.dirty = false }

// FallbackAdvance returns the pen advance used for glyphs the atlas
// could not place.
func (a *Atlas) FallbackAdvance() float64 { return a.fallbackAdvance }

// CellWidth returns the advance of a representative monospace cell.
func (a *Atlas) CellWidth() float64 { return a.cellWidth }

// LineHeight returns the face line height in pixels.
func (a *Atlas) LineHeight() int { return a.lineHeight }

// Ascent returns the face ascent in pixels.
func (a *Atlas) Ascent() int { return a.ascent }

// FontSize returns the current rasterization size.
func (a *Atlas) FontSize() float64 { return a.cfg.FontSize }

// Close releases the rasterization face.
func (a *Atlas) Close() error {
	if a.face == nil {
		return nil
	}
	err := a.face.Close()
	a.face = nil
	return err
}

// Stats returns a snapshot of the atlas counters.
func (a *Atlas) Stats() Stats {
	return Stats{
		Glyphs:      len(a.glyphs),
		Hits:        a.hits,
		Misses:      a.misses,
		Refused:     a.refused,
		Generation:  a.generation,
		Utilization: a.packer.utilization(),
	}
}

// fixedToFloat converts a 26.6 fixed-point value to float64 pixels.
func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
