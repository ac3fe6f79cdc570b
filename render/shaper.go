package render

import (
	"bytes"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// ShapedGlyph is one positioned glyph of a shaped line. Positions are
// pen-relative pixels; Rune keys the atlas lookup.
type ShapedGlyph struct {
	Rune     rune
	Cluster  int
	X, Y     float64
	XAdvance float64
}

// Shaper turns a line of text into positioned glyphs. Implementations
// return nil when they cannot shape the input; the renderer then falls
// back to fixed-advance shaping.
type Shaper interface {
	Shape(text string, size float64, rtl bool) []ShapedGlyph
}

// HarfbuzzLineShaper shapes lines through go-text/typesetting's
// HarfBuzz implementation, giving terminal output kerning, ligatures,
// and correct complex-script forms.
//
// Safe for concurrent use: the parsed *font.Font is read-only, a
// lightweight font.Face is created per Shape call (font.Face is NOT
// safe for concurrent use), and HarfbuzzShaper instances are pooled
// because they carry mutable buffers.
type HarfbuzzLineShaper struct {
	font *font.Font

	// shaperPool pools HarfbuzzShaper instances; each goroutine takes
	// its own for the duration of one Shape call.
	shaperPool sync.Pool
}

// NewHarfbuzzLineShaper parses font data for shaping.
func NewHarfbuzzLineShaper(data []byte) (*HarfbuzzLineShaper, error) {
	// ParseTTF returns a *Face embedding the thread-safe *Font; only
	// the Font is kept.
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &HarfbuzzLineShaper{
		font: face.Font,
		shaperPool: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
	}, nil
}

// Shape implements Shaper.
func (s *HarfbuzzLineShaper) Shape(text string, size float64, rtl bool) []ShapedGlyph {
	if text == "" {
		return nil
	}
	runes := []rune(text)

	dir := di.DirectionLTR
	if rtl {
		dir = di.DirectionRTL
	}

	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: dir,
		Face:      font.NewFace(s.font),
		Size:      floatToFixed(size),
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}

	hb := s.shaperPool.Get().(*shaping.HarfbuzzShaper)
	output := hb.Shape(input)
	s.shaperPool.Put(hb)

	return convertGlyphs(runes, output.Glyphs)
}

// FixedShaper is the fallback: left-to-right fixed positioning from
// per-rune advances, with no ligatures, kerning, or reordering. It is
// what a terminal grid degrades to when HarfBuzz shaping is
// unavailable or rejects the input.
//
// FixedShaper is stateless and safe for concurrent use.
type FixedShaper struct {
	// Advance returns the pen advance for one rune.
	Advance func(r rune) float64
}

// Shape implements Shaper.
func (s *FixedShaper) Shape(text string, _ float64, _ bool) []ShapedGlyph {
	if text == "" || s.Advance == nil {
		return nil
	}
	runes := []rune(text)
	out := make([]ShapedGlyph, 0, len(runes))

	var x float64
	for cluster, r := range runes {
		adv := s.Advance(r)
		out = append(out, ShapedGlyph{
			Rune:     r,
			Cluster:  cluster,
			X:        x,
			XAdvance: adv,
		})
		x += adv
	}
	return out
}

// convertGlyphs walks the shaper output accumulating pen positions and
// mapping each glyph back to the rune of its cluster for atlas lookup.
func convertGlyphs(runes []rune, glyphs []shaping.Glyph) []ShapedGlyph {
	if len(glyphs) == 0 {
		return nil
	}
	out := make([]ShapedGlyph, len(glyphs))

	var x float64
	for i, g := range glyphs {
		cluster := g.TextIndex()
		r := rune(0xFFFD)
		if cluster >= 0 && cluster < len(runes) {
			r = runes[cluster]
		}
		adv := fixedToFloat(g.Advance)
		out[i] = ShapedGlyph{
			Rune:     r,
			Cluster:  cluster,
			X:        x + fixedToFloat(g.XOffset),
			Y:        fixedToFloat(g.YOffset),
			XAdvance: adv,
		}
		x += adv
	}
	return out
}

// detectScript returns the script of the first non-space rune. A simple
// heuristic; mixed-script lines shape under the dominant first script.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
