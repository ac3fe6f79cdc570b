package atlas

import (
	"errors"
	"image"
	"testing"

	"golang.org/x/image/font/gofont/gomono"
)

func newTestAtlas(t *testing.T, cfg Config) *Atlas {
	t.Helper()
	a, err := New(gomono.TTF, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestASCIITierFitsDefaultPage(t *testing.T) {
	a := newTestAtlas(t, Config{Size: 512, FontSize: 16})

	if err := a.EnsureTier(TierASCII); err != nil {
		t.Fatalf("EnsureTier(ASCII): %v", err)
	}
	if got := a.Stats().Glyphs; got != 95 {
		t.Errorf("glyph count = %d, want 95", got)
	}

	page := image.Rect(0, 0, a.Size(), a.Size())
	var rects []image.Rectangle
	area := 0
	for r := rune(0x20); r <= 0x7E; r++ {
		g, ok := a.Glyph(r)
		if !ok {
			t.Fatalf("Glyph(%q) refused", r)
		}
		if g.Rect.Empty() {
			continue // space has no ink
		}
		if !g.Rect.In(page) {
			t.Errorf("Glyph(%q) rect %v escapes page %v", r, g.Rect, page)
		}
		rects = append(rects, g.Rect)
		area += g.Rect.Dx() * g.Rect.Dy()
	}

	for i := 0; i < len(rects); i++ {
		for j := i + 1; j < len(rects); j++ {
			if rects[i].Overlaps(rects[j]) {
				t.Fatalf("rects %v and %v overlap", rects[i], rects[j])
			}
		}
	}
	if area > a.Size()*a.Size() {
		t.Errorf("glyph area %d exceeds page area %d", area, a.Size()*a.Size())
	}
}

func TestUVMatchesRect(t *testing.T) {
	a := newTestAtlas(t, DefaultConfig())

	g, ok := a.Glyph('W')
	if !ok {
		t.Fatal("Glyph('W') refused")
	}
	size := float32(a.Size())
	if g.U0*size != float32(g.Rect.Min.X) || g.V0*size != float32(g.Rect.Min.Y) ||
		g.U1*size != float32(g.Rect.Max.X) || g.V1*size != float32(g.Rect.Max.Y) {
		t.Errorf("UVs (%v,%v)-(%v,%v) do not denormalize to rect %v",
			g.U0, g.V0, g.U1, g.V1, g.Rect)
	}
	if g.U1 <= g.U0 || g.V1 <= g.V0 || g.U1 > 1 || g.V1 > 1 {
		t.Errorf("degenerate UV rect (%v,%v)-(%v,%v)", g.U0, g.V0, g.U1, g.V1)
	}
}

func TestOnDemandGlyphCaches(t *testing.T) {
	a := newTestAtlas(t, DefaultConfig())

	first, ok := a.Glyph('→')
	if !ok {
		t.Fatal("Glyph('→') refused")
	}
	second, ok := a.Glyph('→')
	if !ok || second != first {
		t.Errorf("second lookup = %+v, want cached %+v", second, first)
	}

	st := a.Stats()
	if st.Misses != 1 || st.Hits != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", st.Hits, st.Misses)
	}
}

func TestSpaceHasAdvanceWithoutInk(t *testing.T) {
	a := newTestAtlas(t, DefaultConfig())

	g, ok := a.Glyph(' ')
	if !ok {
		t.Fatal("Glyph(' ') refused")
	}
	if !g.Rect.Empty() {
		t.Errorf("space rect = %v, want empty", g.Rect)
	}
	if g.Advance <= 0 {
		t.Errorf("space advance = %v, want > 0", g.Advance)
	}
}

func TestExhaustionRefusesAndFallsBack(t *testing.T) {
	a := newTestAtlas(t, Config{Size: 32, FontSize: 16})

	err := a.EnsureTier(TierASCII)
	if !errors.Is(err, ErrAtlasFull) {
		t.Fatalf("EnsureTier on tiny page = %v, want ErrAtlasFull", err)
	}

	g, ok := a.Glyph('z')
	if ok {
		t.Fatal("Glyph('z') succeeded on an exhausted page")
	}
	if g.Advance != a.FallbackAdvance() {
		t.Errorf("refused glyph advance = %v, want fallback %v", g.Advance, a.FallbackAdvance())
	}
	if a.Stats().Refused == 0 {
		t.Error("Refused counter not incremented")
	}

	// Glyphs placed before exhaustion stay valid.
	if _, ok := a.Glyph('!'); !ok {
		t.Error("glyph placed before exhaustion was lost")
	}
}

func TestGlyphWiderThanPageIsRefused(t *testing.T) {
	// At 48px the glyph ink is wider than the whole 12px page, so no
	// row can ever hold it; the lookup must refuse instead of packing a
	// rect past the page edge.
	a := newTestAtlas(t, Config{Size: 12, FontSize: 48})

	g, ok := a.Glyph('M')
	if ok {
		t.Fatalf("Glyph('M') placed on a page narrower than the glyph: rect %v", g.Rect)
	}
	if !g.Rect.Empty() || g.U1 > 1 || g.V1 > 1 {
		t.Errorf("refused glyph carries geometry: rect %v uv (%v,%v)-(%v,%v)",
			g.Rect, g.U0, g.V0, g.U1, g.V1)
	}
	if g.Advance != a.FallbackAdvance() {
		t.Errorf("refused glyph advance = %v, want fallback %v", g.Advance, a.FallbackAdvance())
	}
	if a.Stats().Refused == 0 {
		t.Error("Refused counter not incremented")
	}
}

func TestSetFontSizeBumpsGeneration(t *testing.T) {
	a := newTestAtlas(t, DefaultConfig())

	before, _ := a.Glyph('A')
	if err := a.SetFontSize(24); err != nil {
		t.Fatalf("SetFontSize: %v", err)
	}

	if a.Generation() != before.Generation+1 {
		t.Errorf("generation = %d, want %d", a.Generation(), before.Generation+1)
	}
	after, ok := a.Glyph('A')
	if !ok {
		t.Fatal("Glyph('A') refused after rebuild")
	}
	if after.Generation != a.Generation() {
		t.Errorf("rebuilt glyph generation = %d, want %d", after.Generation, a.Generation())
	}
	if after.Advance <= before.Advance {
		t.Errorf("advance at 24px = %v, want > advance at 16px %v", after.Advance, before.Advance)
	}
}

func TestDirtyTracksUploads(t *testing.T) {
	a := newTestAtlas(t, DefaultConfig())

	if a.Dirty() {
		t.Error("fresh atlas reports dirty")
	}
	a.Glyph('Q')
	if !a.Dirty() {
		t.Error("atlas clean after packing a glyph")
	}
	a.MarkClean()
	if a.Dirty() {
		t.Error("atlas dirty after MarkClean")
	}
	a.Glyph('Q') // cached, no new packing
	if a.Dirty() {
		t.Error("cache hit dirtied the page")
	}
}

func TestShelfPackerRows(t *testing.T) {
	p := newShelfPacker(64, 64, 0)

	x0, y0, ok := p.place(32, 16)
	x1, y1, ok1 := p.place(32, 16)
	if !ok || !ok1 {
		t.Fatal("placements on empty packer failed")
	}
	if y0 != y1 {
		t.Errorf("same-height items split rows: y=%d,%d", y0, y1)
	}
	if x1 != x0+32 {
		t.Errorf("second item at x=%d, want %d", x1, x0+32)
	}

	_, y2, ok := p.place(32, 16)
	if !ok || y2 != 16 {
		t.Errorf("third item y=%d ok=%v, want new row at 16", y2, ok)
	}

	if _, _, ok := p.place(65, 1); ok {
		t.Error("placed an item wider than the page")
	}
}

func BenchmarkGlyphLookup(b *testing.B) {
	a, err := New(gomono.TTF, DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	defer a.Close()
	_ = a.EnsureTier(TierASCII)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Glyph(rune(0x20 + i%95))
	}
}
