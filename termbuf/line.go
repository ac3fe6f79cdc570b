package termbuf

import (
	"time"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/bidi"
)

// Direction is the resolved base direction of a stored line.
type Direction uint8

const (
	DirectionLTR Direction = iota
	DirectionRTL
)

// Line is one retained row of terminal output. Lines live in ring slots and
// are recycled through an object pool on overwrite, so every mutable field
// must be cleared by resetLine before reuse.
type Line struct {
	// Seq is the monotonically increasing sequence number assigned on
	// append. It survives eviction of earlier lines and keys the word index.
	Seq uint64

	// Text is the raw line content, without trailing newline.
	Text string

	// Spans carries the per-segment style attributes, sorted by Start.
	Spans []Span

	// Cells is the display width in terminal cells (grapheme- and
	// East-Asian-width-aware).
	Cells int

	// Dir is the resolved base direction.
	Dir Direction

	// Time is the append timestamp.
	Time time.Time

	// Dirty marks the line as needing re-render.
	Dirty bool
}

// resetLine clears every mutable field. Slices keep capacity but drop
// contents so no stale span styles leak into a recycled line.
func resetLine(l *Line) {
	l.Seq = 0
	l.Text = ""
	l.Spans = l.Spans[:0]
	l.Cells = 0
	l.Dir = DirectionLTR
	l.Time = time.Time{}
	l.Dirty = false
}

// lineCells measures text in terminal cells. Grapheme clusters count once
// and wide East-Asian characters count twice, matching how the renderer
// advances the pen.
func lineCells(text string) int {
	return uniseg.StringWidth(text)
}

// detectDirection resolves the base direction of text using the Unicode
// bidi algorithm. Lines with no strong RTL run are LTR.
func detectDirection(text string) Direction {
	if text == "" {
		return DirectionLTR
	}
	p := bidi.Paragraph{}
	if _, err := p.SetString(text, bidi.DefaultDirection(bidi.Neutral)); err != nil {
		return DirectionLTR
	}
	ordering, err := p.Order()
	if err != nil {
		return DirectionLTR
	}
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		if run.Direction() == bidi.RightToLeft {
			return DirectionRTL
		}
	}
	return DirectionLTR
}
