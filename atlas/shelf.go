package atlas

// shelfPacker packs glyph rectangles into horizontal rows. Terminal glyphs
// at one font size have near-uniform heights, so the simple shelf strategy
// wastes very little space and allocates in O(rows).
type shelfPacker struct {
	width   int
	height  int
	padding int
	rows    []shelfRow

	used int // sum of placed rectangle areas, without padding
}

// shelfRow is one horizontal strip. Items fill it left to right.
type shelfRow struct {
	y      int // top of the row
	height int // tallest item placed so far
	x      int // next free x
}

func newShelfPacker(width, height, padding int) *shelfPacker {
	return &shelfPacker{
		width:   width,
		height:  height,
		padding: padding,
		rows:    make([]shelfRow, 0, 16),
	}
}

// place finds room for a w×h rectangle. It scans existing rows for one tall
// enough with horizontal space left, then opens a new row below the last.
// Returns false when neither fits; the packer never reshuffles placed items.
func (p *shelfPacker) place(w, h int) (x, y int, ok bool) {
	pw := w + p.padding
	ph := h + p.padding

	// An item wider than the page can never fit, existing row or new.
	if pw > p.width {
		return 0, 0, false
	}

	for i := range p.rows {
		row := &p.rows[i]
		if h > row.height || row.x+pw > p.width {
			continue
		}
		x, y = row.x, row.y
		row.x += pw
		p.used += w * h
		return x, y, true
	}

	newY := 0
	if n := len(p.rows); n > 0 {
		last := p.rows[n-1]
		newY = last.y + last.height + p.padding
	}
	if newY+ph > p.height {
		return 0, 0, false
	}
	p.rows = append(p.rows, shelfRow{y: newY, height: h, x: pw})
	p.used += w * h
	return 0, newY, true
}

// reset drops every row, keeping capacity.
func (p *shelfPacker) reset() {
	p.rows = p.rows[:0]
	p.used = 0
}

// utilization returns the fraction of the atlas area covered by placed
// rectangles, 0.0 to 1.0.
func (p *shelfPacker) utilization() float64 {
	total := p.width * p.height
	if total == 0 {
		return 0
	}
	return float64(p.used) / float64(total)
}
