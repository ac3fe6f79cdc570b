// Package scroll maintains the virtual viewport over the scrollback:
// which slice of lines is visible, padded by overscan rows on both
// sides. Window recomputation is coalesced to once per frame no matter
// how many scroll events or appends land in between.
package scroll

// Config holds scroller configuration.
type Config struct {
	// ViewportLines is the number of rows the viewport shows. Default: 40.
	ViewportLines int

	// Overscan is the number of extra rows rendered above and below the
	// viewport so small scrolls reveal already-rendered lines. Default: 5.
	Overscan int
}

// DefaultConfig returns the default scroller configuration.
func DefaultConfig() Config {
	return Config{
		ViewportLines: 40,
		Overscan:      5,
	}
}

// Window is the half-open line index range [Start, End) to render,
// overscan included.
type Window struct {
	Start int
	End   int
}

// Len returns the number of lines in the window.
func (w Window) Len() int { return w.End - w.Start }

// Contains reports whether line index i falls inside the window.
func (w Window) Contains(i int) bool { return i >= w.Start && i < w.End }

// Stats holds scroller counters for the diagnostics surface.
type Stats struct {
	Recomputes uint64
	Coalesced  uint64
}

// Scroller tracks the scroll position over a line total and derives the
// render window from it. Mutations only mark the window dirty; the
// engine calls Recompute once per frame, so a burst of appends and
// scroll events between frames costs a single recomputation.
//
// Not safe for concurrent use.
type Scroller struct {
	cfg Config

	pos    int // top visible line
	total  int
	pinned bool
	win    Window

	// enabled selects virtualization. Disabled, the window spans every
	// line and the pre-disable position is parked for restore.
	enabled   bool
	savedPos  int
	savedPin  bool
	haveSaved bool

	dirty      bool
	recomputes uint64
	coalesced  uint64
}

// New creates an enabled scroller pinned to the bottom.
func New(cfg Config) *Scroller {
	if cfg.ViewportLines < 1 {
		cfg.ViewportLines = DefaultConfig().ViewportLines
	}
	if cfg.Overscan < 0 {
		cfg.Overscan = DefaultConfig().Overscan
	}
	return &Scroller{
		cfg:     cfg,
		enabled: true,
		pinned:  true,
		dirty:   true,
	}
}

// SetTotal updates the line total. While pinned the position follows the
// bottom, so freshly appended lines scroll into view on the next frame.
func (s *Scroller) SetTotal(total int) {
	if total < 0 {
		total = 0
	}
	if total == s.total {
		return
	}
	s.total = total
	if s.pinned {
		s.pos = s.maxPos()
	} else {
		s.pos = clamp(s.pos, 0, s.maxPos())
	}
	s.markDirty()
}

// ScrollTo moves the top visible line to pos, clamped to the valid
// range. Scrolling to the bottom re-pins; anywhere else unpins.
func (s *Scroller) ScrollTo(pos int) {
	s.pos = clamp(pos, 0, s.maxPos())
	s.pinned = s.pos == s.maxPos()
	s.markDirty()
}

// ScrollBy moves the viewport by delta lines, positive toward newer.
func (s *Scroller) ScrollBy(delta int) {
	s.ScrollTo(s.pos + delta)
}

// PinToBottom jumps to the newest lines and keeps following appends.
func (s *Scroller) PinToBottom() {
	s.pinned = true
	s.pos = s.maxPos()
	s.markDirty()
}

// Pinned reports whether the viewport follows the bottom.
func (s *Scroller) Pinned() bool { return s.pinned }

// Pos returns the top visible line index.
func (s *Scroller) Pos() int { return s.pos }

// SetViewportLines resizes the viewport row count.
func (s *Scroller) SetViewportLines(n int) {
	if n < 1 || n == s.cfg.ViewportLines {
		return
	}
	s.cfg.ViewportLines = n
	if s.pinned {
		s.pos = s.maxPos()
	} else {
		s.pos = clamp(s.pos, 0, s.maxPos())
	}
	s.markDirty()
}

// Disable turns virtualization off: the window spans every line until
// Enable restores the parked position and pin state.
func (s *Scroller) Disable() {
	if !s.enabled {
		return
	}
	s.savedPos = s.pos
	s.savedPin = s.pinned
	s.haveSaved = true
	s.enabled = false
	s.markDirty()
}

// Enable turns virtualization back on, restoring the position and pin
// state active when Disable was called.
func (s *Scroller) Enable() {
	if s.enabled {
		return
	}
	s.enabled = true
	if s.haveSaved {
		s.pos = clamp(s.savedPos, 0, s.maxPos())
		s.pinned = s.savedPin
		s.haveSaved = false
	}
	if s.pinned {
		s.pos = s.maxPos()
	}
	s.markDirty()
}

// Enabled reports whether virtualization is on.
func (s *Scroller) Enabled() bool { return s.enabled }

// Recompute derives the window from the current position if anything
// changed since the last call. The engine invokes it once per frame;
// the return value reports whether the window moved.
func (s *Scroller) Recompute() bool {
	if !s.dirty {
		return false
	}
	s.dirty = false
	s.recomputes++

	if !s.enabled {
		s.win = Window{Start: 0, End: s.total}
		return true
	}
	s.win = Window{
		Start: clamp(s.pos-s.cfg.Overscan, 0, s.total),
		End:   clamp(s.pos+s.cfg.ViewportLines+s.cfg.Overscan, 0, s.total),
	}
	return true
}

// Window returns the render window computed by the last Recompute.
func (s *Scroller) Window() Window { return s.win }

// Stats returns a snapshot of the scroller counters.
func (s *Scroller) Stats() Stats {
	return Stats{Recomputes: s.recomputes, Coalesced: s.coalesced}
}

func (s *Scroller) markDirty() {
	if s.dirty {
		s.coalesced++
		return
	}
	s.dirty = true
}

// maxPos is the highest valid top line: the last full viewport.
func (s *Scroller) maxPos() int {
	m := s.total - s.cfg.ViewportLines
	if m < 0 {
		return 0
	}
	return m
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
