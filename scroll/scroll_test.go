package scroll

import "testing"

func recompute(t *testing.T, s *Scroller) Window {
	t.Helper()
	s.Recompute()
	return s.Window()
}

func TestWindowWithOverscan(t *testing.T) {
	s := New(Config{ViewportLines: 10, Overscan: 3})
	s.SetTotal(100)
	s.ScrollTo(50)

	w := recompute(t, s)
	if w.Start != 47 || w.End != 63 {
		t.Errorf("window = [%d,%d), want [47,63)", w.Start, w.End)
	}
}

func TestWindowClampsAtEdges(t *testing.T) {
	s := New(Config{ViewportLines: 10, Overscan: 5})
	s.SetTotal(100)

	s.ScrollTo(0)
	if w := recompute(t, s); w.Start != 0 {
		t.Errorf("top window start = %d, want 0", w.Start)
	}

	s.ScrollTo(1000) // clamps to bottom
	w := recompute(t, s)
	if w.End != 100 {
		t.Errorf("bottom window end = %d, want 100", w.End)
	}
	if s.Pos() != 90 {
		t.Errorf("clamped pos = %d, want 90", s.Pos())
	}
}

func TestShortBufferWindow(t *testing.T) {
	s := New(Config{ViewportLines: 40, Overscan: 5})
	s.SetTotal(7)

	w := recompute(t, s)
	if w.Start != 0 || w.End != 7 {
		t.Errorf("window = [%d,%d), want [0,7)", w.Start, w.End)
	}
}

func TestPinnedFollowsAppends(t *testing.T) {
	s := New(Config{ViewportLines: 10, Overscan: 0})
	s.SetTotal(50)

	if !s.Pinned() {
		t.Fatal("fresh scroller not pinned")
	}
	if w := recompute(t, s); w.End != 50 {
		t.Errorf("pinned window end = %d, want 50", w.End)
	}

	s.SetTotal(60)
	if w := recompute(t, s); w.Start != 50 || w.End != 60 {
		t.Errorf("window after appends = [%d,%d), want [50,60)", w.Start, w.End)
	}
}

func TestScrollingUpUnpins(t *testing.T) {
	s := New(Config{ViewportLines: 10, Overscan: 0})
	s.SetTotal(100)

	s.ScrollBy(-20)
	if s.Pinned() {
		t.Fatal("still pinned after scrolling up")
	}
	before := recompute(t, s)

	// Appends no longer move an unpinned viewport.
	s.SetTotal(150)
	after := recompute(t, s)
	if after != before {
		t.Errorf("unpinned window moved from %+v to %+v on append", before, after)
	}

	s.PinToBottom()
	if w := recompute(t, s); w.End != 150 {
		t.Errorf("window end after re-pin = %d, want 150", w.End)
	}
}

func TestScrollToBottomRePins(t *testing.T) {
	s := New(Config{ViewportLines: 10, Overscan: 0})
	s.SetTotal(100)
	s.ScrollTo(40)
	if s.Pinned() {
		t.Fatal("pinned in the middle")
	}
	s.ScrollTo(90) // exactly maxPos
	if !s.Pinned() {
		t.Error("not pinned after scrolling to the bottom")
	}
}

func TestRecomputeCoalescesPerFrame(t *testing.T) {
	s := New(Config{ViewportLines: 10, Overscan: 2})

	// A burst of mutations between frames costs one recompute.
	s.SetTotal(100)
	s.ScrollTo(10)
	s.ScrollBy(5)
	s.SetTotal(120)

	if !s.Recompute() {
		t.Fatal("Recompute reported no change after mutations")
	}
	if s.Recompute() {
		t.Error("second Recompute in the same frame reported a change")
	}

	st := s.Stats()
	if st.Recomputes != 1 {
		t.Errorf("Recomputes = %d, want 1", st.Recomputes)
	}
	if st.Coalesced == 0 {
		t.Error("burst mutations recorded no coalescing")
	}
}

func TestDisableSpansEverything(t *testing.T) {
	s := New(Config{ViewportLines: 10, Overscan: 2})
	s.SetTotal(500)
	s.ScrollTo(100)

	s.Disable()
	w := recompute(t, s)
	if w.Start != 0 || w.End != 500 {
		t.Errorf("disabled window = [%d,%d), want [0,500)", w.Start, w.End)
	}
}

func TestEnableRestoresPreDisableState(t *testing.T) {
	s := New(Config{ViewportLines: 10, Overscan: 0})
	s.SetTotal(200)
	s.ScrollTo(60)
	pinned := s.Pinned()

	s.Disable()
	s.ScrollTo(0) // moves while disabled, must not survive Enable
	s.Enable()

	if s.Pos() != 60 || s.Pinned() != pinned {
		t.Errorf("restored pos=%d pinned=%v, want pos=60 pinned=%v", s.Pos(), s.Pinned(), pinned)
	}
	w := recompute(t, s)
	if w.Start != 60 || w.End != 70 {
		t.Errorf("restored window = [%d,%d), want [60,70)", w.Start, w.End)
	}
}

func TestViewportResize(t *testing.T) {
	s := New(Config{ViewportLines: 10, Overscan: 0})
	s.SetTotal(100)

	s.SetViewportLines(25)
	w := recompute(t, s)
	if w.Len() != 25 {
		t.Errorf("window length after resize = %d, want 25", w.Len())
	}
	if w.End != 100 {
		t.Errorf("pinned window end after resize = %d, want 100", w.End)
	}
}
