package pool

import "testing"

type record struct {
	text  string
	attrs []int
	dirty bool
}

func newRecordPool(capacity int) *Pool[record] {
	return New(capacity,
		func() *record { return &record{} },
		func(r *record) {
			r.text = ""
			r.attrs = r.attrs[:0]
			r.dirty = false
		})
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := newRecordPool(4)

	r := p.Acquire()
	r.text = "hello"
	r.attrs = append(r.attrs, 1, 2, 3)
	r.dirty = true
	p.Release(r)

	// Same instance comes back with all fields reset.
	r2 := p.Acquire()
	if r2 != r {
		t.Fatal("Acquire after Release returned a different instance")
	}
	if r2.text != "" || len(r2.attrs) != 0 || r2.dirty {
		t.Errorf("fields not reset: %+v", r2)
	}
}

func TestExhaustionFallsBackToAllocation(t *testing.T) {
	p := newRecordPool(2)

	a := p.Acquire()
	b := p.Acquire()
	if a == b {
		t.Fatal("two live objects share an instance")
	}

	st := p.Stats()
	if st.Misses != 2 {
		t.Errorf("Misses = %d, want 2", st.Misses)
	}
	if st.Hits != 0 {
		t.Errorf("Hits = %d, want 0", st.Hits)
	}
	if st.InUse != 2 {
		t.Errorf("InUse = %d, want 2", st.InUse)
	}
}

func TestReleaseAboveCapacityDiscards(t *testing.T) {
	p := newRecordPool(1)

	a := p.Acquire()
	b := p.Acquire()
	p.Release(a)
	p.Release(b)

	if p.Idle() != 1 {
		t.Errorf("Idle() = %d, want 1", p.Idle())
	}
	if st := p.Stats(); st.Discards != 1 {
		t.Errorf("Discards = %d, want 1", st.Discards)
	}
}

func TestReleaseNil(t *testing.T) {
	p := newRecordPool(1)
	p.Release(nil) // must not panic
	if p.Idle() != 0 {
		t.Errorf("Idle() = %d, want 0", p.Idle())
	}
}

func TestWarmup(t *testing.T) {
	p := newRecordPool(4)
	p.Warmup(8)

	if p.Idle() != 4 {
		t.Fatalf("Idle() after Warmup = %d, want 4", p.Idle())
	}
	p.Acquire()
	if st := p.Stats(); st.Hits != 1 || st.Misses != 0 {
		t.Errorf("Stats after warm Acquire = %+v, want 1 hit 0 misses", st)
	}
}

func TestUtilization(t *testing.T) {
	p := newRecordPool(4)
	if u := p.Utilization(); u != 0 {
		t.Errorf("Utilization() on fresh pool = %v, want 0", u)
	}

	a := p.Acquire() // miss
	p.Release(a)
	p.Acquire() // hit

	if u := p.Utilization(); u != 0.5 {
		t.Errorf("Utilization() = %v, want 0.5", u)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	b := NewBytes(2)

	buf := b.Get(100)
	if cap(buf) < 100 {
		t.Fatalf("cap = %d, want >= 100", cap(buf))
	}
	if len(buf) != 0 {
		t.Fatalf("len = %d, want 0", len(buf))
	}

	buf = append(buf, make([]byte, 100)...)
	b.Put(buf)

	buf2 := b.Get(100)
	if cap(buf2) != cap(buf) {
		t.Errorf("pooled slice not reused: cap %d vs %d", cap(buf2), cap(buf))
	}
	if len(buf2) != 0 {
		t.Errorf("reused slice len = %d, want 0", len(buf2))
	}
}

func TestBytesOversize(t *testing.T) {
	b := NewBytes(2)
	huge := b.Get(64 << 20)
	if cap(huge) < 64<<20 {
		t.Fatalf("oversize Get cap = %d", cap(huge))
	}
	b.Put(huge[:cap(huge)])
	if st := b.Stats(); st.Discards != 1 {
		t.Errorf("Discards = %d, want 1 (oversize never pooled)", st.Discards)
	}
}

func TestBytesClassBoundaries(t *testing.T) {
	tests := []struct {
		size    int
		wantCap int
	}{
		{1, 64},
		{64, 64},
		{65, 128},
		{4096, 4096},
		{4097, 8192},
	}
	b := NewBytes(2)
	for _, tt := range tests {
		got := b.Get(tt.size)
		if cap(got) != tt.wantCap {
			t.Errorf("Get(%d) cap = %d, want %d", tt.size, cap(got), tt.wantCap)
		}
	}
}

func BenchmarkAcquireRelease(b *testing.B) {
	p := newRecordPool(64)
	p.Warmup(64)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r := p.Acquire()
		p.Release(r)
	}
}
