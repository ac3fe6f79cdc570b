package sched

import (
	"testing"
	"time"
)

func TestFrameTasksRunFIFO(t *testing.T) {
	s := New(DefaultConfig())

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		s.Post("", func() { order = append(order, i) })
	}
	s.RunFrame(time.Now())

	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
	if s.PendingFrame() != 0 {
		t.Errorf("PendingFrame = %d, want 0", s.PendingFrame())
	}
}

func TestKeyedPostsCoalesce(t *testing.T) {
	s := New(DefaultConfig())

	runs := 0
	for i := 0; i < 10; i++ {
		s.Post("recompute", func() { runs++ })
	}
	s.RunFrame(time.Now())

	if runs != 1 {
		t.Errorf("coalesced task ran %d times, want 1", runs)
	}
	if st := s.Stats(); st.Coalesced != 9 {
		t.Errorf("Coalesced = %d, want 9", st.Coalesced)
	}

	// The key frees up once the task has run.
	s.Post("recompute", func() { runs++ })
	s.RunFrame(time.Now())
	if runs != 2 {
		t.Errorf("re-posted task ran %d times total, want 2", runs)
	}
}

func TestTasksPostedDuringFrameDefer(t *testing.T) {
	s := New(DefaultConfig())

	nested := false
	s.Post("", func() {
		s.Post("", func() { nested = true })
	})
	s.RunFrame(time.Now())
	if nested {
		t.Fatal("task posted mid-frame ran in the same frame")
	}
	s.RunFrame(time.Now())
	if !nested {
		t.Error("deferred task never ran")
	}
}

func TestMaintenanceRespectsInterval(t *testing.T) {
	s := New(Config{MaintenanceInterval: time.Second})
	runs := 0
	s.RegisterMaintenance("compact", func() { runs++ })

	start := time.Unix(0, 0)
	s.RunFrame(start)                             // arms the timer
	s.RunFrame(start.Add(500 * time.Millisecond)) // not due
	if runs != 0 {
		t.Fatalf("maintenance ran %d times before the interval", runs)
	}
	s.RunFrame(start.Add(time.Second)) // due
	if runs != 1 {
		t.Errorf("maintenance runs = %d, want 1", runs)
	}
	s.RunFrame(start.Add(1100 * time.Millisecond)) // period restarts
	if runs != 1 {
		t.Errorf("maintenance re-ran %d times within one period", runs)
	}
}

func TestMaintenanceRotates(t *testing.T) {
	s := New(Config{MaintenanceInterval: time.Second})

	var order []string
	s.RegisterMaintenance("a", func() { order = append(order, "a") })
	s.RegisterMaintenance("b", func() { order = append(order, "b") })

	now := time.Unix(0, 0)
	s.RunFrame(now)
	for i := 1; i <= 4; i++ {
		s.RunFrame(now.Add(time.Duration(i) * time.Second))
	}

	want := []string{"a", "b", "a", "b"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestOnlyOneMaintenancePerTick(t *testing.T) {
	s := New(Config{MaintenanceInterval: time.Second})
	runs := 0
	for i := 0; i < 3; i++ {
		s.RegisterMaintenance("t", func() { runs++ })
	}

	now := time.Unix(0, 0)
	s.RunFrame(now)
	s.RunFrame(now.Add(time.Second))
	if runs != 1 {
		t.Errorf("one due tick ran %d maintenance tasks, want 1", runs)
	}
}
