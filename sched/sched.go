// Package sched is the engine's explicit two-queue scheduler. Frame
// tasks are one-shot closures drained in FIFO order at the top of every
// frame, with optional keyed coalescing so a burst of identical requests
// runs once. Maintenance tasks are recurring: they rotate through a
// second queue, one task per due tick, on a fixed period, so background
// upkeep never stalls a frame.
package sched

import (
	"time"

	"github.com/eapache/queue"
)

// Task is a unit of deferred work. Tasks run on the engine loop; they
// must not block.
type Task func()

// Config holds scheduler configuration.
type Config struct {
	// MaintenanceInterval is the period between maintenance ticks.
	// Default: 500ms.
	MaintenanceInterval time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{MaintenanceInterval: 500 * time.Millisecond}
}

// Stats holds scheduler counters for the diagnostics surface.
type Stats struct {
	FrameTasks      uint64
	Coalesced       uint64
	MaintenanceRuns uint64
	PendingFrame    int
}

// Scheduler owns the frame and maintenance queues. Not safe for
// concurrent use; everything runs on the engine loop.
type Scheduler struct {
	cfg Config

	frame *queue.Queue // of frameTask, FIFO
	keyed map[string]struct{}

	maint     *queue.Queue // of maintTask, rotating
	lastMaint time.Time
	haveMaint bool

	frameRuns uint64
	coalesced uint64
	maintRuns uint64
}

type frameTask struct {
	key string
	fn  Task
}

type maintTask struct {
	name string
	fn   Task
}

// New creates a scheduler.
func New(cfg Config) *Scheduler {
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = DefaultConfig().MaintenanceInterval
	}
	return &Scheduler{
		cfg:   cfg,
		frame: queue.New(),
		keyed: make(map[string]struct{}),
		maint: queue.New(),
	}
}

// Post enqueues fn for the next frame. A non-empty key coalesces: while
// a task under the same key is already queued, further posts are
// dropped and counted, so one frame runs the work once.
func (s *Scheduler) Post(key string, fn Task) {
	if key != "" {
		if _, dup := s.keyed[key]; dup {
			s.coalesced++
			return
		}
		s.keyed[key] = struct{}{}
	}
	s.frame.Add(frameTask{key: key, fn: fn})
}

// RegisterMaintenance adds a recurring task to the maintenance rotation.
func (s *Scheduler) RegisterMaintenance(name string, fn Task) {
	s.maint.Add(maintTask{name: name, fn: fn})
}

// RunFrame drains the frame queue in FIFO order, then runs at most one
// maintenance task if the maintenance period has elapsed. Tasks posted
// while the queue drains run on the following frame, keeping every
// frame's workload bounded by what was queued when it started.
func (s *Scheduler) RunFrame(now time.Time) {
	for n := s.frame.Length(); n > 0; n-- {
		t := s.frame.Remove().(frameTask)
		if t.key != "" {
			delete(s.keyed, t.key)
		}
		t.fn()
		s.frameRuns++
	}

	if !s.haveMaint {
		// First frame arms the timer; maintenance starts one full
		// period later.
		s.lastMaint = now
		s.haveMaint = true
		return
	}
	if now.Sub(s.lastMaint) < s.cfg.MaintenanceInterval {
		return
	}
	s.lastMaint = now
	if s.maint.Length() == 0 {
		return
	}
	t := s.maint.Remove().(maintTask)
	t.fn()
	s.maint.Add(t) // back of the rotation
	s.maintRuns++
}

// PendingFrame returns the number of queued frame tasks.
func (s *Scheduler) PendingFrame() int { return s.frame.Length() }

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		FrameTasks:      s.frameRuns,
		Coalesced:       s.coalesced,
		MaintenanceRuns: s.maintRuns,
		PendingFrame:    s.frame.Length(),
	}
}
