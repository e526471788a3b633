package turn

import (
	"sync"
	"time"
)

// Dispatcher runs a function on the owning session's serialized queue. Timer
// callbacks must never touch session state directly from the timer goroutine.
type Dispatcher func(fn func())

// timerKind distinguishes the controller's scheduled tasks so each kind can
// be replaced or cancelled independently.
type timerKind string

const (
	timerCountdown timerKind = "countdown"
	timerTurn      timerKind = "turn"
	timerGrace     timerKind = "grace"
)

// Scheduler owns the deferred callbacks of one session. At most one timer of
// each kind is armed at a time; scheduling a kind replaces its predecessor.
type Scheduler struct {
	mu       sync.Mutex
	dispatch Dispatcher
	timers   map[timerKind]*time.Timer
	closed   bool
}

// NewScheduler creates a scheduler routing callbacks through dispatch.
func NewScheduler(dispatch Dispatcher) *Scheduler {
	return &Scheduler{
		dispatch: dispatch,
		timers:   make(map[timerKind]*time.Timer),
	}
}

// Schedule arms a timer of the given kind, replacing any pending one. The
// callback runs on the session queue via the dispatcher.
func (s *Scheduler) Schedule(kind timerKind, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if t, ok := s.timers[kind]; ok {
		t.Stop()
	}
	s.timers[kind] = time.AfterFunc(d, func() {
		s.dispatch(fn)
	})
}

// Cancel stops a pending timer of the given kind, if any. A timer that has
// already fired is harmless: its callback carries a generation tag and
// no-ops on mismatch.
func (s *Scheduler) Cancel(kind timerKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[kind]; ok {
		t.Stop()
		delete(s.timers, kind)
	}
}

// Close cancels every pending timer and refuses new ones. Called on terminal
// transitions and registry eviction.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for kind, t := range s.timers {
		t.Stop()
		delete(s.timers, kind)
	}
}
