package turn

import (
	"sync"
	"testing"
	"time"
)

func TestScheduler_FiresThroughDispatcher(t *testing.T) {
	var mu sync.Mutex
	var order []string

	dispatch := func(fn func()) {
		mu.Lock()
		order = append(order, "dispatch")
		mu.Unlock()
		fn()
	}

	s := NewScheduler(dispatch)
	done := make(chan struct{})
	s.Schedule(timerTurn, 10*time.Millisecond, func() {
		mu.Lock()
		order = append(order, "fired")
		mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != "dispatch" || order[1] != "fired" {
		t.Errorf("callback must run through the dispatcher, got %v", order)
	}
}

func TestScheduler_CancelPreventsFire(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := NewScheduler(func(fn func()) { fn() })

	s.Schedule(timerGrace, 20*time.Millisecond, func() { fired <- struct{}{} })
	s.Cancel(timerGrace)

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestScheduler_ReplaceSameKind(t *testing.T) {
	var mu sync.Mutex
	var got []int
	s := NewScheduler(func(fn func()) { fn() })

	done := make(chan struct{})
	s.Schedule(timerTurn, 20*time.Millisecond, func() {
		mu.Lock()
		got = append(got, 1)
		mu.Unlock()
	})
	s.Schedule(timerTurn, 30*time.Millisecond, func() {
		mu.Lock()
		got = append(got, 2)
		mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("replacement timer did not fire")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("only the replacement should fire, got %v", got)
	}
}

func TestScheduler_CloseStopsEverything(t *testing.T) {
	fired := make(chan struct{}, 2)
	s := NewScheduler(func(fn func()) { fn() })

	s.Schedule(timerTurn, 20*time.Millisecond, func() { fired <- struct{}{} })
	s.Schedule(timerGrace, 20*time.Millisecond, func() { fired <- struct{}{} })
	s.Close()

	// Scheduling after close is ignored.
	s.Schedule(timerCountdown, time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
		t.Fatal("closed scheduler fired a timer")
	case <-time.After(60 * time.Millisecond):
	}
}
