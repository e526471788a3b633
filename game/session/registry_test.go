package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ludoroyale/game-server/game/engine"
	"github.com/ludoroyale/game-server/game/rules"
	"github.com/ludoroyale/game-server/game/turn"
)

// deltaSink records broadcasts in arrival order.
type deltaSink struct {
	mu     sync.Mutex
	deltas []*engine.Delta
}

func (d *deltaSink) hooks() turn.Hooks {
	return turn.Hooks{
		Broadcast: func(_ string, delta *engine.Delta) {
			d.mu.Lock()
			d.deltas = append(d.deltas, delta)
			d.mu.Unlock()
		},
	}
}

func (d *deltaSink) seqs() []uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uint64, len(d.deltas))
	for i, delta := range d.deltas {
		out[i] = delta.Seq
	}
	return out
}

func identityPerm(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	return perm
}

// fastConfig is a classic ruleset with no start countdown so tests don't wait.
func fastConfig(t *testing.T) rules.Config {
	t.Helper()
	cfg, err := rules.VariantConfig(rules.Classic)
	if err != nil {
		t.Fatalf("variant config: %v", err)
	}
	cfg.CountdownSec = 0
	return cfg
}

// startedSession creates a registry session with two ready players and waits
// for the countdown to start the game through the worker queue.
func startedSession(t *testing.T, r *Registry, sink *deltaSink, opts ...turn.Option) string {
	t.Helper()

	opts = append([]turn.Option{turn.WithPerm(identityPerm)}, opts...)
	ctrl, err := r.Create("", "", rules.Classic, fastConfig(t), sink.hooks(), opts...)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := ctrl.Session().ID

	err = r.WithSession(id, func(c *turn.Controller) error {
		for _, pid := range []string{"p0", "p1"} {
			if out := c.Join(pid, pid); !out.OK {
				return fmt.Errorf("join %s rejected: %s", pid, out.Reason)
			}
		}
		for _, pid := range []string{"p0", "p1"} {
			if out := c.SetReady(pid, true); !out.OK {
				return fmt.Errorf("ready %s rejected: %s", pid, out.Reason)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with session: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err := r.Snapshot(id)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.Status == engine.StatusInProgress {
			return id
		}
		if time.Now().After(deadline) {
			t.Fatalf("game never started, status %s", snap.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRegistry_CreateAndSnapshot(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	sink := &deltaSink{}

	ctrl, err := r.Create("abc-123", "", rules.Classic, fastConfig(t), sink.hooks())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ctrl.Session().RoomCode == "" {
		t.Error("expected a generated room code")
	}

	snap, err := r.Snapshot("abc-123")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Status != engine.StatusWaiting {
		t.Errorf("new session should be WAITING, got %s", snap.Status)
	}

	// Lookup is case-insensitive, matching how codes are typed by players.
	if _, err := r.Snapshot("ABC-123"); err != nil {
		t.Errorf("case-insensitive lookup failed: %v", err)
	}

	if _, err := r.Create("abc-123", "", rules.Classic, fastConfig(t), sink.hooks()); err != ErrSessionAlreadyExists {
		t.Errorf("expected ErrSessionAlreadyExists, got %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("expected 1 session, got %d", r.Count())
	}
}

func TestRegistry_NotFound(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	if _, err := r.Snapshot("nope"); err != ErrSessionNotFound {
		t.Errorf("Snapshot: expected ErrSessionNotFound, got %v", err)
	}
	err := r.WithSession("nope", func(*turn.Controller) error { return nil })
	if err != ErrSessionNotFound {
		t.Errorf("WithSession: expected ErrSessionNotFound, got %v", err)
	}
	if err := r.Remove("nope"); err != ErrSessionNotFound {
		t.Errorf("Remove: expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistry_WithSessionReturnsCallbackError(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	sink := &deltaSink{}

	if _, err := r.Create("s1", "", rules.Classic, fastConfig(t), sink.hooks()); err != nil {
		t.Fatalf("create: %v", err)
	}

	sentinel := ErrSessionAlreadyExists // any distinguishable error
	err := r.WithSession("s1", func(*turn.Controller) error { return sentinel })
	if err != sentinel {
		t.Errorf("expected callback error back, got %v", err)
	}
}

// Concurrent actors hammering one session must behave as if applied one at a
// time: no lost updates, no invariant quarantine, broadcasts in commit order.
func TestRegistry_ConcurrentMutationsSerialize(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	sink := &deltaSink{}

	rolls := []int{6, 3, 2, 5, 6, 1, 4}
	i := 0
	roller := func() int {
		v := rolls[i%len(rolls)]
		i++
		return v
	}
	id := startedSession(t, r, sink, turn.WithRoller(roller))

	const workers = 8
	const iterations = 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < iterations; n++ {
				_ = r.WithSession(id, func(c *turn.Controller) error {
					snap := c.Session().Snapshot()
					if snap.Status != engine.StatusInProgress {
						return nil
					}
					cur := snap.CurrentPlayerID
					out := c.RollDice(cur)
					if !out.OK || out.TurnAdvanced || out.NoLegalMove {
						return nil
					}
					for tok := 0; tok < rules.TokensPerPlayer; tok++ {
						if mv := c.MoveToken(cur, tok); mv.OK {
							break
						}
					}
					return nil
				})
			}
		}()
	}
	wg.Wait()

	snap, err := r.Snapshot(id)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Quarantined {
		t.Fatal("session quarantined under concurrent load")
	}

	seqs := sink.seqs()
	if len(seqs) == 0 {
		t.Fatal("expected broadcasts")
	}
	for n := 1; n < len(seqs); n++ {
		if seqs[n] <= seqs[n-1] {
			t.Fatalf("broadcast order broke commit order: seq %d after %d", seqs[n], seqs[n-1])
		}
	}
	if last := seqs[len(seqs)-1]; last != snap.Seq {
		t.Errorf("last broadcast seq %d != session seq %d", last, snap.Seq)
	}
}

func TestRegistry_RemoveStopsSession(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	sink := &deltaSink{}

	id := startedSession(t, r, sink)
	if err := r.Remove(id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := r.Snapshot(id); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after remove, got %v", err)
	}
	err := r.WithSession(id, func(*turn.Controller) error { return nil })
	if err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after remove, got %v", err)
	}
}

func TestRegistry_SweepEvictsIdleLobbies(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	sink := &deltaSink{}

	if _, err := r.Create("idle", "", rules.Classic, fastConfig(t), sink.hooks()); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Nothing is old enough yet.
	if removed := r.Sweep(time.Hour, time.Hour); removed != 0 {
		t.Fatalf("expected 0 removed, got %d", removed)
	}
	// With a zero idle timeout the waiting lobby is stale immediately.
	if removed := r.Sweep(0, time.Hour); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if r.Count() != 0 {
		t.Errorf("expected empty registry, got %d", r.Count())
	}
}

func TestRegistry_SweepRetainsFinishedForOneWindow(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	sink := &deltaSink{}

	id := startedSession(t, r, sink)
	err := r.WithSession(id, func(c *turn.Controller) error {
		c.Forfeit("p0", "left")
		return nil
	})
	if err != nil {
		t.Fatalf("forfeit: %v", err)
	}
	snap, _ := r.Snapshot(id)
	if !snap.Status.Terminal() {
		t.Fatalf("expected terminal status after forfeit below minimum, got %s", snap.Status)
	}

	// First sweep only marks the terminal session; the second, after the
	// retention window, removes it.
	if removed := r.Sweep(time.Hour, 10*time.Millisecond); removed != 0 {
		t.Fatalf("first sweep should retain, removed %d", removed)
	}
	time.Sleep(20 * time.Millisecond)
	if removed := r.Sweep(time.Hour, 10*time.Millisecond); removed != 1 {
		t.Fatalf("second sweep should remove, removed %d", removed)
	}
}

func TestRegistry_CloseRejectsCreate(t *testing.T) {
	r := NewRegistry()
	sink := &deltaSink{}

	id := startedSession(t, r, sink)
	r.Close()

	if _, err := r.Create("new", "", rules.Classic, fastConfig(t), sink.hooks()); err != ErrRegistryClosed {
		t.Errorf("expected ErrRegistryClosed, got %v", err)
	}
	err := r.WithSession(id, func(*turn.Controller) error { return nil })
	if err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after close, got %v", err)
	}
}

func TestRegistry_RoomCodesUnique(t *testing.T) {
	r := NewRegistry()
	defer r.Close()
	sink := &deltaSink{}

	seen := make(map[string]bool)
	for n := 0; n < 20; n++ {
		ctrl, err := r.Create("", "", rules.Classic, fastConfig(t), sink.hooks())
		if err != nil {
			t.Fatalf("create %d: %v", n, err)
		}
		code := ctrl.Session().RoomCode
		if len(code) != 6 {
			t.Fatalf("room code %q should be 6 characters", code)
		}
		if seen[code] {
			t.Fatalf("duplicate room code %q", code)
		}
		seen[code] = true
	}
}
