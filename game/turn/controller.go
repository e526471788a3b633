package turn

import (
	"log"
	"math/rand/v2"
	"time"

	"github.com/ludoroyale/game-server/game/engine"
)

// Hooks are the controller's outbound edges. Broadcast delivers each
// committed delta to the session's room in commit order; Completed fires
// exactly once when a session reaches COMPLETED, carrying the final
// standings for the ledger collaborator.
type Hooks struct {
	Broadcast func(sessionID string, delta *engine.Delta)
	Completed func(snapshot engine.Snapshot)
}

// Controller owns the turn state machine for one session. All methods must
// be invoked on the session's serialized queue; the controller re-enters
// that queue for its own timer callbacks via the bound dispatcher.
type Controller struct {
	session *engine.Session
	sched   *Scheduler
	hooks   Hooks

	// roll and perm own the randomness; tests replace them.
	roll func() int
	perm func(n int) []int

	completedFired bool
}

// Option customizes a Controller.
type Option func(*Controller)

// WithRoller replaces the dice source.
func WithRoller(roll func() int) Option {
	return func(c *Controller) { c.roll = roll }
}

// WithPerm replaces the turn-order permutation source.
func WithPerm(perm func(n int) []int) Option {
	return func(c *Controller) { c.perm = perm }
}

// NewController wraps a session. Until Bind is called, timer callbacks run
// synchronously, which is what unit tests want.
func NewController(session *engine.Session, hooks Hooks, opts ...Option) *Controller {
	c := &Controller{
		session: session,
		hooks:   hooks,
		roll:    func() int { return rand.IntN(6) + 1 },
		perm:    rand.Perm,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sched = NewScheduler(func(fn func()) { fn() })
	return c
}

// Bind routes timer callbacks through the given dispatcher. The registry
// calls this once when it takes ownership of the session.
func (c *Controller) Bind(dispatch Dispatcher) {
	c.sched = NewScheduler(dispatch)
}

// Session exposes the underlying aggregate for snapshots.
func (c *Controller) Session() *engine.Session {
	return c.session
}

// Close cancels all pending timers. Called by the registry on eviction.
func (c *Controller) Close() {
	c.sched.Close()
}

// emit broadcasts a committed delta and runs the terminal bookkeeping.
func (c *Controller) emit(out engine.Outcome) {
	if !out.OK || out.Delta == nil {
		return
	}
	if c.hooks.Broadcast != nil {
		c.hooks.Broadcast(c.session.ID, out.Delta)
	}
	if out.Terminal {
		c.sched.Close()
		if c.session.CurrentStatus() == engine.StatusCompleted && !c.completedFired {
			c.completedFired = true
			if c.hooks.Completed != nil {
				c.hooks.Completed(c.session.Snapshot())
			}
		}
	}
}

// fail logs an invariant breach; the session quarantined itself already.
func (c *Controller) fail(op string, err error) {
	log.Printf("[QUARANTINE] session=%s op=%s err=%v", c.session.ID, op, err)
}

// Join adds a player to the waiting room.
func (c *Controller) Join(playerID, name string) engine.Outcome {
	out, err := c.session.AddPlayer(playerID, name)
	if err != nil {
		c.fail("join", err)
		return out
	}
	c.emit(out)
	return out
}

// Leave removes a player from the waiting room.
func (c *Controller) Leave(playerID string) engine.Outcome {
	out, err := c.session.RemovePlayer(playerID)
	if err != nil {
		c.fail("leave", err)
		return out
	}
	c.emit(out)
	return out
}

// SetReady flips a ready flag and, once the whole room is ready, starts the
// countdown to launch.
func (c *Controller) SetReady(playerID string, ready bool) engine.Outcome {
	out, err := c.session.SetReady(playerID, ready)
	if err != nil {
		c.fail("ready", err)
		return out
	}
	c.emit(out)
	if out.OK && c.session.ReadyToStart() {
		c.beginCountdown()
	}
	return out
}

// beginCountdown moves the room to STARTING and schedules the launch.
func (c *Controller) beginCountdown() {
	cd, err := c.session.BeginCountdown()
	if err != nil {
		c.fail("countdown", err)
		return
	}
	if !cd.OK {
		return
	}
	c.emit(cd)
	gen := c.session.Gen()
	delay := time.Duration(c.session.Rules.CountdownSec) * time.Second
	c.sched.Schedule(timerCountdown, delay, func() {
		c.startIfCurrent(gen)
	})
}

// startIfCurrent launches the game when the countdown fires against an
// unchanged generation.
func (c *Controller) startIfCurrent(gen uint64) {
	if c.session.Gen() != gen {
		return
	}
	out, err := c.session.Start(c.perm(len(c.session.Players)), time.Now())
	if err != nil {
		c.fail("start", err)
		return
	}
	if out.OK {
		c.emit(out)
		c.armTurnTimer()
	}
}

// RollDice rolls for the acting player. The server owns the dice: clients
// only request a roll.
func (c *Controller) RollDice(playerID string) engine.Outcome {
	out, err := c.session.ApplyRoll(playerID, c.roll(), time.Now())
	if err != nil {
		c.fail("roll", err)
		return out
	}
	if out.OK {
		c.emit(out)
		if out.TurnAdvanced {
			c.armTurnTimer()
		}
	}
	return out
}

// MoveToken advances a token by the pending roll.
func (c *Controller) MoveToken(playerID string, tokenIndex int) engine.Outcome {
	out, err := c.session.ApplyMove(playerID, tokenIndex, time.Now())
	if err != nil {
		c.fail("move", err)
		return out
	}
	if out.OK {
		c.emit(out)
		if !out.Terminal && (out.TurnAdvanced || out.ExtraRoll) {
			c.armTurnTimer()
		}
	}
	return out
}

// Forfeit removes a player from play.
func (c *Controller) Forfeit(playerID, reason string) engine.Outcome {
	out, err := c.session.Forfeit(playerID, reason, time.Now())
	if err != nil {
		c.fail("forfeit", err)
		return out
	}
	if out.OK {
		c.emit(out)
		if !out.Terminal && out.TurnAdvanced {
			c.armTurnTimer()
		}
	}
	return out
}

// Disconnect records a dropped connection. During the countdown it cancels
// the launch and re-arms it for a still-ready room; in a live game it pauses
// and arms the reconnect grace window when the drop leaves too few players.
func (c *Controller) Disconnect(playerID string) engine.Outcome {
	out, err := c.session.ApplyDisconnect(playerID, time.Now())
	if err != nil {
		c.fail("disconnect", err)
		return out
	}
	if out.OK {
		c.emit(out)
		switch {
		case out.Paused:
			c.sched.Cancel(timerTurn)
			gen := c.session.Gen()
			delay := time.Duration(c.session.Rules.ReconnectGraceSec) * time.Second
			c.sched.Schedule(timerGrace, delay, func() {
				c.graceExpired(gen)
			})
		case c.session.ReadyToStart():
			// The drop cancelled a countdown but left a full, ready room;
			// relaunch for the remaining players.
			c.beginCountdown()
		}
	}
	return out
}

// Reconnect restores a dropped player, resuming play when possible.
func (c *Controller) Reconnect(playerID string) engine.Outcome {
	out, err := c.session.ApplyReconnect(playerID, time.Now())
	if err != nil {
		c.fail("reconnect", err)
		return out
	}
	if out.OK {
		c.emit(out)
		if out.Resumed {
			c.sched.Cancel(timerGrace)
			c.armTurnTimer()
		}
	}
	return out
}

// graceExpired resolves a paused session whose reconnect window lapsed.
func (c *Controller) graceExpired(gen uint64) {
	if c.session.Gen() != gen {
		return
	}
	out, err := c.session.ExpireGrace(time.Now())
	if err != nil {
		c.fail("grace", err)
		return
	}
	if out.OK {
		c.emit(out)
		if out.Resumed {
			c.armTurnTimer()
		}
	}
}

// armTurnTimer schedules the auto-skip for the current turn's deadline.
func (c *Controller) armTurnTimer() {
	snap := c.session.Snapshot()
	if snap.Status != engine.StatusInProgress || snap.TurnDeadline.IsZero() {
		return
	}
	gen := c.session.Gen()
	c.sched.Schedule(timerTurn, time.Until(snap.TurnDeadline), func() {
		c.turnExpired(gen)
	})
}

// turnExpired auto-skips a turn whose deadline passed with no action.
func (c *Controller) turnExpired(gen uint64) {
	if c.session.Gen() != gen {
		return
	}
	out, err := c.session.ApplyTimeout(time.Now())
	if err != nil {
		c.fail("timeout", err)
		return
	}
	if out.OK {
		c.emit(out)
		if !out.Terminal {
			c.armTurnTimer()
		}
	}
}
