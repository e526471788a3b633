package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ludoroyale/game-server/game/board"
	"github.com/ludoroyale/game-server/game/rules"
)

// Session is the authoritative state aggregate for one game room. All
// mutations go through the registry's per-session queue; the internal lock
// only protects concurrent read-only snapshots.
type Session struct {
	mu sync.RWMutex

	ID       string
	RoomCode string
	Variant  rules.Variant
	Rules    rules.Config
	Status   Status

	// Players is slot-ordered and append-only until the game starts.
	Players []*PlayerState

	// TurnOrder is fixed at start: a permutation of the joined player ids.
	TurnOrder   []string
	CurrentTurn int
	NumPlayers  int

	// Dice is non-zero only between a roll and the move or pass it produced.
	Dice             int
	ConsecutiveSixes int

	History []Move

	// Seq numbers committed deltas so receivers can detect gaps.
	Seq uint64

	// Generation tags scheduled timers; any state advancement bumps it and
	// turns stale timer callbacks into no-ops.
	Generation uint64

	TurnDeadline  time.Time
	PauseDeadline time.Time

	Quarantined bool
	Rankings    []Ranking

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time
}

// NewSession creates a session in WAITING with a validated rule set.
func NewSession(id, roomCode string, variant rules.Variant, cfg rules.Config) (*Session, error) {
	if err := rules.Validate(&cfg); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:        id,
		RoomCode:  roomCode,
		Variant:   variant,
		Rules:     cfg,
		Status:    StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// newDelta allocates the next committed delta in sequence order.
func (s *Session) newDelta() *Delta {
	s.Seq++
	return &Delta{Seq: s.Seq}
}

func (s *Session) playerByID(id string) *PlayerState {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) currentPlayer() *PlayerState {
	if len(s.TurnOrder) == 0 || s.CurrentTurn < 0 || s.CurrentTurn >= len(s.TurnOrder) {
		return nil
	}
	return s.playerByID(s.TurnOrder[s.CurrentTurn])
}

func (s *Session) activeCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Active() {
			n++
		}
	}
	return n
}

func (s *Session) connectedActiveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Active() && p.Connected {
			n++
		}
	}
	return n
}

// playerViews builds the immutable capture-detection input.
func (s *Session) playerViews() []rules.PlayerView {
	views := make([]rules.PlayerView, 0, len(s.Players))
	for _, p := range s.Players {
		views = append(views, rules.PlayerView{ID: p.ID, Slot: p.Slot, Positions: p.Tokens})
	}
	return views
}

// recomputePoints refreshes a player's points from token distances plus the
// accumulated capture bonus, honoring the configured cap.
func (s *Session) recomputePoints(p *PlayerState) error {
	points, err := rules.Score(p.Tokens, p.CaptureBonus, s.Rules.ScoreCap)
	if err != nil {
		return err
	}
	p.Points = points
	return nil
}

// guard runs the shared preamble of every mutator.
func (s *Session) guard(want Status) (Outcome, bool) {
	if s.Quarantined {
		return reject(ReasonQuarantined), false
	}
	if s.Status != want {
		return reject(ReasonWrongStatus), false
	}
	return Outcome{}, true
}

// AddPlayer joins a player to a WAITING room.
func (s *Session) AddPlayer(id, name string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out, ok := s.guard(StatusWaiting); !ok {
		return out, nil
	}
	if len(s.Players) >= s.Rules.MaxPlayers {
		return reject(ReasonRoomFull), nil
	}
	if s.playerByID(id) != nil {
		return reject(ReasonAlreadyJoined), nil
	}

	p := &PlayerState{
		ID:        id,
		Name:      name,
		Slot:      len(s.Players),
		Tokens:    [rules.TokensPerPlayer]rules.Position{rules.Home, rules.Home, rules.Home, rules.Home},
		Lives:     s.Rules.Lives,
		Connected: true,
	}
	s.Players = append(s.Players, p)
	s.UpdatedAt = time.Now()

	delta := s.newDelta()
	delta.Events = append(delta.Events, Event{Type: EventPlayerJoined, Payload: PlayerJoinedPayload{Player: p}})
	return Outcome{OK: true, Delta: delta}, s.checkInvariants()
}

// RemovePlayer drops a player from a WAITING room, compacting slots. Leaving
// after start is a forfeit, not a removal.
func (s *Session) RemovePlayer(id string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out, ok := s.guard(StatusWaiting); !ok {
		return out, nil
	}
	return s.removePlayerLocked(id)
}

func (s *Session) removePlayerLocked(id string) (Outcome, error) {
	idx := -1
	for i, p := range s.Players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return reject(ReasonUnknownPlayer), nil
	}

	s.Players = append(s.Players[:idx], s.Players[idx+1:]...)
	for i, p := range s.Players {
		p.Slot = i
	}
	s.UpdatedAt = time.Now()

	delta := s.newDelta()
	delta.Events = append(delta.Events, Event{Type: EventPlayerDisconnected, Payload: PlayerConnectivityPayload{PlayerID: id}})
	return Outcome{OK: true, Delta: delta}, s.checkInvariants()
}

// SetReady flips a player's ready flag while the room is WAITING.
func (s *Session) SetReady(id string, ready bool) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out, ok := s.guard(StatusWaiting); !ok {
		return out, nil
	}
	p := s.playerByID(id)
	if p == nil {
		return reject(ReasonUnknownPlayer), nil
	}

	p.Ready = ready
	s.UpdatedAt = time.Now()

	delta := s.newDelta()
	delta.Events = append(delta.Events, Event{Type: EventPlayerReady, Payload: PlayerReadyPayload{PlayerID: id, Ready: ready}})
	return Outcome{OK: true, Delta: delta}, s.checkInvariants()
}

// ReadyToStart reports whether the countdown may begin.
func (s *Session) ReadyToStart() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Status != StatusWaiting {
		return false
	}
	if len(s.Players) < s.Rules.MinPlayers || len(s.Players) > s.Rules.MaxPlayers {
		return false
	}
	for _, p := range s.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// BeginCountdown moves WAITING to STARTING once everyone is ready.
func (s *Session) BeginCountdown() (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out, ok := s.guard(StatusWaiting); !ok {
		return out, nil
	}
	if len(s.Players) < s.Rules.MinPlayers {
		return reject(ReasonNotEnoughReady), nil
	}
	for _, p := range s.Players {
		if !p.Ready {
			return reject(ReasonNotReady), nil
		}
	}

	s.Status = StatusStarting
	s.Generation++
	s.UpdatedAt = time.Now()

	delta := s.newDelta()
	delta.Events = append(delta.Events, Event{Type: EventGameStarting, Payload: GameStartingPayload{CountdownSec: s.Rules.CountdownSec}})
	return Outcome{OK: true, Delta: delta}, s.checkInvariants()
}

// Start fixes the randomized turn order and opens the first turn. The
// permutation is generated once by the caller and is immutable afterwards.
func (s *Session) Start(perm []int, now time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out, ok := s.guard(StatusStarting); !ok {
		return out, nil
	}
	if len(perm) != len(s.Players) {
		return Outcome{}, &InvariantBreach{SessionID: s.ID, Detail: fmt.Sprintf("start permutation size %d for %d players", len(perm), len(s.Players))}
	}
	seen := make(map[int]bool, len(perm))
	for _, idx := range perm {
		if idx < 0 || idx >= len(s.Players) || seen[idx] {
			return Outcome{}, &InvariantBreach{SessionID: s.ID, Detail: "start permutation is not a permutation of players"}
		}
		seen[idx] = true
	}

	// Validate every slot/count pair up front so the session can never hit
	// a geometry error mid-game.
	for _, p := range s.Players {
		if _, err := board.Path(p.Slot, len(s.Players)); err != nil {
			return Outcome{}, err
		}
	}

	s.TurnOrder = make([]string, len(perm))
	for i, idx := range perm {
		s.TurnOrder[i] = s.Players[idx].ID
	}
	s.NumPlayers = len(s.Players)
	s.CurrentTurn = 0
	s.Status = StatusInProgress
	s.Dice = 0
	s.ConsecutiveSixes = 0
	s.Generation++
	s.TurnDeadline = now.Add(time.Duration(s.Rules.TurnTimeoutSec) * time.Second)
	s.UpdatedAt = now

	delta := s.newDelta()
	delta.Events = append(delta.Events,
		Event{Type: EventGameStarted, Payload: GameStartedPayload{TurnOrder: append([]string(nil), s.TurnOrder...)}},
		Event{Type: EventTurnChanged, Payload: TurnChangedPayload{PlayerID: s.TurnOrder[0], Deadline: s.TurnDeadline}},
	)
	return Outcome{OK: true, Delta: delta, TurnAdvanced: true}, s.checkInvariants()
}

// advanceTurn hands the turn to the next non-forfeited player in order and
// resets the per-turn dice state.
func (s *Session) advanceTurn(now time.Time, delta *Delta) {
	for i := 1; i <= len(s.TurnOrder); i++ {
		next := (s.CurrentTurn + i) % len(s.TurnOrder)
		p := s.playerByID(s.TurnOrder[next])
		if p != nil && p.Active() {
			s.CurrentTurn = next
			break
		}
	}
	s.Dice = 0
	s.ConsecutiveSixes = 0
	s.Generation++
	s.TurnDeadline = now.Add(time.Duration(s.Rules.TurnTimeoutSec) * time.Second)
	delta.Events = append(delta.Events, Event{Type: EventTurnChanged, Payload: TurnChangedPayload{
		PlayerID: s.TurnOrder[s.CurrentTurn],
		Deadline: s.TurnDeadline,
	}})
}

// keepTurn grants the current player another roll, refreshing the deadline.
func (s *Session) keepTurn(now time.Time, delta *Delta) {
	s.Dice = 0
	s.Generation++
	s.TurnDeadline = now.Add(time.Duration(s.Rules.TurnTimeoutSec) * time.Second)
	delta.Events = append(delta.Events, Event{Type: EventTurnChanged, Payload: TurnChangedPayload{
		PlayerID: s.TurnOrder[s.CurrentTurn],
		Deadline: s.TurnDeadline,
	}})
}

// ApplyRoll records a dice value for the current player. The roll value comes
// from the turn controller, which owns the randomness.
func (s *Session) ApplyRoll(playerID string, dice int, now time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out, ok := s.guard(StatusInProgress); !ok {
		return out, nil
	}
	p := s.playerByID(playerID)
	if p == nil {
		return reject(ReasonUnknownPlayer), nil
	}
	current := s.currentPlayer()
	if current == nil || current.ID != playerID || !p.Active() {
		return reject(ReasonNotYourTurn), nil
	}
	if s.Dice != 0 {
		return reject(ReasonAlreadyRolled), nil
	}
	if dice < rules.DiceMin || dice > rules.DiceMax {
		return Outcome{}, &InvariantBreach{SessionID: s.ID, Detail: fmt.Sprintf("dice value %d outside domain", dice)}
	}

	p.MissedTurns = 0
	s.UpdatedAt = now

	delta := s.newDelta()
	delta.Events = append(delta.Events, Event{Type: EventDiceRolled, Payload: DiceRolledPayload{PlayerID: playerID, Value: dice}})

	if dice == rules.RollToEnter {
		s.ConsecutiveSixes++
		if s.ConsecutiveSixes >= s.Rules.ConsecutiveSixLimit {
			// Anti-stalling: the run of sixes forfeits the rest of the turn.
			delta.Events = append(delta.Events, Event{Type: EventTurnForfeited, Payload: TurnForfeitedPayload{
				PlayerID: playerID,
				Reason:   "consecutive_six_limit",
			}})
			s.advanceTurn(now, delta)
			return Outcome{OK: true, Delta: delta, TurnAdvanced: true}, s.checkInvariants()
		}
	} else {
		s.ConsecutiveSixes = 0
	}

	movable := false
	for _, pos := range p.Tokens {
		legal, err := rules.IsLegal(pos, dice, p.Slot, s.NumPlayers)
		if err != nil {
			s.Quarantined = true
			return Outcome{}, wrapBreach(s.ID, err)
		}
		if legal {
			movable = true
			break
		}
	}

	if !movable {
		// Nothing to do with this roll: the turn passes without client input.
		s.advanceTurn(now, delta)
		return Outcome{OK: true, Delta: delta, TurnAdvanced: true, NoLegalMove: true}, s.checkInvariants()
	}

	s.Dice = dice
	return Outcome{OK: true, Delta: delta}, s.checkInvariants()
}

// ApplyMove advances one of the current player's tokens by the pending roll,
// applying captures, scoring, win detection, and turn handover.
func (s *Session) ApplyMove(playerID string, tokenIndex int, now time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out, ok := s.guard(StatusInProgress); !ok {
		return out, nil
	}
	p := s.playerByID(playerID)
	if p == nil {
		return reject(ReasonUnknownPlayer), nil
	}
	current := s.currentPlayer()
	if current == nil || current.ID != playerID || !p.Active() {
		return reject(ReasonNotYourTurn), nil
	}
	if s.Dice == 0 {
		return reject(ReasonRollRequired), nil
	}
	if tokenIndex < 0 || tokenIndex >= rules.TokensPerPlayer {
		return reject(ReasonBadTokenIndex), nil
	}

	from := p.Tokens[tokenIndex]
	legal, err := rules.IsLegal(from, s.Dice, p.Slot, s.NumPlayers)
	if err != nil {
		s.Quarantined = true
		return Outcome{}, wrapBreach(s.ID, err)
	}
	if !legal {
		return reject(ReasonIllegalMove), nil
	}

	dest, err := rules.Resolve(from, s.Dice, p.Slot, s.NumPlayers)
	if err != nil {
		s.Quarantined = true
		return Outcome{}, wrapBreach(s.ID, err)
	}

	var captures []rules.Capture
	if rules.OnPath(dest) {
		path, err := board.Path(p.Slot, s.NumPlayers)
		if err != nil {
			s.Quarantined = true
			return Outcome{}, wrapBreach(s.ID, err)
		}
		captures, err = rules.DetectCaptures(s.playerViews(), s.NumPlayers, playerID, path[dest])
		if err != nil {
			s.Quarantined = true
			return Outcome{}, wrapBreach(s.ID, err)
		}
	}

	dice := s.Dice
	p.Tokens[tokenIndex] = dest

	delta := s.newDelta()

	for _, c := range captures {
		victim := s.playerByID(c.PlayerID)
		if victim == nil {
			s.Quarantined = true
			return Outcome{}, &InvariantBreach{SessionID: s.ID, Detail: "capture names a player not in the session"}
		}
		victim.Tokens[c.TokenIndex] = rules.Home
		victim.CapturedLost++
		if err := s.recomputePoints(victim); err != nil {
			s.Quarantined = true
			return Outcome{}, wrapBreach(s.ID, err)
		}
		delta.Events = append(delta.Events, Event{Type: EventPlayerCaptured, Payload: PlayerCapturedPayload{
			ByPlayerID: playerID,
			Capture:    c,
		}})
	}
	if len(captures) > 0 {
		p.CaptureBonus += s.Rules.CaptureReward * len(captures)
	}
	if err := s.recomputePoints(p); err != nil {
		s.Quarantined = true
		return Outcome{}, wrapBreach(s.ID, err)
	}

	move := Move{
		PlayerID:   playerID,
		TokenIndex: tokenIndex,
		From:       from,
		To:         dest,
		Dice:       dice,
		Captured:   captures,
		Timestamp:  now,
	}
	s.History = append(s.History, move)
	s.UpdatedAt = now
	delta.Events = append([]Event{{Type: EventPieceMoved, Payload: PieceMovedPayload{Move: move}}}, delta.Events...)

	if rules.HasWon(p.Tokens) {
		s.complete(now, delta)
		return Outcome{OK: true, Delta: delta, Terminal: true}, s.checkInvariants()
	}
	if s.Rules.MoveCap > 0 && len(s.History) >= s.Rules.MoveCap {
		s.complete(now, delta)
		return Outcome{OK: true, Delta: delta, Terminal: true}, s.checkInvariants()
	}

	extra := (dice == rules.RollToEnter && s.Rules.BonusRollOnSix) ||
		(len(captures) > 0 && s.Rules.BonusTurnOnCapture)
	if extra {
		s.keepTurn(now, delta)
		return Outcome{OK: true, Delta: delta, ExtraRoll: true}, s.checkInvariants()
	}

	s.advanceTurn(now, delta)
	return Outcome{OK: true, Delta: delta, TurnAdvanced: true}, s.checkInvariants()
}

// ApplyTimeout skips the current turn after its deadline passed with no roll
// or move, applying the variant's penalties and thresholds.
func (s *Session) ApplyTimeout(now time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out, ok := s.guard(StatusInProgress); !ok {
		return out, nil
	}
	p := s.currentPlayer()
	if p == nil {
		return Outcome{}, &InvariantBreach{SessionID: s.ID, Detail: "timeout with no current player"}
	}

	p.MissedTurns++
	lostLife := false
	if s.Rules.TimeoutLifePenalty && p.Lives > 0 {
		p.Lives--
		lostLife = true
	}
	s.UpdatedAt = now

	delta := s.newDelta()
	delta.Events = append(delta.Events, Event{Type: EventTurnTimeout, Payload: TurnTimeoutPayload{
		PlayerID:    p.ID,
		LostLife:    lostLife,
		MissedTurns: p.MissedTurns,
	}})

	eliminated := (s.Rules.TimeoutLifePenalty && p.Lives <= 0) ||
		(s.Rules.MissedTurnLimit > 0 && p.MissedTurns >= s.Rules.MissedTurnLimit)
	if eliminated {
		s.forfeitPlayer(p, "timeout_threshold", delta)
		if s.activeCount() < board.MinPlayers {
			// The variant threshold ended the game: rank by points.
			s.complete(now, delta)
			return Outcome{OK: true, Delta: delta, Terminal: true}, s.checkInvariants()
		}
	}

	s.advanceTurn(now, delta)
	return Outcome{OK: true, Delta: delta, TurnAdvanced: true}, s.checkInvariants()
}

// ApplyDisconnect records a dropped connection. A WAITING room simply loses
// the player; a drop during the launch countdown cancels it back to WAITING;
// a live game pauses only when the drop leaves fewer connected players than
// the variant's minimum.
func (s *Session) ApplyDisconnect(playerID string, now time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Quarantined {
		return reject(ReasonQuarantined), nil
	}
	if s.Status == StatusWaiting {
		return s.removePlayerLocked(playerID)
	}
	if s.Status == StatusStarting {
		return s.cancelStartLocked(playerID, now)
	}
	if s.Status != StatusInProgress && s.Status != StatusPaused {
		return reject(ReasonWrongStatus), nil
	}
	p := s.playerByID(playerID)
	if p == nil {
		return reject(ReasonUnknownPlayer), nil
	}
	if !p.Connected {
		return reject(ReasonWrongStatus), nil
	}

	p.Connected = false
	s.UpdatedAt = now

	delta := s.newDelta()
	out := Outcome{OK: true, Delta: delta}

	if s.Status == StatusInProgress && p.Active() && s.connectedActiveCount() < s.Rules.MinPlayers {
		s.Status = StatusPaused
		s.Generation++
		s.PauseDeadline = now.Add(time.Duration(s.Rules.ReconnectGraceSec) * time.Second)
		delta.Events = append(delta.Events,
			Event{Type: EventPlayerDisconnected, Payload: PlayerConnectivityPayload{PlayerID: playerID, Deadline: s.PauseDeadline}},
			Event{Type: EventGamePaused, Payload: GamePausedPayload{Deadline: s.PauseDeadline}},
		)
		out.Paused = true
		return out, s.checkInvariants()
	}

	delta.Events = append(delta.Events, Event{Type: EventPlayerDisconnected, Payload: PlayerConnectivityPayload{PlayerID: playerID}})
	return out, s.checkInvariants()
}

// cancelStartLocked aborts the launch countdown when a player drops before
// the game starts. The room returns to WAITING without the dropped player;
// bumping the generation stales the pending countdown timer so it cannot
// start a game against an absent player.
func (s *Session) cancelStartLocked(playerID string, now time.Time) (Outcome, error) {
	if s.playerByID(playerID) == nil {
		return reject(ReasonUnknownPlayer), nil
	}

	s.Status = StatusWaiting
	s.Generation++
	s.UpdatedAt = now

	out, err := s.removePlayerLocked(playerID)
	if err != nil || !out.OK {
		return out, err
	}
	out.Delta.Events = append(out.Delta.Events, Event{Type: EventStartCancelled})
	return out, s.checkInvariants()
}

// ApplyReconnect restores a dropped player, resuming a paused game when
// enough players are back.
func (s *Session) ApplyReconnect(playerID string, now time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Quarantined {
		return reject(ReasonQuarantined), nil
	}
	if s.Status != StatusInProgress && s.Status != StatusPaused {
		return reject(ReasonWrongStatus), nil
	}
	p := s.playerByID(playerID)
	if p == nil {
		return reject(ReasonUnknownPlayer), nil
	}
	if p.Connected {
		return reject(ReasonNotDisconnected), nil
	}

	p.Connected = true
	s.UpdatedAt = now

	delta := s.newDelta()
	delta.Events = append(delta.Events, Event{Type: EventPlayerReconnected, Payload: PlayerConnectivityPayload{PlayerID: playerID}})
	out := Outcome{OK: true, Delta: delta}

	if s.Status == StatusPaused && s.connectedActiveCount() >= s.Rules.MinPlayers {
		s.resume(now, delta)
		out.Resumed = true
	}
	return out, s.checkInvariants()
}

// resume returns a paused game to IN_PROGRESS with a fresh turn deadline.
func (s *Session) resume(now time.Time, delta *Delta) {
	s.Status = StatusInProgress
	s.Generation++
	s.PauseDeadline = time.Time{}
	s.TurnDeadline = now.Add(time.Duration(s.Rules.TurnTimeoutSec) * time.Second)
	delta.Events = append(delta.Events,
		Event{Type: EventGameResumed},
		Event{Type: EventTurnChanged, Payload: TurnChangedPayload{
			PlayerID: s.TurnOrder[s.CurrentTurn],
			Deadline: s.TurnDeadline,
		}},
	)
}

// ExpireGrace resolves a PAUSED session after the reconnect window lapsed:
// still-disconnected players forfeit, and if fewer than two active players
// remain the game is abandoned with no winner.
func (s *Session) ExpireGrace(now time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if out, ok := s.guard(StatusPaused); !ok {
		return out, nil
	}

	delta := s.newDelta()
	for _, p := range s.Players {
		if p.Active() && !p.Connected {
			s.forfeitPlayer(p, "reconnect_window_expired", delta)
		}
	}
	s.UpdatedAt = now

	if s.activeCount() < board.MinPlayers {
		s.abandon(now, delta)
		return Outcome{OK: true, Delta: delta, Terminal: true}, s.checkInvariants()
	}

	s.resume(now, delta)
	if cur := s.currentPlayer(); cur != nil && !cur.Active() {
		s.advanceTurn(now, delta)
	}
	return Outcome{OK: true, Delta: delta, Resumed: true}, s.checkInvariants()
}

// Forfeit removes a player from play voluntarily or by rule. Tokens stay
// where they are and the player's turns are skipped from now on.
func (s *Session) Forfeit(playerID, reason string, now time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Quarantined {
		return reject(ReasonQuarantined), nil
	}
	if s.Status != StatusInProgress && s.Status != StatusPaused {
		return reject(ReasonWrongStatus), nil
	}
	p := s.playerByID(playerID)
	if p == nil {
		return reject(ReasonUnknownPlayer), nil
	}
	if p.Forfeited {
		return reject(ReasonAlreadyForfeit), nil
	}

	delta := s.newDelta()
	wasCurrent := s.currentPlayer() != nil && s.currentPlayer().ID == playerID
	s.forfeitPlayer(p, reason, delta)
	s.UpdatedAt = now

	if s.activeCount() < board.MinPlayers {
		s.complete(now, delta)
		return Outcome{OK: true, Delta: delta, Terminal: true}, s.checkInvariants()
	}
	if s.Status == StatusInProgress && wasCurrent {
		s.advanceTurn(now, delta)
		return Outcome{OK: true, Delta: delta, TurnAdvanced: true}, s.checkInvariants()
	}
	return Outcome{OK: true, Delta: delta}, s.checkInvariants()
}

// forfeitPlayer flags the player and records the event. Callers handle turn
// handover and end-of-game checks.
func (s *Session) forfeitPlayer(p *PlayerState, reason string, delta *Delta) {
	p.Forfeited = true
	p.ForfeitReason = reason
	p.Ready = false
	delta.Events = append(delta.Events, Event{Type: EventPlayerForfeited, Payload: PlayerForfeitedPayload{
		PlayerID: p.ID,
		Reason:   reason,
	}})
}

// complete finalizes the session as COMPLETED and computes the standings.
func (s *Session) complete(now time.Time, delta *Delta) {
	s.Status = StatusCompleted
	s.Generation++
	s.CompletedAt = now
	s.TurnDeadline = time.Time{}
	s.PauseDeadline = time.Time{}
	s.Rankings = s.computeRankings()
	delta.Events = append(delta.Events, Event{Type: EventGameCompleted, Payload: GameCompletedPayload{Rankings: s.Rankings}})
}

// abandon finalizes the session as ABANDONED: no winner, no rankings.
func (s *Session) abandon(now time.Time, delta *Delta) {
	s.Status = StatusAbandoned
	s.Generation++
	s.CompletedAt = now
	s.TurnDeadline = time.Time{}
	s.PauseDeadline = time.Time{}
	s.Rankings = nil
	delta.Events = append(delta.Events, Event{Type: EventGameAbandoned})
}

// computeRankings orders players for the final standings: winners first,
// then active players by points, then forfeits by points. Point ties break
// by fewer tokens lost to capture, then by earlier turn-order position.
func (s *Session) computeRankings() []Ranking {
	orderPos := make(map[string]int, len(s.TurnOrder))
	for i, id := range s.TurnOrder {
		orderPos[id] = i
	}

	rankings := make([]Ranking, 0, len(s.Players))
	for _, p := range s.Players {
		rankings = append(rankings, Ranking{
			PlayerID: p.ID,
			Name:     p.Name,
			Slot:     p.Slot,
			Points:   p.Points,
			Won:      rules.HasWon(p.Tokens),
			Forfeit:  p.Forfeited,
		})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		a, b := rankings[i], rankings[j]
		if a.Won != b.Won {
			return a.Won
		}
		if a.Forfeit != b.Forfeit {
			return !a.Forfeit
		}
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		pa, pb := s.playerByID(a.PlayerID), s.playerByID(b.PlayerID)
		if pa != nil && pb != nil && pa.CapturedLost != pb.CapturedLost {
			return pa.CapturedLost < pb.CapturedLost
		}
		return orderPos[a.PlayerID] < orderPos[b.PlayerID]
	})

	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings
}

// wrapBreach converts a lower-layer invariant error into a session breach.
func wrapBreach(sessionID string, err error) error {
	if breach, ok := err.(*InvariantBreach); ok {
		return breach
	}
	return &InvariantBreach{SessionID: sessionID, Detail: err.Error()}
}

// checkInvariants validates the aggregate after a mutation. A violation
// quarantines the session so no further damage can occur.
func (s *Session) checkInvariants() error {
	detail := s.findInvariantViolation()
	if detail == "" {
		return nil
	}
	s.Quarantined = true
	return &InvariantBreach{SessionID: s.ID, Detail: detail}
}

func (s *Session) findInvariantViolation() string {
	for _, p := range s.Players {
		for i, pos := range p.Tokens {
			if pos == rules.Home || pos == rules.Finished {
				continue
			}
			if pos < 0 || int(pos) >= board.PathLen {
				return fmt.Sprintf("player %s token %d position %d outside domain", p.ID, i, pos)
			}
		}
	}

	if s.Status == StatusInProgress || s.Status == StatusPaused {
		if len(s.TurnOrder) != len(s.Players) {
			return fmt.Sprintf("turn order size %d for %d players", len(s.TurnOrder), len(s.Players))
		}
		seen := make(map[string]bool, len(s.TurnOrder))
		for _, id := range s.TurnOrder {
			if s.playerByID(id) == nil || seen[id] {
				return "turn order is not a permutation of joined players"
			}
			seen[id] = true
		}
		if s.CurrentTurn < 0 || s.CurrentTurn >= len(s.TurnOrder) {
			return fmt.Sprintf("current turn index %d out of range", s.CurrentTurn)
		}
	}
	return ""
}
