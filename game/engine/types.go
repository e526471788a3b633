package engine

import (
	"fmt"
	"time"

	"github.com/ludoroyale/game-server/game/rules"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusStarting   Status = "STARTING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusPaused     Status = "PAUSED"
	StatusCompleted  Status = "COMPLETED"
	StatusAbandoned  Status = "ABANDONED"
)

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Reason is a stable machine-readable code explaining a rejected action.
type Reason string

const (
	ReasonNotYourTurn     Reason = "not_your_turn"
	ReasonRollRequired    Reason = "roll_required"
	ReasonAlreadyRolled   Reason = "already_rolled"
	ReasonIllegalMove     Reason = "illegal_move"
	ReasonBadTokenIndex   Reason = "bad_token_index"
	ReasonRoomFull        Reason = "room_full"
	ReasonAlreadyJoined   Reason = "already_joined"
	ReasonUnknownPlayer   Reason = "unknown_player"
	ReasonWrongStatus     Reason = "wrong_status"
	ReasonNotReady        Reason = "not_ready"
	ReasonNotEnoughReady  Reason = "not_enough_players"
	ReasonQuarantined     Reason = "session_quarantined"
	ReasonAlreadyForfeit  Reason = "already_forfeited"
	ReasonNotDisconnected Reason = "not_disconnected"
)

// EventType names an outbound realtime event.
type EventType string

const (
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerReady        EventType = "player_ready"
	EventGameStarting       EventType = "game_starting"
	EventStartCancelled     EventType = "start_cancelled"
	EventGameStarted        EventType = "game_started"
	EventDiceRolled         EventType = "dice_rolled"
	EventPieceMoved         EventType = "piece_moved"
	EventPlayerCaptured     EventType = "player_captured"
	EventTurnChanged        EventType = "turn_changed"
	EventTurnTimeout        EventType = "turn_timeout"
	EventTurnForfeited      EventType = "turn_forfeited"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
	EventPlayerForfeited    EventType = "player_forfeited"
	EventGamePaused         EventType = "game_paused"
	EventGameResumed        EventType = "game_resumed"
	EventGameCompleted      EventType = "game_completed"
	EventGameAbandoned      EventType = "game_abandoned"
)

// Event is one entry of a broadcast delta.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// Delta is the ordered batch of events produced by one committed mutation.
// Seq is assigned from the session's commit counter, so receivers can detect
// gaps and request a resync.
type Delta struct {
	Seq    uint64  `json:"seq"`
	Events []Event `json:"events"`
}

// Outcome is the result of a mutator call. Rejections carry a Reason and a
// nil Delta; successful mutations carry the delta to broadcast plus flags the
// turn controller uses to drive timers.
type Outcome struct {
	OK     bool
	Reason Reason
	Delta  *Delta

	// TurnAdvanced is set when the current player changed.
	TurnAdvanced bool
	// ExtraRoll is set when the same player keeps the turn and must roll again.
	ExtraRoll bool
	// NoLegalMove is set when a roll produced no movable token.
	NoLegalMove bool
	// Paused is set when a disconnect dropped the session to PAUSED.
	Paused bool
	// Resumed is set when the session returned to IN_PROGRESS.
	Resumed bool
	// Terminal is set when the mutation drove the session to a final status.
	Terminal bool
}

// reject builds a failure outcome. It never carries a delta: rejected actions
// are reported to the acting caller only.
func reject(reason Reason) Outcome {
	return Outcome{OK: false, Reason: reason}
}

// PlayerState is the per-player slice of the aggregate.
type PlayerState struct {
	ID     string                                     `json:"id"`
	Name   string                                     `json:"name"`
	Slot   int                                        `json:"slot"`
	Tokens [rules.TokensPerPlayer]rules.Position      `json:"tokens"`
	Points int                                        `json:"points"`

	// CaptureBonus accumulates configured capture rewards; it is added to
	// the recomputed distance score, never double counted.
	CaptureBonus int `json:"capture_bonus"`
	// CapturedLost counts this player's tokens sent back to Home, used by
	// the QUICK tie-break.
	CapturedLost int `json:"captured_lost"`

	Lives         int    `json:"lives,omitempty"`
	MissedTurns   int    `json:"missed_turns"`
	Ready         bool   `json:"ready"`
	Connected     bool   `json:"connected"`
	Forfeited     bool   `json:"forfeited"`
	ForfeitReason string `json:"forfeit_reason,omitempty"`
}

// Active reports whether the player still takes turns.
func (p *PlayerState) Active() bool {
	return !p.Forfeited
}

// Move is one immutable entry of the move history.
type Move struct {
	PlayerID   string          `json:"player_id"`
	TokenIndex int             `json:"token_index"`
	From       rules.Position  `json:"from"`
	To         rules.Position  `json:"to"`
	Dice       int             `json:"dice"`
	Captured   []rules.Capture `json:"captured,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Ranking is one row of the final standings handed to the ledger.
type Ranking struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Slot     int    `json:"slot"`
	Points   int    `json:"points"`
	Won      bool   `json:"won"`
	Forfeit  bool   `json:"forfeit"`
}

// InvariantBreach is raised when the aggregate detects corrupted state. The
// session is frozen for investigation; it is never silently continued.
type InvariantBreach struct {
	SessionID string
	Detail    string
}

func (e *InvariantBreach) Error() string {
	return fmt.Sprintf("engine: invariant breach in session %s: %s", e.SessionID, e.Detail)
}

// Event payloads.

type PlayerJoinedPayload struct {
	Player *PlayerState `json:"player"`
}

type PlayerReadyPayload struct {
	PlayerID string `json:"player_id"`
	Ready    bool   `json:"ready"`
}

type GameStartingPayload struct {
	CountdownSec int `json:"countdown_sec"`
}

type GameStartedPayload struct {
	TurnOrder []string `json:"turn_order"`
}

type DiceRolledPayload struct {
	PlayerID string `json:"player_id"`
	Value    int    `json:"value"`
}

type PieceMovedPayload struct {
	Move Move `json:"move"`
}

type PlayerCapturedPayload struct {
	ByPlayerID string        `json:"by_player_id"`
	Capture    rules.Capture `json:"capture"`
}

type TurnChangedPayload struct {
	PlayerID string    `json:"player_id"`
	Deadline time.Time `json:"deadline,omitzero"`
}

type TurnTimeoutPayload struct {
	PlayerID    string `json:"player_id"`
	LostLife    bool   `json:"lost_life,omitempty"`
	MissedTurns int    `json:"missed_turns"`
}

type TurnForfeitedPayload struct {
	PlayerID string `json:"player_id"`
	Reason   string `json:"reason"`
}

type PlayerConnectivityPayload struct {
	PlayerID string    `json:"player_id"`
	Deadline time.Time `json:"deadline,omitzero"`
}

type PlayerForfeitedPayload struct {
	PlayerID string `json:"player_id"`
	Reason   string `json:"reason"`
}

type GamePausedPayload struct {
	Deadline time.Time `json:"deadline"`
}

type GameCompletedPayload struct {
	Rankings []Ranking `json:"rankings"`
}
