package engine

import (
	"time"

	"github.com/ludoroyale/game-server/game/rules"
)

// Snapshot is a complete, self-contained view of a session. It is what a
// (re)connecting client receives so it can rebuild state from one message
// instead of replaying deltas.
type Snapshot struct {
	ID               string        `json:"id"`
	RoomCode         string        `json:"room_code"`
	Variant          rules.Variant `json:"variant"`
	Rules            rules.Config  `json:"rules"`
	Status           Status        `json:"status"`
	Players          []PlayerState `json:"players"`
	TurnOrder        []string      `json:"turn_order,omitempty"`
	CurrentPlayerID  string        `json:"current_player_id,omitempty"`
	Dice             int           `json:"dice"`
	ConsecutiveSixes int           `json:"consecutive_sixes"`
	MoveCount        int           `json:"move_count"`
	Seq              uint64        `json:"seq"`
	TurnDeadline     time.Time     `json:"turn_deadline,omitzero"`
	PauseDeadline    time.Time     `json:"pause_deadline,omitzero"`
	Rankings         []Ranking     `json:"rankings,omitempty"`
	Quarantined      bool          `json:"quarantined,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Snapshot returns a deep copy of the session's observable state. Safe to
// call concurrently with mutations.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]PlayerState, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, *p)
	}

	snap := Snapshot{
		ID:               s.ID,
		RoomCode:         s.RoomCode,
		Variant:          s.Variant,
		Rules:            s.Rules,
		Status:           s.Status,
		Players:          players,
		TurnOrder:        append([]string(nil), s.TurnOrder...),
		Dice:             s.Dice,
		ConsecutiveSixes: s.ConsecutiveSixes,
		MoveCount:        len(s.History),
		Seq:              s.Seq,
		TurnDeadline:     s.TurnDeadline,
		PauseDeadline:    s.PauseDeadline,
		Rankings:         append([]Ranking(nil), s.Rankings...),
		Quarantined:      s.Quarantined,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if cur := s.currentPlayer(); cur != nil && s.Status == StatusInProgress {
		snap.CurrentPlayerID = cur.ID
	}
	return snap
}

// HistoryPage returns a copy of one page of the move history, newest last.
// Offset and limit are clamped to the available range.
func (s *Session) HistoryPage(offset, limit int) ([]Move, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.History)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	page := make([]Move, end-offset)
	copy(page, s.History[offset:end])
	return page, total
}

// Gen returns the current timer generation.
func (s *Session) Gen() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Generation
}

// CurrentStatus returns the session status under the read lock.
func (s *Session) CurrentStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}
