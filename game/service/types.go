package service

import (
	"time"

	"github.com/ludoroyale/game-server/game/engine"
	"github.com/ludoroyale/game-server/game/rules"
)

// CreateRoomRequest describes a new room.
type CreateRoomRequest struct {
	Variant rules.Variant `json:"variant"`
	Ruleset string        `json:"ruleset,omitempty"` // required for CUSTOM
}

// RoomInfo provides information about a game room.
type RoomInfo struct {
	ID          string          `json:"id"`
	RoomCode    string          `json:"room_code"`
	Variant     rules.Variant   `json:"variant"`
	Status      engine.Status   `json:"status"`
	PlayerCount int             `json:"player_count"`
	MaxPlayers  int             `json:"max_players"`
	CreatedAt   time.Time       `json:"created_at"`
	State       engine.Snapshot `json:"state"`
}

// VariantInfo summarizes a built-in variant for listing endpoints.
type VariantInfo struct {
	Variant        rules.Variant `json:"variant"`
	Name           string        `json:"name"`
	MinPlayers     int           `json:"min_players"`
	MaxPlayers     int           `json:"max_players"`
	TurnTimeoutSec int           `json:"turn_timeout_sec"`
	MoveCap        int           `json:"move_cap,omitempty"`
	Lives          int           `json:"lives,omitempty"`
	PrizeSplit     []int         `json:"prize_split,omitempty"`
}

// HistoryOptions configures move history retrieval.
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history.
type HistoryResponse struct {
	Moves       []engine.Move `json:"moves"`
	TotalMoves  int           `json:"total_moves"`
	Page        int           `json:"page"`
	PageSize    int           `json:"page_size"`
	TotalPages  int           `json:"total_pages"`
	HasNext     bool          `json:"has_next"`
	HasPrevious bool          `json:"has_previous"`
}
