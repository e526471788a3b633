package service

import (
	"context"

	"github.com/ludoroyale/game-server/game/config"
	"github.com/ludoroyale/game-server/game/engine"
	"github.com/ludoroyale/game-server/game/rules"
	"github.com/ludoroyale/game-server/game/turn"
)

// GameService defines all game-related operations exposed to transports.
type GameService interface {
	// Room Management
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*RoomInfo, error)
	GetRoom(ctx context.Context, sessionID string) (*RoomInfo, error)
	ListRooms(ctx context.Context) ([]*RoomInfo, error)
	DeleteRoom(ctx context.Context, sessionID string) error

	// Player Lifecycle
	Join(ctx context.Context, sessionID, playerID, name string) (engine.Outcome, error)
	Leave(ctx context.Context, sessionID, playerID string) (engine.Outcome, error)
	SetReady(ctx context.Context, sessionID, playerID string, ready bool) (engine.Outcome, error)
	Forfeit(ctx context.Context, sessionID, playerID, reason string) (engine.Outcome, error)
	Disconnect(ctx context.Context, sessionID, playerID string) (engine.Outcome, error)
	Reconnect(ctx context.Context, sessionID, playerID string) (engine.Outcome, error)

	// Gameplay
	RollDice(ctx context.Context, sessionID, playerID string) (engine.Outcome, error)
	MoveToken(ctx context.Context, sessionID, playerID string, tokenIndex int) (engine.Outcome, error)

	// Game State
	GetState(ctx context.Context, sessionID string) (engine.Snapshot, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Rulesets
	ListVariants(ctx context.Context) []VariantInfo
	ListRulesets(ctx context.Context) ([]*config.RulesetInfo, error)
	SaveRuleset(ctx context.Context, name string, cfg *rules.Config) error
}

// SessionRegistry defines the session storage and serialization operations
// the service needs. Implemented by the session package.
type SessionRegistry interface {
	Create(id, roomCode string, variant rules.Variant, cfg rules.Config, hooks turn.Hooks, opts ...turn.Option) (*turn.Controller, error)
	WithSession(id string, fn func(c *turn.Controller) error) error
	Snapshot(id string) (engine.Snapshot, error)
	History(id string, offset, limit int) ([]engine.Move, int, error)
	List() []engine.Snapshot
	Remove(id string) error
	Count() int
}

// RulesetManager resolves variants and manages custom rulesets. Implemented
// by the config package.
type RulesetManager interface {
	Resolve(variant rules.Variant, rulesetName string) (rules.Config, error)
	List() ([]*config.RulesetInfo, error)
	Save(name string, cfg *rules.Config) error
}

// Broadcaster fans a committed delta out to everyone watching a session.
// Implemented by the websocket hub; wired after construction because the hub
// also needs the service.
type Broadcaster interface {
	BroadcastDelta(sessionID string, delta *engine.Delta)
}
