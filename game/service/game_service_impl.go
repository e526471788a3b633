package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ludoroyale/game-server/game/config"
	"github.com/ludoroyale/game-server/game/engine"
	"github.com/ludoroyale/game-server/game/rules"
	"github.com/ludoroyale/game-server/game/turn"
	"github.com/ludoroyale/game-server/ledger"
)

// Service implements GameService on top of the registry.
type Service struct {
	registry SessionRegistry
	rulesets RulesetManager
	notifier ledger.Notifier

	mu          sync.RWMutex
	broadcaster Broadcaster
}

// NewGameService creates the game service. The broadcaster is wired later
// via SetBroadcaster once the websocket hub exists.
func NewGameService(registry SessionRegistry, rulesets RulesetManager, notifier ledger.Notifier) *Service {
	if notifier == nil {
		notifier = ledger.Nop{}
	}
	return &Service{
		registry: registry,
		rulesets: rulesets,
		notifier: notifier,
	}
}

// SetBroadcaster installs the delta fan-out target.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	s.broadcaster = b
	s.mu.Unlock()
}

// CreateRoom creates a new room for the requested variant.
func (s *Service) CreateRoom(ctx context.Context, req CreateRoomRequest) (*RoomInfo, error) {
	variant := req.Variant
	if variant == "" {
		variant = rules.Classic
	}

	cfg, err := s.rulesets.Resolve(variant, req.Ruleset)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ruleset: %w", err)
	}

	hooks := turn.Hooks{
		Broadcast: s.broadcastDelta,
		Completed: s.reportCompleted,
	}
	ctrl, err := s.registry.Create(uuid.NewString(), "", variant, cfg, hooks)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	snap := ctrl.Session().Snapshot()
	log.Printf("[ROOM] created session=%s code=%s variant=%s", snap.ID, snap.RoomCode, snap.Variant)
	return roomInfoFromSnapshot(snap), nil
}

// GetRoom retrieves room information.
func (s *Service) GetRoom(ctx context.Context, sessionID string) (*RoomInfo, error) {
	snap, err := s.registry.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}
	return roomInfoFromSnapshot(snap), nil
}

// ListRooms returns all live rooms.
func (s *Service) ListRooms(ctx context.Context) ([]*RoomInfo, error) {
	snaps := s.registry.List()
	result := make([]*RoomInfo, 0, len(snaps))
	for _, snap := range snaps {
		result = append(result, roomInfoFromSnapshot(snap))
	}
	return result, nil
}

// DeleteRoom removes a room and stops its timers.
func (s *Service) DeleteRoom(ctx context.Context, sessionID string) error {
	return s.registry.Remove(sessionID)
}

// Join adds a player to the room's lobby.
func (s *Service) Join(ctx context.Context, sessionID, playerID, name string) (engine.Outcome, error) {
	return s.act(sessionID, "JOIN", func(c *turn.Controller) engine.Outcome {
		return c.Join(playerID, name)
	})
}

// Leave removes a player from the lobby.
func (s *Service) Leave(ctx context.Context, sessionID, playerID string) (engine.Outcome, error) {
	return s.act(sessionID, "LEAVE", func(c *turn.Controller) engine.Outcome {
		return c.Leave(playerID)
	})
}

// SetReady toggles a player's ready flag.
func (s *Service) SetReady(ctx context.Context, sessionID, playerID string, ready bool) (engine.Outcome, error) {
	return s.act(sessionID, "READY", func(c *turn.Controller) engine.Outcome {
		return c.SetReady(playerID, ready)
	})
}

// Forfeit removes a player from play voluntarily.
func (s *Service) Forfeit(ctx context.Context, sessionID, playerID, reason string) (engine.Outcome, error) {
	return s.act(sessionID, "FORFEIT", func(c *turn.Controller) engine.Outcome {
		return c.Forfeit(playerID, reason)
	})
}

// Disconnect marks a player's transport as gone.
func (s *Service) Disconnect(ctx context.Context, sessionID, playerID string) (engine.Outcome, error) {
	return s.act(sessionID, "DISCONNECT", func(c *turn.Controller) engine.Outcome {
		return c.Disconnect(playerID)
	})
}

// Reconnect marks a player's transport as restored.
func (s *Service) Reconnect(ctx context.Context, sessionID, playerID string) (engine.Outcome, error) {
	return s.act(sessionID, "RECONNECT", func(c *turn.Controller) engine.Outcome {
		return c.Reconnect(playerID)
	})
}

// RollDice rolls for the current player.
func (s *Service) RollDice(ctx context.Context, sessionID, playerID string) (engine.Outcome, error) {
	return s.act(sessionID, "ROLL", func(c *turn.Controller) engine.Outcome {
		return c.RollDice(playerID)
	})
}

// MoveToken applies the pending roll to one of the player's tokens.
func (s *Service) MoveToken(ctx context.Context, sessionID, playerID string, tokenIndex int) (engine.Outcome, error) {
	return s.act(sessionID, "MOVE", func(c *turn.Controller) engine.Outcome {
		return c.MoveToken(playerID, tokenIndex)
	})
}

// GetState retrieves the current snapshot without queuing behind mutators.
func (s *Service) GetState(ctx context.Context, sessionID string) (engine.Snapshot, error) {
	return s.registry.Snapshot(sessionID)
}

// GetHistory returns paginated move history.
func (s *Service) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	offset := (opts.Page - 1) * opts.Limit
	page, total, err := s.registry.History(sessionID, offset, opts.Limit)
	if err != nil {
		return nil, err
	}

	if opts.Order == "desc" {
		// Pages count from the newest move backwards.
		start := total - offset - opts.Limit
		if start < 0 {
			start = 0
		}
		end := total - offset
		if end <= start {
			page = []engine.Move{}
		} else {
			page, _, err = s.registry.History(sessionID, start, end-start)
			if err != nil {
				return nil, err
			}
			for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
				page[i], page[j] = page[j], page[i]
			}
		}
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	return &HistoryResponse{
		Moves:       page,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListVariants returns the built-in variants.
func (s *Service) ListVariants(ctx context.Context) []VariantInfo {
	variants := rules.Variants()
	result := make([]VariantInfo, 0, len(variants))
	for _, v := range variants {
		cfg, err := rules.VariantConfig(v)
		if err != nil {
			continue
		}
		result = append(result, VariantInfo{
			Variant:        v,
			Name:           cfg.Name,
			MinPlayers:     cfg.MinPlayers,
			MaxPlayers:     cfg.MaxPlayers,
			TurnTimeoutSec: cfg.TurnTimeoutSec,
			MoveCap:        cfg.MoveCap,
			Lives:          cfg.Lives,
			PrizeSplit:     cfg.PrizeSplit,
		})
	}
	return result
}

// ListRulesets returns the available custom rulesets.
func (s *Service) ListRulesets(ctx context.Context) ([]*config.RulesetInfo, error) {
	return s.rulesets.List()
}

// SaveRuleset stores a custom ruleset for future rooms.
func (s *Service) SaveRuleset(ctx context.Context, name string, cfg *rules.Config) error {
	return s.rulesets.Save(name, cfg)
}

// act routes a mutation through the session's serialized queue and logs the
// outcome the way every other action is logged.
func (s *Service) act(sessionID, op string, fn func(c *turn.Controller) engine.Outcome) (engine.Outcome, error) {
	var out engine.Outcome
	err := s.registry.WithSession(sessionID, func(c *turn.Controller) error {
		out = fn(c)
		return nil
	})
	if err != nil {
		return engine.Outcome{}, err
	}
	if out.OK {
		log.Printf("[%s] session=%s status=OK", op, sessionID)
	} else {
		log.Printf("[%s] session=%s status=REJECTED reason=%s", op, sessionID, out.Reason)
	}
	return out, nil
}

func (s *Service) broadcastDelta(sessionID string, delta *engine.Delta) {
	s.mu.RLock()
	b := s.broadcaster
	s.mu.RUnlock()
	if b != nil {
		b.BroadcastDelta(sessionID, delta)
	}
}

// reportCompleted notifies the ledger once a game finishes with rankings.
// Runs off the session worker so a slow ledger cannot stall gameplay.
func (s *Service) reportCompleted(snap engine.Snapshot) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result := ledger.Result{
			SessionID:   snap.ID,
			RoomCode:    snap.RoomCode,
			Variant:     snap.Variant,
			Rankings:    snap.Rankings,
			PrizeSplit:  snap.Rules.PrizeSplit,
			CompletedAt: snap.UpdatedAt,
		}
		if err := s.notifier.NotifyCompleted(ctx, result); err != nil {
			log.Printf("[LEDGER] session=%s notify failed: %v", snap.ID, err)
			return
		}
		log.Printf("[LEDGER] session=%s reported %d rankings", snap.ID, len(snap.Rankings))
	}()
}

func roomInfoFromSnapshot(snap engine.Snapshot) *RoomInfo {
	return &RoomInfo{
		ID:          snap.ID,
		RoomCode:    snap.RoomCode,
		Variant:     snap.Variant,
		Status:      snap.Status,
		PlayerCount: len(snap.Players),
		MaxPlayers:  snap.Rules.MaxPlayers,
		CreatedAt:   snap.CreatedAt,
		State:       snap,
	}
}
