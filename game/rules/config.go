package rules

import (
	"errors"
	"fmt"

	"github.com/ludoroyale/game-server/game/board"
)

// Variant selects a ruleset mode.
type Variant string

const (
	Classic Variant = "CLASSIC"
	Quick   Variant = "QUICK"
	Kill    Variant = "KILL"
	Custom  Variant = "CUSTOM"
)

var ErrUnknownVariant = errors.New("rules: unknown variant")

// Config is the full rule configuration for one session. All durations are
// whole seconds so configurations serialize cleanly to JSON files.
type Config struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	MinPlayers int `json:"min_players"`
	MaxPlayers int `json:"max_players"`

	// Turn pacing.
	CountdownSec   int `json:"countdown_sec"`
	TurnTimeoutSec int `json:"turn_timeout_sec"`

	// Bonus rules.
	BonusRollOnSix      bool `json:"bonus_roll_on_six"`
	ConsecutiveSixLimit int  `json:"consecutive_six_limit"`
	BonusTurnOnCapture  bool `json:"bonus_turn_on_capture"`
	CaptureReward       int  `json:"capture_reward"`

	// Penalties and thresholds.
	TimeoutLifePenalty bool `json:"timeout_life_penalty"`
	Lives              int  `json:"lives"`
	MissedTurnLimit    int  `json:"missed_turn_limit"`

	// Disconnects.
	ReconnectGraceSec int `json:"reconnect_grace_sec"`

	// Caps. Zero means uncapped.
	MoveCap  int `json:"move_cap"`
	ScoreCap int `json:"score_cap"`

	// PrizeSplit is the configured payout distribution handed to the ledger
	// collaborator on completion, in whole percent per rank. The split is
	// opaque to this core: no monetary amounts are computed here.
	PrizeSplit []int `json:"prize_split,omitempty"`
}

// presets holds the built-in variant configurations.
var presets = map[Variant]Config{
	Classic: {
		Name:                "Classic",
		MinPlayers:          board.MinPlayers,
		MaxPlayers:          board.MaxPlayers,
		CountdownSec:        5,
		TurnTimeoutSec:      30,
		BonusRollOnSix:      true,
		ConsecutiveSixLimit: 3,
		BonusTurnOnCapture:  true,
		CaptureReward:       10,
		MissedTurnLimit:     5,
		ReconnectGraceSec:   60,
		PrizeSplit:          []int{100},
	},
	Quick: {
		Name:                "Quick",
		MinPlayers:          board.MinPlayers,
		MaxPlayers:          board.MaxPlayers,
		CountdownSec:        3,
		TurnTimeoutSec:      15,
		BonusRollOnSix:      true,
		ConsecutiveSixLimit: 3,
		BonusTurnOnCapture:  false,
		CaptureReward:       10,
		MissedTurnLimit:     3,
		ReconnectGraceSec:   30,
		MoveCap:             120,
		PrizeSplit:          []int{70, 30},
	},
	Kill: {
		Name:                "Kill",
		MinPlayers:          board.MinPlayers,
		MaxPlayers:          board.MaxPlayers,
		CountdownSec:        5,
		TurnTimeoutSec:      20,
		BonusRollOnSix:      true,
		ConsecutiveSixLimit: 3,
		BonusTurnOnCapture:  true,
		CaptureReward:       15,
		TimeoutLifePenalty:  true,
		Lives:               3,
		MissedTurnLimit:     3,
		ReconnectGraceSec:   45,
		PrizeSplit:          []int{100},
	},
}

// VariantConfig returns the preset configuration for a built-in variant.
// Custom variants have no preset; their configurations come from the config
// manager.
func VariantConfig(v Variant) (Config, error) {
	cfg, ok := presets[v]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownVariant, v)
	}
	return cfg, nil
}

// Variants returns the built-in variants in a stable order.
func Variants() []Variant {
	return []Variant{Classic, Quick, Kill}
}

// Validate checks a configuration for use at session creation. A failure here
// is fatal only to the session being created.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("rules: config cannot be nil")
	}
	if cfg.MinPlayers < board.MinPlayers {
		return fmt.Errorf("rules: min_players %d below supported minimum %d", cfg.MinPlayers, board.MinPlayers)
	}
	if cfg.MaxPlayers > board.MaxPlayers {
		return fmt.Errorf("rules: max_players %d above supported maximum %d", cfg.MaxPlayers, board.MaxPlayers)
	}
	if cfg.MinPlayers > cfg.MaxPlayers {
		return fmt.Errorf("rules: min_players %d exceeds max_players %d", cfg.MinPlayers, cfg.MaxPlayers)
	}
	if cfg.TurnTimeoutSec <= 0 {
		return errors.New("rules: turn_timeout_sec must be positive")
	}
	if cfg.ConsecutiveSixLimit <= 0 {
		return errors.New("rules: consecutive_six_limit must be positive")
	}
	if cfg.ReconnectGraceSec <= 0 {
		return errors.New("rules: reconnect_grace_sec must be positive")
	}
	if cfg.CaptureReward < 0 {
		return errors.New("rules: capture_reward cannot be negative")
	}
	if cfg.Lives < 0 || cfg.MoveCap < 0 || cfg.ScoreCap < 0 {
		return errors.New("rules: lives, move_cap, and score_cap cannot be negative")
	}
	if cfg.TimeoutLifePenalty && cfg.Lives == 0 {
		return errors.New("rules: timeout_life_penalty requires lives > 0")
	}
	if len(cfg.PrizeSplit) > 0 {
		total := 0
		for _, share := range cfg.PrizeSplit {
			if share < 0 {
				return errors.New("rules: prize_split shares cannot be negative")
			}
			total += share
		}
		if total != 100 {
			return fmt.Errorf("rules: prize_split must total 100, got %d", total)
		}
	}
	return nil
}
