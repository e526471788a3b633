package rules

import (
	"fmt"

	"github.com/ludoroyale/game-server/game/board"
)

// Position locates a single token: Home, Finished, or an index into the
// owning slot's path.
type Position int

const (
	// Home means the token has not entered play.
	Home Position = -1

	// Finished means the token has reached the finish marker.
	Finished Position = -2
)

const (
	// DiceMin and DiceMax bound a single die roll.
	DiceMin = 1
	DiceMax = 6

	// RollToEnter is the roll required to move a token out of Home.
	RollToEnter = 6

	// TokensPerPlayer is the number of tokens each player controls.
	TokensPerPlayer = 4
)

// ErrInvalidPosition reports a token position outside its valid domain.
// It signals invariant corruption, never a user condition.
type ErrInvalidPosition struct {
	Position Position
}

func (e *ErrInvalidPosition) Error() string {
	return fmt.Sprintf("rules: token position %d outside valid domain", e.Position)
}

// validatePosition checks that pos is Home, Finished, or a path index.
func validatePosition(pos Position) error {
	if pos == Home || pos == Finished {
		return nil
	}
	if pos < 0 || int(pos) >= board.PathLen {
		return &ErrInvalidPosition{Position: pos}
	}
	return nil
}

// OnPath reports whether the position is an index into the slot's path.
func OnPath(pos Position) bool {
	return pos >= 0 && int(pos) < board.PathLen
}

// IsLegal reports whether a token at pos may advance by dice steps. A Home
// token is movable only on a six; a path token is movable only if the advance
// does not overshoot the finish marker. Finished tokens never move.
func IsLegal(pos Position, dice, slot, totalPlayers int) (bool, error) {
	if _, err := board.Path(slot, totalPlayers); err != nil {
		return false, err
	}
	if err := validatePosition(pos); err != nil {
		return false, err
	}
	if dice < DiceMin || dice > DiceMax {
		return false, nil
	}

	switch {
	case pos == Finished:
		return false, nil
	case pos == Home:
		return dice == RollToEnter, nil
	default:
		return int(pos)+dice <= board.FinishIndex, nil
	}
}

// Resolve computes the destination of a legal move. Home plus a six yields
// path index 0 (the starting cell); a path position advances by dice, with an
// exact landing on the finish marker yielding Finished. Callers must pre-check
// legality with IsLegal: Resolve returns the position unchanged for an illegal
// move and never repairs it.
func Resolve(pos Position, dice, slot, totalPlayers int) (Position, error) {
	legal, err := IsLegal(pos, dice, slot, totalPlayers)
	if err != nil {
		return pos, err
	}
	if !legal {
		return pos, nil
	}

	if pos == Home {
		return Position(0), nil
	}
	next := int(pos) + dice
	if next == board.FinishIndex {
		return Finished, nil
	}
	return Position(next), nil
}

// PlayerView is the immutable per-player input to capture detection.
type PlayerView struct {
	ID        string
	Slot      int
	Positions [TokensPerPlayer]Position
}

// Capture identifies one token sent back to Home, with its pre-capture
// position for the move record.
type Capture struct {
	PlayerID   string
	Slot       int
	TokenIndex int
	From       Position
}

// DetectCaptures returns every opposing token occupying destination. Tokens
// on a safe cell or inside their owner's private home lane are exempt; the
// mover's own tokens are never returned. The destination is the cell marker
// the moving token lands on within its own path.
func DetectCaptures(players []PlayerView, totalPlayers int, moverID string, destination board.Cell) ([]Capture, error) {
	// Lane cells belong to exactly one slot, so nothing standing there can
	// match a cell the mover reaches. Safe cells are globally exempt.
	if board.IsLaneCell(destination) || board.IsSafeCell(destination) {
		return nil, nil
	}

	var captures []Capture
	for _, p := range players {
		if p.ID == moverID {
			continue
		}
		path, err := board.Path(p.Slot, totalPlayers)
		if err != nil {
			return nil, err
		}
		for i, pos := range p.Positions {
			if err := validatePosition(pos); err != nil {
				return nil, err
			}
			if !OnPath(pos) {
				continue
			}
			if path[pos] == destination {
				captures = append(captures, Capture{
					PlayerID:   p.ID,
					Slot:       p.Slot,
					TokenIndex: i,
					From:       pos,
				})
			}
		}
	}
	return captures, nil
}

// HasWon reports whether every token has reached the finish marker.
func HasWon(positions [TokensPerPlayer]Position) bool {
	for _, pos := range positions {
		if pos != Finished {
			return false
		}
	}
	return true
}

// DistanceScore returns the distance-traveled component of a player's points:
// the sum of each token's path index, counting Home as zero and Finished as
// the full path length.
func DistanceScore(positions [TokensPerPlayer]Position) (int, error) {
	total := 0
	for _, pos := range positions {
		if err := validatePosition(pos); err != nil {
			return 0, err
		}
		switch pos {
		case Home:
		case Finished:
			total += board.FinishIndex
		default:
			total += int(pos)
		}
	}
	return total, nil
}

// Score combines the distance score with accumulated capture rewards,
// applying the configured cap when one is set.
func Score(positions [TokensPerPlayer]Position, captureBonus, cap int) (int, error) {
	distance, err := DistanceScore(positions)
	if err != nil {
		return 0, err
	}
	total := distance + captureBonus
	if cap > 0 && total > cap {
		total = cap
	}
	return total, nil
}
