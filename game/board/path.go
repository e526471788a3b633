package board

import "fmt"

const (
	// LoopSize is the number of cells in the shared outer loop.
	LoopSize = 52

	// LaneSize is the number of cells in each player's private home lane,
	// including the finish marker.
	LaneSize = 6

	// PathLen is the total number of cells a token traverses from its
	// entry cell to the finish marker.
	PathLen = LoopSize - 1 + LaneSize

	// FinishIndex is the path index of the finish marker.
	FinishIndex = PathLen - 1

	// MaxSlots is the number of player slots on the board.
	MaxSlots = 4

	// MinPlayers and MaxPlayers bound the supported player counts.
	MinPlayers = 2
	MaxPlayers = 4
)

// Cell is an opaque marker for a board cell. Loop cells are 0..51; home lane
// cells use a disjoint range so that a lane cell of one slot never compares
// equal to any cell reachable by another slot's tokens.
type Cell int

// laneCell returns the marker for lane cell k of the given entry offset.
// Lane markers are keyed by entry offset rather than slot index so that the
// same geometry yields the same markers regardless of how slots are assigned.
func laneCell(entry, k int) Cell {
	return Cell(100 + entry*10 + k)
}

// IsLaneCell reports whether the marker denotes a private home lane cell.
func IsLaneCell(c Cell) bool {
	return c >= 100
}

// ConfigurationError indicates an unsupported slot/player-count pair. It is a
// programmer error: valid sessions can never produce one at runtime.
type ConfigurationError struct {
	Slot         int
	TotalPlayers int
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("board: unsupported slot %d for %d players", e.Slot, e.TotalPlayers)
}

// entryOffsets maps a player count to the loop entry offset used by each slot.
// Two-player games use opposing entry points, so slot 1 of a 2-player game is
// not the same path as slot 1 of a 4-player game.
var entryOffsets = map[int][]int{
	2: {0, 26},
	3: {0, 13, 26},
	4: {0, 13, 26, 39},
}

// safeCells is the fixed global set of loop cells where tokens cannot be
// captured. It is independent of player count.
var safeCells = map[Cell]bool{
	0: true, 8: true, 13: true, 21: true,
	26: true, 34: true, 39: true, 47: true,
}

// paths holds every precomputed path, keyed by player count then slot.
var paths map[int][][]Cell

func init() {
	paths = make(map[int][][]Cell, len(entryOffsets))
	for count, offsets := range entryOffsets {
		slotPaths := make([][]Cell, len(offsets))
		for slot, entry := range offsets {
			slotPaths[slot] = buildPath(entry)
		}
		paths[count] = slotPaths
	}
}

// buildPath constructs the full path for a slot entering the loop at entry:
// 51 loop cells starting at the entry cell, then the 6-cell home lane.
func buildPath(entry int) []Cell {
	path := make([]Cell, 0, PathLen)
	for i := 0; i < LoopSize-1; i++ {
		path = append(path, Cell((entry+i)%LoopSize))
	}
	for k := 0; k < LaneSize; k++ {
		path = append(path, laneCell(entry, k))
	}
	return path
}

// Path returns the ordered cell sequence for the given slot and player count.
// Index 0 is the slot's entry cell and the last index is the finish marker.
// The returned slice is shared immutable data and must not be modified.
func Path(slot, totalPlayers int) ([]Cell, error) {
	slotPaths, ok := paths[totalPlayers]
	if !ok || slot < 0 || slot >= len(slotPaths) {
		return nil, &ConfigurationError{Slot: slot, TotalPlayers: totalPlayers}
	}
	return slotPaths[slot], nil
}

// StartingCell returns the loop cell where the slot's tokens enter play.
func StartingCell(slot, totalPlayers int) (Cell, error) {
	path, err := Path(slot, totalPlayers)
	if err != nil {
		return 0, err
	}
	return path[0], nil
}

// HomeLaneIndices returns the path indices of the slot's private home lane,
// finish marker included.
func HomeLaneIndices(slot, totalPlayers int) ([]int, error) {
	if _, err := Path(slot, totalPlayers); err != nil {
		return nil, err
	}
	indices := make([]int, 0, LaneSize)
	for i := PathLen - LaneSize; i < PathLen; i++ {
		indices = append(indices, i)
	}
	return indices, nil
}

// IsSafeCell reports whether the cell belongs to the fixed global safe set.
// Home lane cells are not part of the set; they are uncapturable because no
// opponent path ever contains them.
func IsSafeCell(c Cell) bool {
	return safeCells[c]
}

// SupportedPlayerCounts returns the player counts the board has paths for,
// in ascending order.
func SupportedPlayerCounts() []int {
	return []int{2, 3, 4}
}
