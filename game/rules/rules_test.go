package rules

import (
	"testing"

	"github.com/ludoroyale/game-server/game/board"
)

func TestIsLegal(t *testing.T) {
	tests := []struct {
		name     string
		pos      Position
		dice     int
		expected bool
	}{
		{"home with six", Home, 6, true},
		{"home with five", Home, 5, false},
		{"home with one", Home, 1, false},
		{"path start small roll", Position(0), 3, true},
		{"path exact finish", Position(board.FinishIndex - 6), 6, true},
		{"path overshoot by one", Position(board.FinishIndex - 5), 6, false},
		{"last cell any roll", Position(board.FinishIndex), 1, false},
		{"finished token", Finished, 6, false},
		{"dice zero", Position(10), 0, false},
		{"dice seven", Position(10), 7, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			legal, err := IsLegal(test.pos, test.dice, 0, 4)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if legal != test.expected {
				t.Errorf("IsLegal(%d, %d): expected %v, got %v", test.pos, test.dice, test.expected, legal)
			}
		})
	}
}

func TestIsLegal_InvalidPosition(t *testing.T) {
	if _, err := IsLegal(Position(board.PathLen), 3, 0, 4); err == nil {
		t.Fatal("expected invariant error for out-of-domain position")
	}
	if _, err := IsLegal(Position(-7), 3, 0, 4); err == nil {
		t.Fatal("expected invariant error for negative non-sentinel position")
	}
}

func TestIsLegal_UnsupportedSlot(t *testing.T) {
	_, err := IsLegal(Home, 6, 3, 2)
	if err == nil {
		t.Fatal("expected configuration error for slot 3 in a 2-player game")
	}
	if _, ok := err.(*board.ConfigurationError); !ok {
		t.Errorf("expected *board.ConfigurationError, got %T", err)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		pos      Position
		dice     int
		expected Position
	}{
		{"home with six enters at start", Home, 6, Position(0)},
		{"home with three stays", Home, 3, Home},
		{"simple advance", Position(4), 3, Position(7)},
		{"exact landing finishes", Position(board.FinishIndex - 2), 2, Finished},
		{"overshoot unchanged", Position(board.FinishIndex - 1), 4, Position(board.FinishIndex - 1)},
		{"finished unchanged", Finished, 6, Finished},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Resolve(test.pos, test.dice, 1, 4)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != test.expected {
				t.Errorf("Resolve(%d, %d): expected %d, got %d", test.pos, test.dice, test.expected, got)
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	for dice := DiceMin; dice <= DiceMax; dice++ {
		for pos := Position(0); pos < Position(board.PathLen); pos++ {
			first, err1 := Resolve(pos, dice, 0, 4)
			second, err2 := Resolve(pos, dice, 0, 4)
			if err1 != nil || err2 != nil {
				t.Fatalf("unexpected errors: %v, %v", err1, err2)
			}
			if first != second {
				t.Fatalf("Resolve(%d, %d) not deterministic: %d vs %d", pos, dice, first, second)
			}
		}
	}
}

// capturePlayers builds a standard 4-player view. The mover is "p0" on slot 0;
// each opposing position is expressed in that opponent's own path indices.
func capturePlayers(opponentPositions map[string][TokensPerPlayer]Position) []PlayerView {
	players := []PlayerView{{ID: "p0", Slot: 0, Positions: allHome()}}
	ids := []string{"p1", "p2", "p3"}
	for i, id := range ids {
		positions := allHome()
		if custom, ok := opponentPositions[id]; ok {
			positions = custom
		}
		players = append(players, PlayerView{ID: id, Slot: i + 1, Positions: positions})
	}
	return players
}

func allHome() [TokensPerPlayer]Position {
	return [TokensPerPlayer]Position{Home, Home, Home, Home}
}

func TestDetectCaptures_OpposingTokenOnDestination(t *testing.T) {
	// Slot 1 enters at loop cell 13, so its path index 2 is loop cell 15.
	// For the slot-0 mover, loop cell 15 is path index 15.
	players := capturePlayers(map[string][TokensPerPlayer]Position{
		"p1": {Position(2), Home, Home, Home},
	})
	moverPath, _ := board.Path(0, 4)
	destination := moverPath[15]

	captures, err := DetectCaptures(players, 4, "p0", destination)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captures) != 1 {
		t.Fatalf("expected 1 capture, got %d", len(captures))
	}
	c := captures[0]
	if c.PlayerID != "p1" || c.TokenIndex != 0 || c.From != Position(2) {
		t.Errorf("unexpected capture record: %+v", c)
	}
}

func TestDetectCaptures_SafeCellExempt(t *testing.T) {
	// Loop cell 21 is safe. Slot 1 path index 8 is loop cell 21.
	players := capturePlayers(map[string][TokensPerPlayer]Position{
		"p1": {Position(8), Home, Home, Home},
	})
	moverPath, _ := board.Path(0, 4)
	destination := moverPath[21]
	if !board.IsSafeCell(destination) {
		t.Fatalf("test setup: expected cell %v to be safe", destination)
	}

	captures, err := DetectCaptures(players, 4, "p0", destination)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captures) != 0 {
		t.Errorf("expected no captures on a safe cell, got %d", len(captures))
	}
}

func TestDetectCaptures_NeverOwnTokens(t *testing.T) {
	players := capturePlayers(nil)
	players[0].Positions = [TokensPerPlayer]Position{Position(15), Position(15), Home, Home}
	moverPath, _ := board.Path(0, 4)

	captures, err := DetectCaptures(players, 4, "p0", moverPath[15])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captures) != 0 {
		t.Errorf("mover's own tokens must never be captured, got %d", len(captures))
	}
}

func TestDetectCaptures_HomeLaneExempt(t *testing.T) {
	moverPath, _ := board.Path(0, 4)
	laneDestination := moverPath[board.PathLen-2]
	if !board.IsLaneCell(laneDestination) {
		t.Fatalf("test setup: expected lane cell, got %v", laneDestination)
	}

	players := capturePlayers(map[string][TokensPerPlayer]Position{
		"p1": {Position(board.PathLen - 2), Home, Home, Home},
	})
	captures, err := DetectCaptures(players, 4, "p0", laneDestination)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captures) != 0 {
		t.Errorf("home lane tokens must never be captured, got %d", len(captures))
	}
}

func TestDetectCaptures_Idempotent(t *testing.T) {
	players := capturePlayers(map[string][TokensPerPlayer]Position{
		"p1": {Position(2), Home, Home, Home},
		"p2": {Home, Position(41), Home, Home},
	})
	moverPath, _ := board.Path(0, 4)
	destination := moverPath[15]

	first, err1 := DetectCaptures(players, 4, "p0", destination)
	second, err2 := DetectCaptures(players, 4, "p0", destination)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if len(first) != len(second) {
		t.Fatalf("capture detection not deterministic: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("capture %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestHasWon(t *testing.T) {
	if !HasWon([TokensPerPlayer]Position{Finished, Finished, Finished, Finished}) {
		t.Error("all tokens finished should win")
	}
	if HasWon([TokensPerPlayer]Position{Finished, Finished, Finished, Position(50)}) {
		t.Error("a token still on the path should not win")
	}
	if HasWon(allHome()) {
		t.Error("all tokens at home should not win")
	}
}

func TestDistanceScore(t *testing.T) {
	positions := [TokensPerPlayer]Position{Home, Position(10), Position(30), Finished}
	got, err := DistanceScore(positions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := 10 + 30 + board.FinishIndex
	if got != expected {
		t.Errorf("expected score %d, got %d", expected, got)
	}
}

func TestScore_CaptureBonusAndCap(t *testing.T) {
	positions := [TokensPerPlayer]Position{Position(10), Home, Home, Home}

	withBonus, err := Score(positions, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if withBonus != 30 {
		t.Errorf("expected 30 with capture bonus, got %d", withBonus)
	}

	capped, err := Score(positions, 20, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if capped != 25 {
		t.Errorf("expected cap of 25, got %d", capped)
	}
}
