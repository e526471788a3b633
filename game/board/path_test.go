package board

import "testing"

func TestPath_LengthAndStart(t *testing.T) {
	for _, count := range SupportedPlayerCounts() {
		for slot := 0; slot < count; slot++ {
			path, err := Path(slot, count)
			if err != nil {
				t.Fatalf("Path(%d, %d): unexpected error: %v", slot, count, err)
			}
			if len(path) != PathLen {
				t.Errorf("Path(%d, %d): expected length %d, got %d", slot, count, PathLen, len(path))
			}

			start, err := StartingCell(slot, count)
			if err != nil {
				t.Fatalf("StartingCell(%d, %d): unexpected error: %v", slot, count, err)
			}
			if start != path[0] {
				t.Errorf("StartingCell(%d, %d): expected %v (path[0]), got %v", slot, count, path[0], start)
			}
		}
	}
}

func TestPath_UnsupportedCombinations(t *testing.T) {
	tests := []struct {
		name         string
		slot         int
		totalPlayers int
	}{
		{"negative slot", -1, 4},
		{"slot beyond count", 2, 2},
		{"slot beyond board", 4, 4},
		{"one player", 0, 1},
		{"five players", 0, 5},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Path(test.slot, test.totalPlayers)
			if err == nil {
				t.Fatalf("Path(%d, %d): expected ConfigurationError, got nil", test.slot, test.totalPlayers)
			}
			if _, ok := err.(*ConfigurationError); !ok {
				t.Errorf("Path(%d, %d): expected *ConfigurationError, got %T", test.slot, test.totalPlayers, err)
			}
		})
	}
}

func TestPath_TwoPlayerOpposingStarts(t *testing.T) {
	first, _ := StartingCell(0, 2)
	second, _ := StartingCell(1, 2)

	if first != Cell(0) {
		t.Errorf("expected slot 0 to enter at cell 0, got %v", first)
	}
	if second != Cell(26) {
		t.Errorf("expected slot 1 to enter at cell 26 (opposing), got %v", second)
	}

	// The two-player geometry must differ from the four-player assignment
	// for the same slot index.
	fourPlayer, _ := StartingCell(1, 4)
	if second == fourPlayer {
		t.Error("slot 1 should not share its entry cell between 2- and 4-player games")
	}
}

func TestHomeLaneIndices(t *testing.T) {
	indices, err := HomeLaneIndices(0, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(indices) != LaneSize {
		t.Fatalf("expected %d lane indices, got %d", LaneSize, len(indices))
	}
	if indices[len(indices)-1] != FinishIndex {
		t.Errorf("expected last lane index to be finish marker %d, got %d", FinishIndex, indices[len(indices)-1])
	}

	path, _ := Path(0, 4)
	for _, idx := range indices {
		if !IsLaneCell(path[idx]) {
			t.Errorf("path index %d should be a lane cell, got %v", idx, path[idx])
		}
	}
}

func TestHomeLanes_PrivatePerSlot(t *testing.T) {
	// No slot's home lane cell may appear anywhere in another slot's path.
	for _, count := range SupportedPlayerCounts() {
		for slot := 0; slot < count; slot++ {
			path, _ := Path(slot, count)
			laneStart := PathLen - LaneSize
			for other := 0; other < count; other++ {
				if other == slot {
					continue
				}
				otherPath, _ := Path(other, count)
				for _, c := range otherPath {
					for i := laneStart; i < PathLen; i++ {
						if c == path[i] {
							t.Fatalf("count=%d: slot %d lane cell %v reachable by slot %d", count, slot, path[i], other)
						}
					}
				}
			}
		}
	}
}

func TestIsSafeCell(t *testing.T) {
	tests := []struct {
		name     string
		cell     Cell
		expected bool
	}{
		{"entry cell 0", Cell(0), true},
		{"star cell 8", Cell(8), true},
		{"entry cell 13", Cell(13), true},
		{"entry cell 26", Cell(26), true},
		{"star cell 47", Cell(47), true},
		{"plain loop cell", Cell(5), false},
		{"plain loop cell 50", Cell(50), false},
		{"lane cell", laneCell(0, 2), false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsSafeCell(test.cell); got != test.expected {
				t.Errorf("IsSafeCell(%v): expected %v, got %v", test.cell, test.expected, got)
			}
		})
	}
}

func TestPath_Deterministic(t *testing.T) {
	a, _ := Path(2, 4)
	b, _ := Path(2, 4)
	if len(a) != len(b) {
		t.Fatal("repeated lookups returned different lengths")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("repeated lookups differ at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestPath_EveryEntryCellIsSafe(t *testing.T) {
	for _, count := range SupportedPlayerCounts() {
		for slot := 0; slot < count; slot++ {
			start, _ := StartingCell(slot, count)
			if !IsSafeCell(start) {
				t.Errorf("count=%d slot=%d: entry cell %v should be safe", count, slot, start)
			}
		}
	}
}
