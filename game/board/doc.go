// Package board provides the static movement geometry for the Ludo board.
//
// The board package implements:
//   - Per-slot, per-player-count path lookup
//   - Starting cell and home lane derivation
//   - The global safe-cell set
//
// Core Concepts:
//
// The board is a shared 52-cell loop plus a private 6-cell home lane per
// player. A player's path is the ordered sequence of cells its tokens
// traverse: 51 loop cells beginning at the slot's entry cell, followed by the
// home lane, ending at the finish marker. Cells are opaque markers; rule code
// compares markers for equality and never does arithmetic on them.
//
// All tables are precomputed at package init, so every lookup is a cheap
// read of immutable data. Identical inputs always produce identical outputs,
// which move re-validation relies on.
//
// Usage:
//
//	path, err := board.Path(0, 4)
//	if err != nil {
//		log.Fatal(err)
//	}
//	entry := path[0] // same as board.StartingCell(0, 4)
//
// Unsupported slot/player-count pairs are programmer errors and are reported
// as a ConfigurationError.
package board
