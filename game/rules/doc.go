// Package rules implements the rule decisions for Ludo sessions.
//
// The rules package is pure: no I/O, no clocks, no hidden state. Every
// function is deterministic in its inputs, so a move that a client retried
// after a dropped acknowledgment can be re-validated and must produce the
// same answer.
//
// It covers:
//   - Move legality and destination resolution
//   - Capture detection against an immutable view of opposing tokens
//   - Win detection and point scoring
//   - Rule configuration, variant presets, and validation
//
// Positions:
//
// A token position is Home, Finished, or a path index in [0, board.PathLen).
// Any other value is an invariant breach and is reported as an error rather
// than silently repaired.
//
// Scoring:
//
// A player's points are the sum, over tokens, of each token's index within
// its own path (distance traveled), plus accumulated capture rewards. Using
// path indices rather than raw cell markers keeps scoring consistent across
// the variable path assignments of 2-, 3-, and 4-player games.
package rules
