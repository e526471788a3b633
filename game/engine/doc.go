// Package engine implements the mutable Ludo session aggregate.
//
// The engine package owns:
//   - Session and per-player state (tokens, points, lives, connectivity)
//   - Invariant-preserving mutators for every player action
//   - The append-only move history used for audit and resync
//   - Delta and snapshot construction for the realtime protocol
//
// Rule decisions are delegated to the rules package; the engine applies
// their results and keeps the aggregate consistent.
//
// Outcomes:
//
// Every mutator returns an Outcome. Expected rule violations (wrong turn,
// no roll yet, illegal move) come back as failure outcomes with a stable
// reason code and never mutate state. Only invariant corruption is treated
// as exceptional: it quarantines the session, and all further mutations are
// rejected until an operator intervenes.
//
// Concurrency:
//
// A Session is safe for one writer and many readers. The session registry
// serializes all mutations through a single goroutine per session; the
// internal lock exists so read-only snapshots can be taken outside that
// queue without tearing.
package engine
