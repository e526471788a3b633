// Package turn drives the session-level state machine for live games.
//
// The turn package implements:
//   - The WAITING > STARTING > IN_PROGRESS > PAUSED > terminal flow
//   - Dice-roll sequencing and bonus/penalty turn rules
//   - Turn timeouts, the start countdown, and the reconnect grace window
//   - Generation-tagged cancellable timers
//
// Timers:
//
// Every deferred callback is tagged with the session's generation counter at
// scheduling time. Mutations that advance the session bump the counter, so a
// timer that fires late observes a generation mismatch and becomes a no-op
// instead of corrupting a later state. Pausing cancels the turn timer,
// resuming re-arms it, and terminal transitions clear everything.
//
// Serialization:
//
// A Controller never locks: it relies on the registry executing every call,
// including timer callbacks, on the session's serialized queue. Timer
// callbacks re-enter through the bound Dispatcher for exactly that reason.
package turn
