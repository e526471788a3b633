// Package session provides the registry that owns every live game session.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Room code generation
//   - A per-session serialized mutation queue
//   - Session cleanup and retention sweeping
//
// Core Types:
//
// Registry is the session registry that handles all lifecycle operations.
// Each registered session is paired with a turn controller and a dedicated
// worker goroutine; every mutation for that session runs on its worker, so
// mutations on the same session never interleave and broadcasts leave in
// commit order. Mutations on different sessions run concurrently.
//
// Room Codes:
//
// Rooms use short uppercase hex codes for easy reference. The registry
// ensures codes are unique among live sessions and generates them with
// cryptographic randomness.
//
// Concurrency:
//
// All Registry methods are safe for concurrent use. WithSession enqueues
// work on the session's worker and waits for it to run; Snapshot reads
// directly so observers never queue behind mutators. Timer callbacks from
// the turn controller are routed through the same worker queue.
//
// Usage:
//
//	reg := session.NewRegistry()
//	defer reg.Close()
//
//	ctrl, err := reg.Create("", "CLASSIC", hooks)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = reg.WithSession(ctrl.Session().ID, func(c *turn.Controller) error {
//		out := c.RollDice(playerID)
//		...
//		return nil
//	})
//
// Cleanup:
//
// Finished sessions are retained for a configurable window so late readers
// can still fetch the final snapshot, then removed by Sweep. Sessions that
// never start are evicted after an idle timeout.
package session
