// Package websocket provides the realtime gateway for game sessions.
//
// The websocket package implements:
//   - Authenticated, session-aware WebSocket connections
//   - A full snapshot on every (re)connect
//   - Committed-delta broadcasting in commit order
//   - Player action routing into the game service
//   - Chat relay and connection lifecycle management
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a dedicated
// goroutine that manages reading, writing, and cleanup.
//
// Message Protocol:
//
// Messages are JSON-encoded with a "type" discriminator:
//   - Incoming: {type: "roll_dice"}, {type: "move_token", token_index: 2},
//     {type: "set_ready", ready: true}, {type: "join"}, {type: "forfeit"},
//     {type: "request_resync"}, {type: "send_chat", text: "glhf"}
//   - Outgoing: {type: "snapshot", snapshot: {...}} on connect and resync,
//     {type: "delta", delta: {seq, events}} for every committed change,
//     {type: "error", reason: "not_your_turn"} to the acting client only,
//     {type: "chat", player_id, text} relayed to the room
//
// Session Integration:
//
// Clients specify their session via query parameter (?session=<id>) and
// authenticate with a bearer token (header or ?token=). Deltas are broadcast
// only to clients connected to the same session, in the order the session
// committed them; a client that falls behind is dropped and resyncs on
// reconnect. Identities not seated in the room connect as spectators: they
// receive everything but their actions are rejected.
//
// Connection Lifecycle:
//
// 1. Client connects with session ID and token
// 2. Connection registered with hub, full snapshot sent
// 3. Seated players are marked reconnected
// 4. Client sends actions, receives deltas
// 5. Last connection for an identity dropping reports the player disconnected
//
// Usage:
//
//	hub := websocket.NewHub(gameService, verifier)
//	gameService.SetBroadcaster(hub)
//	router.Handle("/ws", hub)
//
// Concurrency:
//
// The hub is safe for concurrent use. Multiple clients can connect,
// disconnect, and send messages simultaneously without blocking each other;
// serialization of game mutations happens in the session registry, not here.
package websocket
