// Package api provides the HTTP REST API for the Ludo game server.
//
// The api package implements:
//   - Room management endpoints (create, list, get, delete)
//   - Authenticated lobby actions (join, leave, ready, forfeit)
//   - Game state and move history endpoints
//   - Variant and ruleset endpoints
//   - WebSocket upgrade delegation to the realtime hub
//   - Health check
//
// Endpoints:
//
// Room Management:
//   - POST   /api/rooms          - Create a room ({"variant": "...", "ruleset": "..."})
//   - GET    /api/rooms          - List rooms (status, order, limit query params)
//   - GET    /api/rooms/{id}     - Get room info
//   - DELETE /api/rooms/{id}     - Delete a room
//
// Lobby Actions (require a bearer token; the player identity comes from the
// token, never from the request body):
//   - POST /api/rooms/{id}/join    - Join ({"name": "..."} optional override)
//   - POST /api/rooms/{id}/leave   - Leave the lobby
//   - POST /api/rooms/{id}/ready   - Set readiness ({"ready": true|false})
//   - POST /api/rooms/{id}/forfeit - Forfeit ({"reason": "..."} optional)
//
// Game State:
//   - GET /api/rooms/{id}/state   - Full snapshot
//   - GET /api/rooms/{id}/history - Move history (page, limit, order)
//
// Rules:
//   - GET  /api/variants - Built-in variants with their presets
//   - GET  /api/rulesets - Custom rulesets on disk
//   - POST /api/rulesets - Save a custom ruleset ({"name": "...", ...config})
//
// Realtime:
//   - GET /ws?session={id}&token={jwt} - WebSocket upgrade (see transport/websocket)
//
// Response Format:
//
// All endpoints return JSON. Rejected game actions (it is not your turn, the
// room is full, ...) are not transport errors: they return 409 with the reason
// code so clients can surface them to the player:
//
//	{"error": "NOT_YOUR_TURN"}
//
// Unknown rooms return 404, invalid tokens 401, malformed bodies 400.
//
// Dice rolls and token moves are deliberately not exposed over REST; gameplay
// happens on the websocket so every participant sees the same ordered stream
// of deltas.
//
// Usage:
//
//	server := api.NewServer(gameService, hub, verifier)
//	http.ListenAndServe(":8080", server)
package api
