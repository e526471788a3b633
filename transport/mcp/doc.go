// Package mcp provides a Model Context Protocol surface for the Ludo game
// server.
//
// The mcp package implements:
//   - An MCP server exposing operational tools to AI agents
//   - A thin HTTP client that proxies every tool call to the REST API
//   - Text formatting of rooms, snapshots and move history
//
// The surface is deliberately read-mostly. Agents can create rooms and
// inspect running games, but there are no tools for rolling dice or moving
// tokens: gameplay is driven by the seated players over the websocket, and an
// agent must not be able to act on a player's behalf.
//
// Tools:
//   - create_room: Create a room (variant + optional custom ruleset)
//   - list_rooms: List rooms, optionally filtered by status
//   - get_room: Room details
//   - game_state: Full snapshot (players, tokens, turn, rankings)
//   - move_history: Paginated move history
//   - list_variants: Built-in variants and presets
//   - list_rulesets: Custom rulesets on disk
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
