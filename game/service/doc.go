// Package service provides the business logic layer of the game server.
//
// The service package implements:
//   - Room lifecycle (create, get, list, delete)
//   - Player actions routed through each session's serialized queue
//   - Paginated move history
//   - Variant and ruleset listing
//   - Ledger notification when a game completes
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game
// operations. SessionRegistry handles session storage and per-session
// serialization. RulesetManager resolves variants and custom rulesets.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP)
// and the game engine. It owns no game state itself: the registry stores
// sessions and runs every mutation on the session's worker goroutine, so
// actions against one room apply one at a time while rooms stay independent.
//
// Every mutation returns an engine.Outcome. A rejected action (wrong turn,
// illegal move) is OK=false with a reason code and changes nothing; only
// genuine faults surface as errors.
//
// Usage:
//
//	registry := session.NewRegistry()
//	rulesets, _ := config.NewManager("rulesets")
//	gameService := service.NewGameService(registry, rulesets, notifier)
//
//	// Create a new room
//	room, err := gameService.CreateRoom(ctx, service.CreateRoomRequest{Variant: rules.Classic})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Player actions
//	outcome, err := gameService.RollDice(ctx, room.ID, playerID)
//
// Broadcasting:
//
// Committed deltas are fanned out through the Broadcaster, installed with
// SetBroadcaster after the websocket hub is constructed. Deltas for one
// session leave in commit order because they are emitted on the session's
// worker. Completed games are reported to the ledger exactly once.
package service
