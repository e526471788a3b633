package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ludoroyale/game-server/game/config"
	"github.com/ludoroyale/game-server/game/engine"
	"github.com/ludoroyale/game-server/game/rules"
	"github.com/ludoroyale/game-server/game/service"
)

// Client is a thin MCP client that proxies to the REST API. It is a read-only
// operational surface: rooms can be created and inspected, but gameplay
// actions stay on the websocket so agents cannot act on behalf of players.
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Ludo Game Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Ludo Game Server - MCP Interface

This is a thin client that proxies requests to the REST API server. It is an
operational/observability surface: you can create and inspect rooms, but you
cannot roll dice or move tokens - gameplay happens over the websocket and is
driven by the seated players themselves.

AVAILABLE TOOLS:
- create_room: Create a new game room (variant + optional custom ruleset)
- list_rooms: List rooms, optionally filtered by status
- get_room: Get room details (code, variant, players)
- game_state: Full snapshot of a room (turn order, dice, tokens, rankings)
- move_history: Paginated move history for a room
- list_variants: Built-in rule variants and their presets
- list_rulesets: Custom rulesets available on disk

A room goes WAITING -> STARTING -> IN_PROGRESS -> COMPLETED. Players join
over the websocket with a platform token; once at least two are ready the
countdown starts the game.`),
	)

	// Register all tools
	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a new game room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"variant": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"CLASSIC", "QUICK", "KILL", "CUSTOM"},
					"description": "Rule variant (defaults to CLASSIC)",
				},
				"ruleset": map[string]interface{}{
					"type":        "string",
					"description": "Custom ruleset name (required when variant is CUSTOM)",
				},
			},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List game rooms",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"WAITING", "STARTING", "IN_PROGRESS", "PAUSED", "COMPLETED", "ABANDONED"},
					"description": "Only rooms in this status (optional)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of rooms to return (optional)",
				},
			},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get details of a specific room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID to retrieve",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the full game state of a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get the move history of a room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID",
				},
				"page": map[string]interface{}{
					"type":        "number",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Moves per page (default 20)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc, newest first)",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_variants",
		Description: "List built-in rule variants",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListVariants)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rulesets",
		Description: "List custom rulesets available on disk",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRulesets)
}

// GetMCPServer returns the underlying MCP server for transport wiring.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	variant, _ := args["variant"].(string)
	ruleset, _ := args["ruleset"].(string)

	body := map[string]string{}
	if variant != "" {
		body["variant"] = variant
	}
	if ruleset != "" {
		body["ruleset"] = ruleset
	}

	var room service.RoomInfo
	err := c.apiCall("POST", "/api/rooms", body, &room)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created room: %s\nCode: %s\nVariant: %s\n", room.ID, room.RoomCode, room.Variant)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})

	params := "?"
	if status, ok := args["status"].(string); ok && status != "" {
		params += fmt.Sprintf("status=%s&", status)
	}
	if limit, ok := args["limit"].(float64); ok {
		params += fmt.Sprintf("limit=%d&", int(limit))
	}
	params = strings.TrimSuffix(params, "&")
	params = strings.TrimSuffix(params, "?")

	var response struct {
		Count int                `json:"count"`
		Rooms []service.RoomInfo `json:"rooms"`
	}

	err := c.apiCall("GET", "/api/rooms"+params, nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Rooms (%d):\n\n", response.Count)
	for _, r := range response.Rooms {
		result += fmt.Sprintf("- %s [%s] %s %s (%d/%d players, created %s)\n",
			r.ID, r.RoomCode, r.Variant, r.Status,
			r.PlayerCount, r.MaxPlayers, r.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)

	var room service.RoomInfo
	err := c.apiCall("GET", fmt.Sprintf("/api/rooms/%s", roomID), nil, &room)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatRoomInfo(&room)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)

	var snap engine.Snapshot
	err := c.apiCall("GET", fmt.Sprintf("/api/rooms/%s/state", roomID), nil, &snap)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatSnapshot(&snap)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)

	params := "?"
	if page, ok := args["page"].(float64); ok {
		params += fmt.Sprintf("page=%d&", int(page))
	}
	if limit, ok := args["limit"].(float64); ok {
		params += fmt.Sprintf("limit=%d&", int(limit))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params += fmt.Sprintf("order=%s&", order)
	}
	params = strings.TrimSuffix(params, "&")
	params = strings.TrimSuffix(params, "?")

	var history service.HistoryResponse
	err := c.apiCall("GET", fmt.Sprintf("/api/rooms/%s/history%s", roomID, params), nil, &history)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := formatHistory(&history)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListVariants(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var variants []service.VariantInfo
	err := c.apiCall("GET", "/api/variants", nil, &variants)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	sb.WriteString("Variants:\n\n")
	for _, v := range variants {
		fmt.Fprintf(&sb, "- %s (%s): %d-%d players, %ds turns", v.Variant, v.Name, v.MinPlayers, v.MaxPlayers, v.TurnTimeoutSec)
		if v.MoveCap > 0 {
			fmt.Fprintf(&sb, ", move cap %d", v.MoveCap)
		}
		if v.Lives > 0 {
			fmt.Fprintf(&sb, ", %d lives", v.Lives)
		}
		if len(v.PrizeSplit) > 0 {
			fmt.Fprintf(&sb, ", prize split %v", v.PrizeSplit)
		}
		sb.WriteString("\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (c *Client) handleListRulesets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var rulesets []config.RulesetInfo
	err := c.apiCall("GET", "/api/rulesets", nil, &rulesets)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(rulesets) == 0 {
		return mcp.NewToolResultText("No custom rulesets available."), nil
	}

	var sb strings.Builder
	sb.WriteString("Custom rulesets:\n\n")
	for _, rs := range rulesets {
		fmt.Fprintf(&sb, "- %s (%s): %d-%d players", rs.RulesetID, rs.Name, rs.MinPlayers, rs.MaxPlayers)
		if rs.Description != "" {
			fmt.Fprintf(&sb, " - %s", rs.Description)
		}
		sb.WriteString("\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// Formatting helpers

func formatRoomInfo(room *service.RoomInfo) string {
	return fmt.Sprintf("Room: %s\nCode: %s\nVariant: %s\nStatus: %s\nPlayers: %d/%d\nCreated: %s\n",
		room.ID, room.RoomCode, room.Variant, room.Status,
		room.PlayerCount, room.MaxPlayers, room.CreatedAt.Format(time.RFC3339))
}

func formatSnapshot(snap *engine.Snapshot) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Room %s [%s] - %s %s\n", snap.ID, snap.RoomCode, snap.Variant, snap.Status)
	fmt.Fprintf(&sb, "Moves: %d  Seq: %d\n", snap.MoveCount, snap.Seq)

	if snap.CurrentPlayerID != "" {
		fmt.Fprintf(&sb, "Current turn: %s", snap.CurrentPlayerID)
		if snap.Dice > 0 {
			fmt.Fprintf(&sb, " (rolled %d)", snap.Dice)
		}
		if !snap.TurnDeadline.IsZero() {
			fmt.Fprintf(&sb, ", deadline %s", snap.TurnDeadline.Format("15:04:05"))
		}
		sb.WriteString("\n")
	}
	if !snap.PauseDeadline.IsZero() {
		fmt.Fprintf(&sb, "Paused until %s\n", snap.PauseDeadline.Format("15:04:05"))
	}

	sb.WriteString("\nPlayers:\n")
	for _, p := range snap.Players {
		marker := " "
		if p.ID == snap.CurrentPlayerID {
			marker = ">"
		}
		fmt.Fprintf(&sb, "%s slot %d: %s (%s) %d pts", marker, p.Slot, p.Name, p.ID, p.Points)
		if !p.Connected {
			sb.WriteString(" [disconnected]")
		}
		if p.Forfeited {
			sb.WriteString(" [forfeited]")
		}
		sb.WriteString("\n    tokens:")
		for i, pos := range p.Tokens {
			fmt.Fprintf(&sb, " %d=%s", i, formatPosition(pos))
		}
		sb.WriteString("\n")
	}

	if len(snap.Rankings) > 0 {
		sb.WriteString("\nFinal standings:\n")
		for _, r := range snap.Rankings {
			fmt.Fprintf(&sb, "  #%d %s (%d pts)", r.Rank, r.Name, r.Points)
			if r.Won {
				sb.WriteString(" - winner")
			}
			if r.Forfeit {
				sb.WriteString(" - forfeited")
			}
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func formatPosition(pos rules.Position) string {
	switch pos {
	case rules.Home:
		return "home"
	case rules.Finished:
		return "finished"
	default:
		return fmt.Sprintf("%d", int(pos))
	}
}

func formatHistory(history *service.HistoryResponse) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Move history (page %d of %d, %d total):\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, m := range history.Moves {
		fmt.Fprintf(&sb, "- %s: token %d %s -> %s (dice %d)",
			m.PlayerID, m.TokenIndex, formatPosition(m.From), formatPosition(m.To), m.Dice)
		for _, c := range m.Captured {
			fmt.Fprintf(&sb, ", captured %s token %d", c.PlayerID, c.TokenIndex)
		}
		sb.WriteString("\n")
	}

	if history.HasNext {
		sb.WriteString("\n(more moves on the next page)\n")
	}

	return sb.String()
}
