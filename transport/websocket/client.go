package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/ludoroyale/game-server/game/engine"
)

// Inbound message types.
const (
	actionJoin    = "join"
	actionReady   = "set_ready"
	actionRoll    = "roll_dice"
	actionMove    = "move_token"
	actionForfeit = "forfeit"
	actionResync  = "request_resync"
	actionChat    = "send_chat"
)

// Outbound message types.
const (
	msgSnapshot = "snapshot"
	msgDelta    = "delta"
	msgError    = "error"
	msgChat     = "chat"
)

// clientMessage is what players send over the wire.
type clientMessage struct {
	Type       string `json:"type"`
	TokenIndex int    `json:"token_index,omitempty"`
	Ready      bool   `json:"ready,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Text       string `json:"text,omitempty"`
}

// serverMessage is what the server sends. Exactly one payload field is set
// per message, keyed by Type.
type serverMessage struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id,omitempty"`
	Delta     *engine.Delta    `json:"delta,omitempty"`
	Snapshot  *engine.Snapshot `json:"snapshot,omitempty"`
	Reason    engine.Reason    `json:"reason,omitempty"`
	PlayerID  string           `json:"player_id,omitempty"`
	Name      string           `json:"name,omitempty"`
	Text      string           `json:"text,omitempty"`
}

func encodeMessage(msg serverMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// Client is one WebSocket connection bound to a session and an identity.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	sessionID string
	playerID  string
	name      string

	mu      sync.Mutex
	dropped bool
}

// drop marks the client dead and wakes writePump. The send channel is never
// closed: the reader and broadcasts can still race a drop, and a send on a
// closed channel would take the whole process down.
func (c *Client) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		return
	}
	c.dropped = true
	close(c.done)
}

// trySend queues data for writePump. It reports false when the client was
// dropped or its buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropped {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// enqueue queues a message for this client only.
func (c *Client) enqueue(msg serverMessage) {
	data, err := encodeMessage(msg)
	if err != nil {
		log.Printf("[WS] marshal failed: %v", err)
		return
	}
	if !c.trySend(data) {
		c.hub.unregister(c)
	}
}

func (c *Client) sendError(reason engine.Reason) {
	c.enqueue(serverMessage{Type: msgError, SessionID: c.sessionID, Reason: reason})
}

// readPump reads player actions until the connection drops, then reports the
// player as disconnected if no other tab carries the same identity.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		if !c.hub.hasConnection(c.sessionID, c.playerID) {
			if _, err := c.hub.service.Disconnect(context.Background(), c.sessionID, c.playerID); err != nil {
				log.Printf("[WS] disconnect session=%s player=%s: %v", c.sessionID, c.playerID, err)
			}
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] read error session=%s: %v", c.sessionID, err)
			}
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("bad_message")
			continue
		}
		c.handle(msg)
	}
}

// handle routes one inbound action. Rejections go back to this client only;
// accepted actions reach everyone through the broadcast hook.
func (c *Client) handle(msg clientMessage) {
	ctx := context.Background()

	var out engine.Outcome
	var err error
	switch msg.Type {
	case actionJoin:
		out, err = c.hub.service.Join(ctx, c.sessionID, c.playerID, c.name)
	case actionReady:
		out, err = c.hub.service.SetReady(ctx, c.sessionID, c.playerID, msg.Ready)
	case actionRoll:
		out, err = c.hub.service.RollDice(ctx, c.sessionID, c.playerID)
	case actionMove:
		out, err = c.hub.service.MoveToken(ctx, c.sessionID, c.playerID, msg.TokenIndex)
	case actionForfeit:
		out, err = c.hub.service.Forfeit(ctx, c.sessionID, c.playerID, msg.Reason)
	case actionResync:
		snap, err := c.hub.service.GetState(ctx, c.sessionID)
		if err != nil {
			c.sendError("session_gone")
			return
		}
		c.enqueue(serverMessage{Type: msgSnapshot, SessionID: c.sessionID, Snapshot: &snap})
		return
	case actionChat:
		c.relayChat(msg.Text)
		return
	default:
		c.sendError("unknown_action")
		return
	}

	if err != nil {
		c.sendError("session_gone")
		return
	}
	if !out.OK {
		c.sendError(out.Reason)
	}
}

// relayChat fans a chat line out to the room. Chat never touches game state.
func (c *Client) relayChat(text string) {
	if text == "" {
		return
	}
	if len(text) > maxChatLen {
		// Cut on a rune boundary so the relayed frame stays valid UTF-8.
		cut := maxChatLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	c.hub.broadcast(c.sessionID, serverMessage{
		Type:      msgChat,
		SessionID: c.sessionID,
		PlayerID:  c.playerID,
		Name:      c.name,
		Text:      text,
	})
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			// The hub dropped us
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
