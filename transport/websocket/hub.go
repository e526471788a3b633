package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ludoroyale/game-server/auth"
	"github.com/ludoroyale/game-server/game/engine"
	"github.com/ludoroyale/game-server/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Maximum chat message length relayed to the room.
	maxChatLen = 280
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		// TODO: Configure this for production
		return true
	},
}

// Hub maintains the set of active clients per session and fans out committed
// deltas. Deltas for one session arrive on that session's worker goroutine,
// so per-client write order matches commit order.
type Hub struct {
	service  service.GameService
	verifier auth.Verifier

	mu       sync.RWMutex
	sessions map[string]map[*Client]bool
}

// NewHub creates a new WebSocket hub.
func NewHub(svc service.GameService, verifier auth.Verifier) *Hub {
	return &Hub{
		service:  svc,
		verifier: verifier,
		sessions: make(map[string]map[*Client]bool),
	}
}

// ServeHTTP lets the hub be mounted directly on a route.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.ServeWS(w, r)
}

// ServeWS authenticates and upgrades a client connection. The session ID
// comes from the "session" query parameter, the identity token from the
// Authorization header or "token" parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session parameter", http.StatusBadRequest)
		return
	}

	identity, err := h.verifier.Verify(auth.BearerToken(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	snap, err := h.service.GetState(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		done:      make(chan struct{}),
		sessionID: sessionID,
		playerID:  identity.PlayerID,
		name:      identity.Name,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()

	// A full snapshot first, so the client rebuilds state from one message.
	client.enqueue(serverMessage{Type: msgSnapshot, SessionID: sessionID, Snapshot: &snap})

	// If this identity is a seated player, restore their presence. Rejections
	// (never disconnected, game not paused) are expected and ignored.
	if playerSeated(snap, identity.PlayerID) {
		if _, err := h.service.Reconnect(context.Background(), sessionID, identity.PlayerID); err != nil {
			log.Printf("[WS] reconnect session=%s player=%s: %v", sessionID, identity.PlayerID, err)
		}
	}
}

// BroadcastDelta sends a committed delta to every client watching a session.
// Implements service.Broadcaster.
func (h *Hub) BroadcastDelta(sessionID string, delta *engine.Delta) {
	h.broadcast(sessionID, serverMessage{Type: msgDelta, SessionID: sessionID, Delta: delta})
}

// broadcast fans one message out to a session. Clients that cannot keep up
// are dropped; they can resync on reconnect.
func (h *Hub) broadcast(sessionID string, msg serverMessage) {
	data, err := encodeMessage(msg)
	if err != nil {
		log.Printf("[WS] marshal broadcast failed: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.sessions[sessionID]))
	for client := range h.sessions[sessionID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.trySend(data) {
			log.Printf("[WS] dropping slow client session=%s player=%s", sessionID, client.playerID)
			h.unregister(client)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true
	total := len(h.sessions[client.sessionID])
	h.mu.Unlock()

	log.Printf("[WS] client connected session=%s player=%s (total clients: %d)",
		client.sessionID, client.playerID, total)
}

func (h *Hub) unregister(client *Client) {
	client.drop()

	h.mu.Lock()
	clients, ok := h.sessions[client.sessionID]
	if ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}
		} else {
			ok = false
		}
	}
	remaining := len(clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	log.Printf("[WS] client disconnected session=%s player=%s (remaining clients: %d)",
		client.sessionID, client.playerID, remaining)
}

// hasConnection reports whether any live client carries this player identity
// for the session. Used to tell a dropped tab from a dropped player.
func (h *Hub) hasConnection(sessionID, playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.sessions[sessionID] {
		if client.playerID == playerID {
			return true
		}
	}
	return false
}

// SessionClientCount returns how many clients are watching a session.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func playerSeated(snap engine.Snapshot, playerID string) bool {
	for _, p := range snap.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}
