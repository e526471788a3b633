package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/ludoroyale/game-server/auth"
	"github.com/ludoroyale/game-server/game/config"
	"github.com/ludoroyale/game-server/game/engine"
	"github.com/ludoroyale/game-server/game/rules"
	"github.com/ludoroyale/game-server/game/service"
	"github.com/ludoroyale/game-server/game/session"
)

// newFakeClient builds a connection-less client for exercising the hub's
// bookkeeping directly.
func newFakeClient(hub *Hub, sessionID, playerID string, buffer int) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		playerID:  playerID,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

func newTestHub(t *testing.T) (*Hub, *service.Service, string) {
	t.Helper()

	registry := session.NewRegistry()
	t.Cleanup(registry.Close)

	rulesets, err := config.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("ruleset manager: %v", err)
	}

	svc := service.NewGameService(registry, rulesets, nil)
	hub := NewHub(svc, auth.Insecure{})
	svc.SetBroadcaster(hub)

	room, err := svc.CreateRoom(context.Background(), service.CreateRoomRequest{Variant: rules.Classic})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return hub, svc, room.ID
}

func dial(t *testing.T, server *httptest.Server, sessionID, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID + "&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func TestHubRegisterUnregister(t *testing.T) {
	hub, _, _ := newTestHub(t)

	client := newFakeClient(hub, "test-session", "p0", 256)

	hub.register(client)
	if hub.SessionClientCount("test-session") != 1 {
		t.Errorf("Expected 1 client in session, got %d", hub.SessionClientCount("test-session"))
	}
	if !hub.hasConnection("test-session", "p0") {
		t.Error("Expected p0 to have a live connection")
	}

	hub.unregister(client)
	if hub.SessionClientCount("test-session") != 0 {
		t.Error("Session should have been cleaned up after last client unregistered")
	}
	if hub.hasConnection("test-session", "p0") {
		t.Error("p0 should have no connection after unregister")
	}

	// Unregistering twice is harmless.
	hub.unregister(client)
}

func TestHubBroadcastDelta(t *testing.T) {
	hub, _, _ := newTestHub(t)
	sessionID := "broadcast-test"

	client1 := newFakeClient(hub, sessionID, "p0", 256)
	client2 := newFakeClient(hub, sessionID, "p1", 256)
	other := newFakeClient(hub, "other-session", "p9", 256)
	hub.register(client1)
	hub.register(client2)
	hub.register(other)

	delta := &engine.Delta{Seq: 7, Events: []engine.Event{{Type: engine.EventDiceRolled}}}
	hub.BroadcastDelta(sessionID, delta)

	for _, client := range []*Client{client1, client2} {
		select {
		case data := <-client.send:
			var msg serverMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("Failed to unmarshal message: %v", err)
			}
			if msg.Type != msgDelta {
				t.Errorf("Expected delta message, got %s", msg.Type)
			}
			if msg.Delta.Seq != 7 {
				t.Errorf("Expected seq 7, got %d", msg.Delta.Seq)
			}
		case <-time.After(100 * time.Millisecond):
			t.Error("No message received within timeout")
		}
	}

	select {
	case <-other.send:
		t.Error("Client in another session should not receive the delta")
	default:
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, _, _ := newTestHub(t)
	sessionID := "slow-test"

	// A full send buffer marks the client as too slow to keep.
	slow := newFakeClient(hub, sessionID, "p0", 0)
	hub.register(slow)

	hub.BroadcastDelta(sessionID, &engine.Delta{Seq: 1})

	if hub.SessionClientCount(sessionID) != 0 {
		t.Error("Slow client should have been dropped")
	}
}

func TestHubSendAfterDrop(t *testing.T) {
	hub, _, _ := newTestHub(t)
	sessionID := "drop-race"

	client := newFakeClient(hub, sessionID, "p0", 0)
	hub.register(client)

	// The zero buffer makes this broadcast drop the client.
	hub.BroadcastDelta(sessionID, &engine.Delta{Seq: 1})
	if hub.SessionClientCount(sessionID) != 0 {
		t.Fatal("Client should have been dropped")
	}
	select {
	case <-client.done:
	default:
		t.Fatal("Dropped client should have its done channel closed")
	}

	// The client's reader may still be mid-reply when the hub drops it.
	// Both paths must degrade to no-ops, never a send on a dead channel.
	client.sendError(engine.ReasonNotYourTurn)
	hub.BroadcastDelta(sessionID, &engine.Delta{Seq: 2})
	hub.unregister(client)
}

func TestHubConcurrentBroadcastAndUnregister(t *testing.T) {
	hub, _, _ := newTestHub(t)
	sessionID := "churn"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		client := newFakeClient(hub, sessionID, "p0", 1)
		hub.register(client)

		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.BroadcastDelta(sessionID, &engine.Delta{Seq: uint64(j)})
			}
		}()
		go func() {
			defer wg.Done()
			client.sendError("bad_message")
			hub.unregister(client)
			client.sendError("bad_message")
		}()
	}
	wg.Wait()
}

func TestRelayChatTruncatesOnRuneBoundary(t *testing.T) {
	hub, _, _ := newTestHub(t)
	sessionID := "chat-trunc"

	recv := newFakeClient(hub, sessionID, "p0", 4)
	hub.register(recv)
	sender := newFakeClient(hub, sessionID, "p1", 4)
	hub.register(sender)

	// 3-byte runes put the byte cap mid-rune.
	sender.relayChat(strings.Repeat("世", 120))

	select {
	case data := <-recv.send:
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if len(msg.Text) > maxChatLen {
			t.Errorf("Chat exceeds the length cap: %d bytes", len(msg.Text))
		}
		if !utf8.ValidString(msg.Text) {
			t.Error("Truncated chat is not valid UTF-8")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("No chat message received")
	}
}

func TestServeWS(t *testing.T) {
	hub, _, roomID := newTestHub(t)
	server := httptest.NewServer(hub)
	defer server.Close()

	t.Run("missing session", func(t *testing.T) {
		resp, err := server.Client().Get(server.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != 400 {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := server.Client().Get(server.URL + "?session=" + roomID)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != 401 {
			t.Errorf("Expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		resp, err := server.Client().Get(server.URL + "?session=nope&token=alice")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != 404 {
			t.Errorf("Expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("snapshot on connect then actions", func(t *testing.T) {
		conn := dial(t, server, roomID, "alice")

		first := readMessage(t, conn)
		if first.Type != msgSnapshot {
			t.Fatalf("Expected snapshot first, got %s", first.Type)
		}
		if first.Snapshot == nil || first.Snapshot.Status != engine.StatusWaiting {
			t.Fatalf("Snapshot missing or wrong status: %+v", first.Snapshot)
		}

		// Joining the lobby commits a delta everyone receives.
		if err := conn.WriteJSON(clientMessage{Type: actionJoin}); err != nil {
			t.Fatalf("write join: %v", err)
		}
		msg := readMessage(t, conn)
		if msg.Type != msgDelta {
			t.Fatalf("Expected delta, got %s", msg.Type)
		}
		if len(msg.Delta.Events) == 0 || msg.Delta.Events[0].Type != engine.EventPlayerJoined {
			t.Errorf("Expected player_joined event, got %+v", msg.Delta.Events)
		}

		// Rolling in the lobby is rejected back to this client only.
		if err := conn.WriteJSON(clientMessage{Type: actionRoll}); err != nil {
			t.Fatalf("write roll: %v", err)
		}
		msg = readMessage(t, conn)
		if msg.Type != msgError {
			t.Fatalf("Expected error, got %s", msg.Type)
		}
		if msg.Reason == "" {
			t.Error("Error should carry a reason code")
		}

		// Resync returns a fresh snapshot on demand.
		if err := conn.WriteJSON(clientMessage{Type: actionResync}); err != nil {
			t.Fatalf("write resync: %v", err)
		}
		msg = readMessage(t, conn)
		if msg.Type != msgSnapshot {
			t.Fatalf("Expected snapshot, got %s", msg.Type)
		}
		if len(msg.Snapshot.Players) != 1 {
			t.Errorf("Resync snapshot should show the joined player, got %d", len(msg.Snapshot.Players))
		}

		// Chat is relayed to the room without touching game state.
		if err := conn.WriteJSON(clientMessage{Type: actionChat, Text: "glhf"}); err != nil {
			t.Fatalf("write chat: %v", err)
		}
		msg = readMessage(t, conn)
		if msg.Type != msgChat || msg.Text != "glhf" || msg.PlayerID != "alice" {
			t.Errorf("Unexpected chat relay: %+v", msg)
		}

		// Unknown actions get an error, not a dropped connection.
		if err := conn.WriteJSON(clientMessage{Type: "dance"}); err != nil {
			t.Fatalf("write unknown: %v", err)
		}
		msg = readMessage(t, conn)
		if msg.Type != msgError || msg.Reason != "unknown_action" {
			t.Errorf("Expected unknown_action error, got %+v", msg)
		}
	})
}
