// Command simbot drives full games against a running server for smoke
// testing and load generation. It creates a room over the REST API, connects
// one websocket client per seat, and plays random legal moves until the game
// completes, printing the final standings.
//
// It uses insecure dev tokens (the bearer token is the player ID), so the
// target server must be running without LUDO_JWT_SECRET.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ludoroyale/game-server/game/engine"
)

type clientMessage struct {
	Type       string `json:"type"`
	TokenIndex int    `json:"token_index,omitempty"`
	Ready      bool   `json:"ready,omitempty"`
}

type serverMessage struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id,omitempty"`
	Delta     *engine.Delta    `json:"delta,omitempty"`
	Snapshot  *engine.Snapshot `json:"snapshot,omitempty"`
	Reason    engine.Reason    `json:"reason,omitempty"`
}

// bot is one automated player. It acts purely on snapshots: every delta
// triggers a resync, and each fresh snapshot decides the next action. Slower
// than tracking deltas but immune to drift, which is the point of a smoke
// test bot.
type bot struct {
	playerID string
	conn     *websocket.Conn

	writeMu   sync.Mutex
	nextToken int

	final *engine.Snapshot
}

func (b *bot) send(msg clientMessage) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteJSON(msg)
}

// act decides the bot's next action from a fresh snapshot.
func (b *bot) act(snap *engine.Snapshot) (done bool) {
	switch snap.Status {
	case engine.StatusCompleted, engine.StatusAbandoned:
		b.final = snap
		return true
	case engine.StatusInProgress:
	default:
		return false
	}

	if snap.CurrentPlayerID != b.playerID {
		return false
	}

	if snap.Dice == 0 {
		b.nextToken = 0
		b.send(clientMessage{Type: "roll_dice"})
		return false
	}

	// A pending roll either has a legal move among the four tokens or the
	// server would have auto-passed, so cycling indexes always terminates.
	b.send(clientMessage{Type: "move_token", TokenIndex: b.nextToken})
	return false
}

// run plays until the game reaches a terminal status.
func (b *bot) run() error {
	if err := b.send(clientMessage{Type: "join"}); err != nil {
		return err
	}
	if err := b.send(clientMessage{Type: "set_ready", Ready: true}); err != nil {
		return err
	}

	for {
		var msg serverMessage
		if err := b.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("%s: read: %w", b.playerID, err)
		}

		switch msg.Type {
		case "snapshot":
			if b.act(msg.Snapshot) {
				return nil
			}
		case "delta":
			b.send(clientMessage{Type: "request_resync"})
		case "error":
			// Usually an illegal token choice; advance to the next one
			// and resync to retry.
			if b.nextToken < 3 {
				b.nextToken++
			} else {
				b.nextToken = 0
			}
			b.send(clientMessage{Type: "request_resync"})
		}
	}
}

func createRoom(serverURL, variant string) (string, error) {
	body, _ := json.Marshal(map[string]string{"variant": variant})
	resp, err := http.Post(serverURL+"/api/rooms", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create room failed: %s - %s", resp.Status, string(data))
	}

	var room struct {
		ID       string `json:"id"`
		RoomCode string `json:"room_code"`
	}
	if err := json.Unmarshal(data, &room); err != nil {
		return "", fmt.Errorf("parse room response: %w", err)
	}

	log.Printf("Created room %s [%s]", room.ID, room.RoomCode)
	return room.ID, nil
}

func dialBot(serverURL, roomID, playerID string) (*bot, error) {
	wsURL := strings.Replace(serverURL, "http", "ws", 1)
	u := fmt.Sprintf("%s/ws?session=%s&token=%s", wsURL, url.QueryEscape(roomID), url.QueryEscape(playerID))

	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", playerID, err)
	}
	return &bot{playerID: playerID, conn: conn}, nil
}

func playGame(serverURL, variant string, players int) error {
	roomID, err := createRoom(serverURL, variant)
	if err != nil {
		return err
	}

	bots := make([]*bot, 0, players)
	for i := 0; i < players; i++ {
		b, err := dialBot(serverURL, roomID, fmt.Sprintf("bot-%d", i))
		if err != nil {
			return err
		}
		defer b.conn.Close()
		bots = append(bots, b)
	}

	start := time.Now()
	var wg sync.WaitGroup
	errs := make(chan error, len(bots))
	for _, b := range bots {
		wg.Add(1)
		go func(b *bot) {
			defer wg.Done()
			if err := b.run(); err != nil {
				errs <- err
			}
		}(b)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		return err
	}

	final := bots[0].final
	if final == nil {
		return fmt.Errorf("game ended without a final snapshot")
	}

	log.Printf("Game %s finished in %s after %d moves (%s)",
		roomID, time.Since(start).Round(time.Millisecond), final.MoveCount, final.Status)
	for _, r := range final.Rankings {
		log.Printf("  #%d %s (%d pts)", r.Rank, r.PlayerID, r.Points)
	}
	return nil
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Server base URL")
	variant := flag.String("variant", "QUICK", "Rule variant to play")
	players := flag.Int("players", 2, "Number of bot players (2-4)")
	games := flag.Int("games", 1, "Number of games to play")
	flag.Parse()

	if *players < 2 || *players > 4 {
		log.Fatalf("players must be 2-4, got %d", *players)
	}

	for i := 0; i < *games; i++ {
		if err := playGame(*serverURL, *variant, *players); err != nil {
			log.Fatalf("Game %d failed: %v", i+1, err)
		}
	}
}
