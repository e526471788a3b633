package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ludoroyale/game-server/game/engine"
	"github.com/ludoroyale/game-server/game/rules"
)

// Result is the payload posted to the ledger when a game completes.
type Result struct {
	SessionID   string           `json:"session_id"`
	RoomCode    string           `json:"room_code"`
	Variant     rules.Variant    `json:"variant"`
	Rankings    []engine.Ranking `json:"rankings"`
	PrizeSplit  []int            `json:"prize_split,omitempty"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Notifier delivers game results to the ledger.
type Notifier interface {
	NotifyCompleted(ctx context.Context, result Result) error
}

// Nop discards results. Used when no ledger endpoint is configured, e.g.
// local development.
type Nop struct{}

func (Nop) NotifyCompleted(context.Context, Result) error { return nil }

// HTTPNotifier posts results to the ledger's REST endpoint.
type HTTPNotifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retries int
}

// NewHTTPNotifier creates a notifier for the given ledger base URL.
func NewHTTPNotifier(baseURL, apiKey string) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		retries: 3,
	}
}

// NotifyCompleted posts the result, retrying transient failures.
func (n *HTTPNotifier) NotifyCompleted(ctx context.Context, result Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < n.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = n.post(ctx, body)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("ledger notify failed after %d attempts: %w", n.retries, lastErr)
}

func (n *HTTPNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/v1/game-results", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("ledger returned %s", resp.Status)
	}
	return nil
}
