package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ludoroyale/game-server/game/engine"
	"github.com/ludoroyale/game-server/game/rules"
)

func sampleResult() Result {
	return Result{
		SessionID: "sess-1",
		RoomCode:  "AB12CD",
		Variant:   rules.Classic,
		Rankings: []engine.Ranking{
			{PlayerID: "p0", Rank: 1},
			{PlayerID: "p1", Rank: 2},
		},
		PrizeSplit:  []int{70, 30},
		CompletedAt: time.Now(),
	}
}

func TestHTTPNotifier_PostsResult(t *testing.T) {
	var got Result
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/game-results" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, "secret")
	if err := n.NotifyCompleted(context.Background(), sampleResult()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.SessionID != "sess-1" {
		t.Errorf("expected session id in payload, got %q", got.SessionID)
	}
	if len(got.Rankings) != 2 || got.Rankings[0].PlayerID != "p0" {
		t.Errorf("unexpected rankings payload: %+v", got.Rankings)
	}
}

func TestHTTPNotifier_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, "")
	if err := n.NotifyCompleted(context.Background(), sampleResult()); err != nil {
		t.Fatalf("notify should succeed on retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestHTTPNotifier_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, "")
	n.retries = 2
	if err := n.NotifyCompleted(context.Background(), sampleResult()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}
