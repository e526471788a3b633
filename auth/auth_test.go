package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHMACVerifier_RoundTrip(t *testing.T) {
	token, err := Sign("test-secret", Identity{PlayerID: "p123", Name: "Ana"}, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	v := NewHMACVerifier("test-secret")
	identity, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.PlayerID != "p123" {
		t.Errorf("expected player p123, got %s", identity.PlayerID)
	}
	if identity.Name != "Ana" {
		t.Errorf("expected name Ana, got %s", identity.Name)
	}
}

func TestHMACVerifier_Rejections(t *testing.T) {
	good, _ := Sign("test-secret", Identity{PlayerID: "p1"}, time.Minute)
	expired, _ := Sign("test-secret", Identity{PlayerID: "p1"}, -time.Minute)
	wrongKey, _ := Sign("other-secret", Identity{PlayerID: "p1"}, time.Minute)
	anonymous, _ := Sign("test-secret", Identity{}, time.Minute)

	v := NewHMACVerifier("test-secret")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"expired", expired},
		{"wrong key", wrongKey},
		{"no identity", anonymous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}

	if _, err := v.Verify(good); err != nil {
		t.Errorf("control token should verify: %v", err)
	}
}

func TestInsecure(t *testing.T) {
	identity, err := Insecure{}.Verify("dev-player")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.PlayerID != "dev-player" {
		t.Errorf("expected dev-player, got %s", identity.PlayerID)
	}
	if _, err := (Insecure{}).Verify(""); err == nil {
		t.Error("empty token should be rejected even in dev mode")
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?session=s1", nil)
	r.Header.Set("Authorization", "Bearer abc")
	if got := BearerToken(r); got != "abc" {
		t.Errorf("header token: expected abc, got %q", got)
	}

	r = httptest.NewRequest("GET", "/ws?session=s1&token=xyz", nil)
	if got := BearerToken(r); got != "xyz" {
		t.Errorf("query token: expected xyz, got %q", got)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	if got := BearerToken(r); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
}
