// Package auth verifies player identity tokens issued by the platform's
// account service. The game server never issues tokens; it only checks the
// signature and extracts the player identity.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified player behind a request.
type Identity struct {
	PlayerID string
	Name     string
}

// Verifier checks a bearer token and returns the identity it carries.
type Verifier interface {
	Verify(token string) (*Identity, error)
}

// Claims is the JWT payload the account service signs for game access.
type Claims struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// HMACVerifier validates HS256 tokens against a shared secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	playerID := claims.PlayerID
	if playerID == "" {
		playerID = claims.Subject
	}
	if playerID == "" {
		return nil, fmt.Errorf("%w: no player identity in claims", ErrInvalidToken)
	}
	return &Identity{PlayerID: playerID, Name: claims.Name}, nil
}

// Insecure accepts any non-empty token and uses it as the player ID.
// For local development only; never wire it in production config.
type Insecure struct{}

func (Insecure) Verify(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{PlayerID: token, Name: token}, nil
}

// Sign issues a token for the given identity. Only tests and the local dev
// command use this; production tokens come from the account service.
func Sign(secret string, identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		PlayerID: identity.PlayerID,
		Name:     identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.PlayerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// BearerToken extracts the token from a request. Browsers cannot set headers
// on websocket upgrades, so a "token" query parameter is accepted too.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if after, found := strings.CutPrefix(h, "Bearer "); found {
			return after
		}
	}
	return r.URL.Query().Get("token")
}
