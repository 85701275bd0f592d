// Package auth is the thin identity-gate collaborator: it answers whether
// a request carries a valid identity. Session management lives elsewhere.
package auth

import (
	"net/http"
	"strings"
)

type Identity struct {
	Username string
}

// Gate resolves an HTTP request to an identity, or rejects it.
type Gate interface {
	Authenticate(r *http.Request) (Identity, bool)
}

// TokenGate accepts requests carrying the shared token as a bearer header
// or an "auth" cookie. The cookie value is "token:username" or just the
// token. An empty configured token disables the gate (development mode)
// and resolves every request to the anonymous identity.
type TokenGate struct {
	token string
}

func NewTokenGate(token string) *TokenGate {
	return &TokenGate{token: strings.TrimSpace(token)}
}

func (g *TokenGate) Authenticate(r *http.Request) (Identity, bool) {
	if g.token == "" {
		return Identity{Username: "anonymous"}, true
	}

	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if value, ok := strings.CutPrefix(header, "Bearer "); ok && strings.TrimSpace(value) == g.token {
			return Identity{Username: "api"}, true
		}
	}

	cookie, err := r.Cookie("auth")
	if err != nil {
		return Identity{}, false
	}
	token, username, found := strings.Cut(cookie.Value, ":")
	if token != g.token {
		return Identity{}, false
	}
	if !found || strings.TrimSpace(username) == "" {
		username = "anonymous"
	}
	return Identity{Username: strings.TrimSpace(username)}, true
}
