package client

import (
	"net/http"
	"time"

	"github.com/mernshop/storefront/pkg/models"
)

// AuthGate is the transport every client request goes through. It attaches
// the session token and, when the server answers 401, signs the session out
// and calls OnExpired once for that token.
type AuthGate struct {
	Session   *Session
	Next      http.RoundTripper
	OnExpired func()

	now func() time.Time
}

func (g *AuthGate) RoundTrip(req *http.Request) (*http.Response, error) {
	token := g.Session.Token()
	if token != "" && g.Session.Expired(g.clock()) {
		g.expire(token)
		token = ""
	}

	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.next().RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		g.expire(token)
	}
	return resp, nil
}

// Restore re-applies a token saved by an earlier run. An expired token is
// discarded and reported through OnExpired.
func (g *AuthGate) Restore(token string, user models.User) bool {
	g.Session.Set(token, user)
	if g.Session.Expired(g.clock()) {
		g.expire(token)
		return false
	}
	return true
}

func (g *AuthGate) expire(token string) {
	if g.Session.invalidate(token) && g.OnExpired != nil {
		g.OnExpired()
	}
}

func (g *AuthGate) next() http.RoundTripper {
	if g.Next != nil {
		return g.Next
	}
	return http.DefaultTransport
}

func (g *AuthGate) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}
