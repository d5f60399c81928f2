package client

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mernshop/storefront/pkg/models"
)

// Session is the signed-in state of one client: the bearer token, the user it
// was issued for and its expiry. The zero value is signed out.
type Session struct {
	mu        sync.RWMutex
	token     string
	user      models.User
	expiresAt time.Time
}

func NewSession() *Session {
	return &Session{}
}

// Set stores a freshly issued token. The expiry is read from the token
// without verifying it; only the server holds the signing key.
func (s *Session) Set(token string, user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.user = user
	s.expiresAt = tokenExpiry(token)
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed-in user, if any.
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.token != ""
}

// Expired reports whether there is no usable token at now. Tokens without a
// readable exp claim count as expired.
func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token == "" || s.expiresAt.IsZero() || !now.Before(s.expiresAt)
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = models.User{}
	s.expiresAt = time.Time{}
}

// invalidate clears the session only if it still holds token, so a 401 for a
// token that was already replaced does not sign out the new one.
func (s *Session) invalidate(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" || s.token != token {
		return false
	}
	s.token = ""
	s.user = models.User{}
	s.expiresAt = time.Time{}
	return true
}

func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
