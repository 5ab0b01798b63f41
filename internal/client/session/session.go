// Package session holds the CLI's in-memory login state and keeps the
// access token fresh ahead of its expiry.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
)

var ErrNoExpiry = errors.New("token has no exp claim")

type tokenClaims struct {
	jwt.RegisteredClaims
	User models.User `json:"user"`
}

// Decode reads the expiry and user claim of token without checking the
// signature. The client cannot verify tokens; it only needs to know when
// to renew them.
func Decode(token string) (time.Time, models.User, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, models.User{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, models.User{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, claims.User, nil
}

// Session is safe for concurrent use. The zero value is an empty session.
type Session struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	user      models.User
}

func New() *Session {
	return &Session{}
}

// SetAccessToken stores token and the expiry and user read from it.
func (s *Session) SetAccessToken(token string) error {
	exp, user, err := Decode(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = exp
	if user.ID != "" {
		s.user = user
	}
	return nil
}

// SetUser overrides the user taken from the token claims.
func (s *Session) SetUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// User returns the logged-in user and whether there is one.
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.token != ""
}

func (s *Session) LoggedIn() bool {
	return s.AccessToken() != ""
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.user = models.User{}
}
