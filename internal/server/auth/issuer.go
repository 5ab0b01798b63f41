package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer mints signed tokens. It is a pure function of claims, secrets and
// the clock.
type Issuer struct {
	cfg    Config
	method *jwt.SigningMethodHMAC
	clock  clock
}

func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token secrets must not be empty")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	m, err := signingMethod(cfg.Method)
	if err != nil {
		return nil, err
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	return &Issuer{cfg: cfg, method: m, clock: newClock(opts)}, nil
}

func (i *Issuer) AccessTTL() time.Duration  { return i.cfg.AccessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }

// IssueAccessToken returns a short-lived bearer token and its expiry.
func (i *Issuer) IssueAccessToken(u models.SafeUser) (string, time.Time, error) {
	return i.issue(u, i.cfg.AccessSecret, i.cfg.AccessTTL)
}

// IssueRefreshToken returns a long-lived token for the refresh cookie and
// its expiry.
func (i *Issuer) IssueRefreshToken(u models.SafeUser) (string, time.Time, error) {
	return i.issue(u, i.cfg.RefreshSecret, i.cfg.RefreshTTL)
}

func (i *Issuer) issue(u models.SafeUser, secret []byte, ttl time.Duration) (string, time.Time, error) {
	now := i.clock.now()
	exp := jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(i.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.cfg.Issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: exp,
		},
		User: u,
	})

	s, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp.Time, nil
}
