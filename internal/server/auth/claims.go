package auth

import (
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of both token kinds.
type Claims struct {
	jwt.RegisteredClaims
	User models.SafeUser `json:"user"`
}

// Config describes how tokens are signed. Method names a jwt HMAC method
// ("HS256" when empty).
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Method        string
	Issuer        string
}

const defaultIssuer = "gophnotes"

type Option func(*clock)

type clock struct {
	now func() time.Time
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *clock) { c.now = now }
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now}
	for _, o := range opts {
		o(&c)
	}
	return c
}

func signingMethod(name string) (*jwt.SigningMethodHMAC, error) {
	if name == "" {
		name = jwt.SigningMethodHS256.Alg()
	}
	m, ok := jwt.GetSigningMethod(name).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, &UnsupportedMethodError{Method: name}
	}
	return m, nil
}

type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return "unsupported signing method " + e.Method + ", only HMAC methods are allowed"
}
