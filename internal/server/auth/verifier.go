package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
	ErrMalformed        = errors.New("token is malformed")
)

// Verifier validates tokens minted by Issuer. It has no side effects.
type Verifier struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	method        *jwt.SigningMethodHMAC
	clock         clock
}

func NewVerifier(cfg Config, opts ...Option) (*Verifier, error) {
	m, err := signingMethod(cfg.Method)
	if err != nil {
		return nil, err
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	return &Verifier{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		issuer:        cfg.Issuer,
		method:        m,
		clock:         newClock(opts),
	}, nil
}

func (v *Verifier) VerifyAccess(token string) (*Claims, error) {
	return v.Verify(token, v.accessSecret)
}

func (v *Verifier) VerifyRefresh(token string) (*Claims, error) {
	return v.Verify(token, v.refreshSecret)
}

// Verify checks signature, issuer and expiry of token against secret.
// A token is valid up to and including the instant of its exp claim.
// Failures are reported as ErrInvalidSignature, ErrExpired or ErrMalformed.
func (v *Verifier) Verify(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		// jwt treats exp as exclusive; one nanosecond makes it inclusive
		jwt.WithLeeway(time.Nanosecond),
		jwt.WithTimeFunc(v.clock.now),
	)

	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" || claims.Subject != claims.User.ID {
		return nil, ErrMalformed
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return ErrMalformed
	}
}
