// Package common contains shared constants and sentinel errors used across
// gophnotes components.
package common

const (
	// RefreshTokenCookieName is the cookie that carries the refresh token
	// between the server and its clients.
	RefreshTokenCookieName = "refreshToken"

	// AuthorizationHeaderName carries the access token as a bearer credential.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// RequestIDHeaderName is echoed back on every HTTP response.
	RequestIDHeaderName = "X-Request-ID"
)
