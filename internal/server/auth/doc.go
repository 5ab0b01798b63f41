// Package auth issues and verifies the JWT access and refresh tokens and
// hashes user passwords.
//
// Access and refresh tokens share one claim layout (the user's safe
// projection plus registered claims) but are signed with distinct secrets,
// so a refresh token is never accepted where an access token is expected
// and vice versa.
package auth
