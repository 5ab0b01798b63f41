// Package client talks to the gophnotes REST API.
//
// HTTPClient keeps the refresh cookie in a cookie jar and attaches the
// session's access token to every protected call. When the server answers
// 401 the token is refreshed once and the call retried once. Refreshes
// triggered this way and by the session scheduler share a single in-flight
// request.
//
// Failures are reported with the sentinel errors in errors.go, matched with
// errors.Is. Server-side rejections additionally carry an *APIError with the
// status code and message.
//
// InitDatabase and RunMigrations prepare the local SQLite file where the
// CLI keeps its session between runs.
package client
