// Package cli provides the interactive gophnotes command-line client.
//
// NewApp wires configuration, the local session database, the HTTP API
// client and the services; App.Run resumes a saved session and starts the
// REPL, which blocks until the user exits. While logged in the access
// token is renewed in the background shortly before it expires.
package cli
