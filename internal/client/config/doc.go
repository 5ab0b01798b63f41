// Package config loads runtime configuration for the gophnotes CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     base URL of the gophnotes server
//	-m duration   how long before access token expiry to refresh it
//	-s string     path of the local session database
//	-i duration   online status check interval
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:5000",
//	  "refresh_margin": "30s",
//	  "session_file": "gophnotes.db",
//	  "request_timeout": "10s",
//	  "online_check_interval": "5s"
//	}
package config
