package config

import (
	"flag"

	"github.com/dmitrijs2005/gophnotes/internal/flagx"
)

// parseFlags populates Config from command-line flags.
//
//	-a string            listen address (":5000")
//	-d string            Postgres DSN
//	-e string            environment ("production" enables Secure cookies)
//	-l string            log level
//	-access-ttl duration access token lifetime
//	-refresh-ttl duration refresh token lifetime
//
// Secrets come only from the JSON file or the environment.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-e", "-l", "-access-ttl", "-refresh-ttl"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Address, "a", config.Address, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment name")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.DurationVar(&config.AccessTokenTTL, "access-ttl", config.AccessTokenTTL, "access token lifetime")
	fs.DurationVar(&config.RefreshTokenTTL, "refresh-ttl", config.RefreshTokenTTL, "refresh token lifetime")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
